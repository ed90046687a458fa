// pkg/backend/module.go
package backend

import (
	"context"

	"github.com/arc-language/upkgd/pkg/core"
)

// Module is implemented by every backend module. The description is the
// load-time proof that a unit is a backend at all; every other capability is
// optional and discovered by the interfaces below.
type Module interface {
	Description() string
}

// Optional metadata and lifecycle hooks
type (
	Authored interface {
		Author() string
	}
	Initializer interface {
		Initialize(conf *core.Config, b *Backend)
	}
	Destroyer interface {
		Destroy(b *Backend)
	}
	GroupsProvider interface {
		Groups(b *Backend) core.Bitfield
	}
	FiltersProvider interface {
		Filters(b *Backend) core.Bitfield
	}
	RolesProvider interface {
		Roles(b *Backend) core.Bitfield
	}
	MimeTypesProvider interface {
		MimeTypes(b *Backend) []string
	}
	ParallelProvider interface {
		SupportsParallelization(b *Backend) bool
	}
	JobStarter interface {
		StartJob(b *Backend, job *Job)
	}
	JobStopper interface {
		StopJob(b *Backend, job *Job)
	}
	JobResetter interface {
		ResetJob(b *Backend, job *Job)
	}
)

// Optional operations
type (
	Canceller interface {
		Cancel(ctx context.Context, b *Backend, job *Job)
	}
	PackageDownloader interface {
		DownloadPackages(ctx context.Context, b *Backend, job *Job, packageIDs []string, directory string)
	}
	CategoriesGetter interface {
		GetCategories(ctx context.Context, b *Backend, job *Job)
	}
	DependsOner interface {
		DependsOn(ctx context.Context, b *Backend, job *Job, filters core.Bitfield, packageIDs []string, recursive bool)
	}
	DetailsGetter interface {
		GetDetails(ctx context.Context, b *Backend, job *Job, packageIDs []string)
	}
	LocalDetailsGetter interface {
		GetDetailsLocal(ctx context.Context, b *Backend, job *Job, files []string)
	}
	LocalFilesGetter interface {
		GetFilesLocal(ctx context.Context, b *Backend, job *Job, files []string)
	}
	DistroUpgradesGetter interface {
		GetDistroUpgrades(ctx context.Context, b *Backend, job *Job)
	}
	FilesGetter interface {
		GetFiles(ctx context.Context, b *Backend, job *Job, packageIDs []string)
	}
	PackagesGetter interface {
		GetPackages(ctx context.Context, b *Backend, job *Job, filters core.Bitfield)
	}
	RepoLister interface {
		GetRepoList(ctx context.Context, b *Backend, job *Job, filters core.Bitfield)
	}
	RequiredByer interface {
		RequiredBy(ctx context.Context, b *Backend, job *Job, filters core.Bitfield, packageIDs []string, recursive bool)
	}
	UpdateDetailGetter interface {
		GetUpdateDetail(ctx context.Context, b *Backend, job *Job, packageIDs []string)
	}
	UpdatesGetter interface {
		GetUpdates(ctx context.Context, b *Backend, job *Job, filters core.Bitfield)
	}
	FileInstaller interface {
		InstallFiles(ctx context.Context, b *Backend, job *Job, transactionFlags core.Bitfield, fullPaths []string)
	}
	PackageInstaller interface {
		InstallPackages(ctx context.Context, b *Backend, job *Job, transactionFlags core.Bitfield, packageIDs []string)
	}
	SignatureInstaller interface {
		InstallSignature(ctx context.Context, b *Backend, job *Job, sigType core.SigType, keyID, packageID string)
	}
	CacheRefresher interface {
		RefreshCache(ctx context.Context, b *Backend, job *Job, force bool)
	}
	PackageRemover interface {
		RemovePackages(ctx context.Context, b *Backend, job *Job, transactionFlags core.Bitfield, packageIDs []string, allowDeps, autoremove bool)
	}
	RepoEnabler interface {
		RepoEnable(ctx context.Context, b *Backend, job *Job, repoID string, enabled bool)
	}
	RepoDataSetter interface {
		RepoSetData(ctx context.Context, b *Backend, job *Job, repoID, parameter, value string)
	}
	RepoRemover interface {
		RepoRemove(ctx context.Context, b *Backend, job *Job, transactionFlags core.Bitfield, repoID string, autoremove bool)
	}
	Resolver interface {
		Resolve(ctx context.Context, b *Backend, job *Job, filters core.Bitfield, packages []string)
	}
	DetailsSearcher interface {
		SearchDetails(ctx context.Context, b *Backend, job *Job, filters core.Bitfield, values []string)
	}
	FileSearcher interface {
		SearchFiles(ctx context.Context, b *Backend, job *Job, filters core.Bitfield, values []string)
	}
	GroupSearcher interface {
		SearchGroups(ctx context.Context, b *Backend, job *Job, filters core.Bitfield, values []string)
	}
	NameSearcher interface {
		SearchNames(ctx context.Context, b *Backend, job *Job, filters core.Bitfield, values []string)
	}
	PackageUpdater interface {
		UpdatePackages(ctx context.Context, b *Backend, job *Job, transactionFlags core.Bitfield, packageIDs []string)
	}
	ProvidesFinder interface {
		WhatProvides(ctx context.Context, b *Backend, job *Job, filters core.Bitfield, values []string)
	}
	SystemRepairer interface {
		RepairSystem(ctx context.Context, b *Backend, job *Job, transactionFlags core.Bitfield)
	}
)

// bind builds a capability descriptor from a loaded unit. Any optional
// interface the unit lacks leaves its slot nil; only a missing description
// fails the bind.
func bind(unit any) (*Desc, error) {
	mod, ok := unit.(Module)
	if !ok || mod == nil {
		return nil, ErrNoDescription
	}

	desc := &Desc{}

	if m, ok := unit.(Initializer); ok {
		desc.Initialize = m.Initialize
	}
	if m, ok := unit.(Destroyer); ok {
		desc.Destroy = m.Destroy
	}
	if m, ok := unit.(GroupsProvider); ok {
		desc.GetGroups = m.Groups
	}
	if m, ok := unit.(FiltersProvider); ok {
		desc.GetFilters = m.Filters
	}
	if m, ok := unit.(RolesProvider); ok {
		desc.GetRoles = m.Roles
	}
	if m, ok := unit.(MimeTypesProvider); ok {
		desc.GetMimeTypes = m.MimeTypes
	}
	if m, ok := unit.(ParallelProvider); ok {
		desc.SupportsParallelization = m.SupportsParallelization
	}
	if m, ok := unit.(JobStarter); ok {
		desc.JobStart = m.StartJob
	}
	if m, ok := unit.(JobStopper); ok {
		desc.JobStop = m.StopJob
	}
	if m, ok := unit.(JobResetter); ok {
		desc.JobReset = m.ResetJob
	}
	if m, ok := unit.(Canceller); ok {
		desc.Cancel = m.Cancel
	}
	if m, ok := unit.(PackageDownloader); ok {
		desc.DownloadPackages = m.DownloadPackages
	}
	if m, ok := unit.(CategoriesGetter); ok {
		desc.GetCategories = m.GetCategories
	}
	if m, ok := unit.(DependsOner); ok {
		desc.DependsOn = m.DependsOn
	}
	if m, ok := unit.(DetailsGetter); ok {
		desc.GetDetails = m.GetDetails
	}
	if m, ok := unit.(LocalDetailsGetter); ok {
		desc.GetDetailsLocal = m.GetDetailsLocal
	}
	if m, ok := unit.(LocalFilesGetter); ok {
		desc.GetFilesLocal = m.GetFilesLocal
	}
	if m, ok := unit.(DistroUpgradesGetter); ok {
		desc.GetDistroUpgrades = m.GetDistroUpgrades
	}
	if m, ok := unit.(FilesGetter); ok {
		desc.GetFiles = m.GetFiles
	}
	if m, ok := unit.(PackagesGetter); ok {
		desc.GetPackages = m.GetPackages
	}
	if m, ok := unit.(RepoLister); ok {
		desc.GetRepoList = m.GetRepoList
	}
	if m, ok := unit.(RequiredByer); ok {
		desc.RequiredBy = m.RequiredBy
	}
	if m, ok := unit.(UpdateDetailGetter); ok {
		desc.GetUpdateDetail = m.GetUpdateDetail
	}
	if m, ok := unit.(UpdatesGetter); ok {
		desc.GetUpdates = m.GetUpdates
	}
	if m, ok := unit.(FileInstaller); ok {
		desc.InstallFiles = m.InstallFiles
	}
	if m, ok := unit.(PackageInstaller); ok {
		desc.InstallPackages = m.InstallPackages
	}
	if m, ok := unit.(SignatureInstaller); ok {
		desc.InstallSignature = m.InstallSignature
	}
	if m, ok := unit.(CacheRefresher); ok {
		desc.RefreshCache = m.RefreshCache
	}
	if m, ok := unit.(PackageRemover); ok {
		desc.RemovePackages = m.RemovePackages
	}
	if m, ok := unit.(RepoEnabler); ok {
		desc.RepoEnable = m.RepoEnable
	}
	if m, ok := unit.(RepoDataSetter); ok {
		desc.RepoSetData = m.RepoSetData
	}
	if m, ok := unit.(RepoRemover); ok {
		desc.RepoRemove = m.RepoRemove
	}
	if m, ok := unit.(Resolver); ok {
		desc.Resolve = m.Resolve
	}
	if m, ok := unit.(DetailsSearcher); ok {
		desc.SearchDetails = m.SearchDetails
	}
	if m, ok := unit.(FileSearcher); ok {
		desc.SearchFiles = m.SearchFiles
	}
	if m, ok := unit.(GroupSearcher); ok {
		desc.SearchGroups = m.SearchGroups
	}
	if m, ok := unit.(NameSearcher); ok {
		desc.SearchNames = m.SearchNames
	}
	if m, ok := unit.(PackageUpdater); ok {
		desc.UpdatePackages = m.UpdatePackages
	}
	if m, ok := unit.(ProvidesFinder); ok {
		desc.WhatProvides = m.WhatProvides
	}
	if m, ok := unit.(SystemRepairer); ok {
		desc.RepairSystem = m.RepairSystem
	}

	// static strings are copied so they outlive the unit
	if m, ok := unit.(Authored); ok {
		desc.Author = m.Author()
	}
	desc.Description = mod.Description()

	return desc, nil
}

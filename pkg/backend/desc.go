// pkg/backend/desc.go
package backend

import (
	"context"

	"github.com/arc-language/upkgd/pkg/core"
)

// Handler shapes shared by several operation slots. Every operation handler
// receives the job's cancellation context and must return promptly once it
// is done; long-running work should hand off to Backend.Thread and poll ctx
// at safe points.
type (
	// JobFunc is a job lifecycle hook
	JobFunc func(b *Backend, job *Job)

	// ContextFunc handles an operation without arguments
	ContextFunc func(ctx context.Context, b *Backend, job *Job)

	// ListFunc handles an operation over package ids or file paths
	ListFunc func(ctx context.Context, b *Backend, job *Job, items []string)

	// FilterFunc handles an operation taking only filters
	FilterFunc func(ctx context.Context, b *Backend, job *Job, filters core.Bitfield)

	// FilterValuesFunc handles resolve, searches and what-provides
	FilterValuesFunc func(ctx context.Context, b *Backend, job *Job, filters core.Bitfield, values []string)

	// DependencyFunc handles depends-on and required-by
	DependencyFunc func(ctx context.Context, b *Backend, job *Job, filters core.Bitfield, packageIDs []string, recursive bool)

	// TransactionFunc handles a flagged transaction over package ids or files
	TransactionFunc func(ctx context.Context, b *Backend, job *Job, transactionFlags core.Bitfield, items []string)
)

// Desc is the capability descriptor of a loaded module: static metadata and
// one slot per operation. A nil slot means the operation is unsupported.
// It is written once at load time and read-only afterwards.
type Desc struct {
	Description string
	Author      string

	Initialize              func(conf *core.Config, b *Backend)
	Destroy                 func(b *Backend)
	GetGroups               func(b *Backend) core.Bitfield
	GetFilters              func(b *Backend) core.Bitfield
	GetRoles                func(b *Backend) core.Bitfield
	GetMimeTypes            func(b *Backend) []string
	SupportsParallelization func(b *Backend) bool

	JobStart JobFunc
	JobStop  JobFunc
	JobReset JobFunc

	Cancel            ContextFunc
	DownloadPackages  func(ctx context.Context, b *Backend, job *Job, packageIDs []string, directory string)
	GetCategories     ContextFunc
	DependsOn         DependencyFunc
	GetDetails        ListFunc
	GetDetailsLocal   ListFunc
	GetFilesLocal     ListFunc
	GetDistroUpgrades ContextFunc
	GetFiles          ListFunc
	GetPackages       FilterFunc
	GetRepoList       FilterFunc
	RequiredBy        DependencyFunc
	GetUpdateDetail   ListFunc
	GetUpdates        FilterFunc
	InstallFiles      TransactionFunc
	InstallPackages   TransactionFunc
	InstallSignature  func(ctx context.Context, b *Backend, job *Job, sigType core.SigType, keyID, packageID string)
	RefreshCache      func(ctx context.Context, b *Backend, job *Job, force bool)
	RemovePackages    func(ctx context.Context, b *Backend, job *Job, transactionFlags core.Bitfield, packageIDs []string, allowDeps, autoremove bool)
	RepoEnable        func(ctx context.Context, b *Backend, job *Job, repoID string, enabled bool)
	RepoSetData       func(ctx context.Context, b *Backend, job *Job, repoID, parameter, value string)
	RepoRemove        func(ctx context.Context, b *Backend, job *Job, transactionFlags core.Bitfield, repoID string, autoremove bool)
	Resolve           FilterValuesFunc
	SearchDetails     FilterValuesFunc
	SearchFiles       FilterValuesFunc
	SearchGroups      FilterValuesFunc
	SearchNames       FilterValuesFunc
	UpdatePackages    TransactionFunc
	WhatProvides      FilterValuesFunc
	RepairSystem      func(ctx context.Context, b *Backend, job *Job, transactionFlags core.Bitfield)
}

// inferableRoles are the roles derived from slot presence
var inferableRoles = []core.Role{
	core.RoleCancel,
	core.RoleDependsOn,
	core.RoleGetDetails,
	core.RoleGetDetailsLocal,
	core.RoleGetFilesLocal,
	core.RoleGetFiles,
	core.RoleRequiredBy,
	core.RoleGetPackages,
	core.RoleWhatProvides,
	core.RoleGetUpdates,
	core.RoleGetUpdateDetail,
	core.RoleInstallPackages,
	core.RoleInstallSignature,
	core.RoleInstallFiles,
	core.RoleRefreshCache,
	core.RoleRemovePackages,
	core.RoleDownloadPackages,
	core.RoleResolve,
	core.RoleSearchDetails,
	core.RoleSearchFile,
	core.RoleSearchGroup,
	core.RoleSearchName,
	core.RoleUpdatePackages,
	core.RoleGetRepoList,
	core.RoleRepoEnable,
	core.RoleRepoSetData,
	core.RoleRepoRemove,
	core.RoleGetDistroUpgrades,
	core.RoleGetCategories,
	core.RoleRepairSystem,
}

// hasRole reports whether the slot serving role is present
func (d *Desc) hasRole(role core.Role) bool {
	switch role {
	case core.RoleCancel:
		return d.Cancel != nil
	case core.RoleDependsOn:
		return d.DependsOn != nil
	case core.RoleGetDetails:
		return d.GetDetails != nil
	case core.RoleGetDetailsLocal:
		return d.GetDetailsLocal != nil
	case core.RoleGetFilesLocal:
		return d.GetFilesLocal != nil
	case core.RoleGetFiles:
		return d.GetFiles != nil
	case core.RoleRequiredBy:
		return d.RequiredBy != nil
	case core.RoleGetPackages:
		return d.GetPackages != nil
	case core.RoleWhatProvides:
		return d.WhatProvides != nil
	case core.RoleGetUpdates:
		return d.GetUpdates != nil
	case core.RoleGetUpdateDetail:
		return d.GetUpdateDetail != nil
	case core.RoleInstallPackages:
		return d.InstallPackages != nil
	case core.RoleInstallSignature:
		return d.InstallSignature != nil
	case core.RoleInstallFiles:
		return d.InstallFiles != nil
	case core.RoleRefreshCache:
		return d.RefreshCache != nil
	case core.RoleRemovePackages:
		return d.RemovePackages != nil
	case core.RoleDownloadPackages:
		return d.DownloadPackages != nil
	case core.RoleResolve:
		return d.Resolve != nil
	case core.RoleSearchDetails:
		return d.SearchDetails != nil
	case core.RoleSearchFile:
		return d.SearchFiles != nil
	case core.RoleSearchGroup:
		return d.SearchGroups != nil
	case core.RoleSearchName:
		return d.SearchNames != nil
	case core.RoleUpdatePackages:
		return d.UpdatePackages != nil
	case core.RoleGetRepoList:
		return d.GetRepoList != nil
	case core.RoleRepoEnable:
		return d.RepoEnable != nil
	case core.RoleRepoSetData:
		return d.RepoSetData != nil
	case core.RoleRepoRemove:
		return d.RepoRemove != nil
	case core.RoleGetDistroUpgrades:
		return d.GetDistroUpgrades != nil
	case core.RoleGetCategories:
		return d.GetCategories != nil
	case core.RoleRepairSystem:
		return d.RepairSystem != nil
	case core.RoleGetOldTransactions:
		// served by the core from the history store
		return true
	}
	return false
}

// inferRoles derives the roles bitfield from slot presence
func (d *Desc) inferRoles() core.Bitfield {
	var roles core.Bitfield
	for _, role := range inferableRoles {
		if d.hasRole(role) {
			roles = roles.Add(role.Bit())
		}
	}
	return roles
}

// pkg/backend/dispatch.go
package backend

import (
	"context"
	"strings"

	"github.com/arc-language/upkgd/internal/metrics"
	"github.com/arc-language/upkgd/pkg/core"
)

// Dispatch entry points. Each checks that the backend is loaded, implements
// the role and that the job has a finished callback, stamps the role and
// arguments on the job and hands over to the module. Results, errors and the
// final finished signal arrive asynchronously through the job.

func filterParam(filters core.Bitfield) Param {
	return Param{Name: "filters", Value: core.Join[core.Filter](filters)}
}

func flagsParam(flags core.Bitfield) Param {
	return Param{Name: "transaction_flags", Value: core.Join[core.TransactionFlag](flags)}
}

func listParam(name string, values []string) Param {
	return Param{Name: name, Value: strings.Join(values, ";")}
}

// check enforces the dispatch preconditions for role
func (b *Backend) check(job *Job, role core.Role) *Desc {
	op := role.String()
	if job == nil {
		contractf(op, "nil job")
	}

	b.mu.RLock()
	loaded, desc, name := b.loaded, b.desc, b.name
	b.mu.RUnlock()

	if !loaded || desc == nil {
		contractf(op, "backend not loaded")
	}
	if !desc.hasRole(role) {
		contractf(op, "not implemented by backend %s", name)
	}
	if !job.HasVFunc(SignalFinished) {
		contractf(op, "job %s has no finished callback", job.ID())
	}

	metrics.DispatchTotal.WithLabelValues(op).Inc()
	b.logger.Debug().Str("job", job.ID()).Str("role", op).Msg("dispatch")
	return desc
}

// prepare checks the preconditions and stamps role and arguments on the job
func (b *Backend) prepare(job *Job, role core.Role, params ...Param) *Desc {
	desc := b.check(job, role)
	job.SetRole(role)
	job.SetParameters(Parameters(params))
	return desc
}

// Cancel triggers the cancellation context of a running job and then asks
// the module to stop its in-flight work. The job keeps its role.
// Cancellation is cooperative.
func (b *Backend) Cancel(job *Job) {
	desc := b.check(job, core.RoleCancel)
	job.cancelContext()
	desc.Cancel(job.Context(), b, job)
}

func (b *Backend) DownloadPackages(job *Job, packageIDs []string, directory string) {
	desc := b.prepare(job, core.RoleDownloadPackages,
		listParam("package_ids", packageIDs),
		Param{Name: "directory", Value: directory})
	desc.DownloadPackages(job.Context(), b, job, packageIDs, directory)
}

func (b *Backend) GetCategories(job *Job) {
	desc := b.prepare(job, core.RoleGetCategories)
	desc.GetCategories(job.Context(), b, job)
}

func (b *Backend) DependsOn(job *Job, filters core.Bitfield, packageIDs []string, recursive bool) {
	desc := b.prepare(job, core.RoleDependsOn,
		filterParam(filters),
		listParam("package_ids", packageIDs),
		Param{Name: "recursive", Value: recursive})
	desc.DependsOn(job.Context(), b, job, filters, packageIDs, recursive)
}

func (b *Backend) GetDetails(job *Job, packageIDs []string) {
	desc := b.prepare(job, core.RoleGetDetails, listParam("package_ids", packageIDs))
	desc.GetDetails(job.Context(), b, job, packageIDs)
}

func (b *Backend) GetDetailsLocal(job *Job, files []string) {
	desc := b.prepare(job, core.RoleGetDetailsLocal, listParam("files", files))
	desc.GetDetailsLocal(job.Context(), b, job, files)
}

func (b *Backend) GetFilesLocal(job *Job, files []string) {
	desc := b.prepare(job, core.RoleGetFilesLocal, listParam("files", files))
	desc.GetFilesLocal(job.Context(), b, job, files)
}

func (b *Backend) GetDistroUpgrades(job *Job) {
	desc := b.prepare(job, core.RoleGetDistroUpgrades)
	desc.GetDistroUpgrades(job.Context(), b, job)
}

func (b *Backend) GetFiles(job *Job, packageIDs []string) {
	desc := b.prepare(job, core.RoleGetFiles, listParam("package_ids", packageIDs))
	desc.GetFiles(job.Context(), b, job, packageIDs)
}

func (b *Backend) RequiredBy(job *Job, filters core.Bitfield, packageIDs []string, recursive bool) {
	desc := b.prepare(job, core.RoleRequiredBy,
		filterParam(filters),
		listParam("package_ids", packageIDs),
		Param{Name: "recursive", Value: recursive})
	desc.RequiredBy(job.Context(), b, job, filters, packageIDs, recursive)
}

func (b *Backend) GetUpdateDetail(job *Job, packageIDs []string) {
	desc := b.prepare(job, core.RoleGetUpdateDetail, listParam("package_ids", packageIDs))
	desc.GetUpdateDetail(job.Context(), b, job, packageIDs)
}

func (b *Backend) GetUpdates(job *Job, filters core.Bitfield) {
	desc := b.prepare(job, core.RoleGetUpdates, filterParam(filters))
	desc.GetUpdates(job.Context(), b, job, filters)
}

func (b *Backend) InstallPackages(job *Job, transactionFlags core.Bitfield, packageIDs []string) {
	desc := b.prepare(job, core.RoleInstallPackages,
		flagsParam(transactionFlags),
		listParam("package_ids", packageIDs))
	job.SetTransactionFlags(transactionFlags)
	desc.InstallPackages(job.Context(), b, job, transactionFlags, packageIDs)
}

func (b *Backend) InstallSignature(job *Job, sigType core.SigType, keyID, packageID string) {
	desc := b.prepare(job, core.RoleInstallSignature,
		Param{Name: "type", Value: sigType.String()},
		Param{Name: "key_id", Value: keyID},
		Param{Name: "package_id", Value: packageID})
	desc.InstallSignature(job.Context(), b, job, sigType, keyID, packageID)
}

func (b *Backend) InstallFiles(job *Job, transactionFlags core.Bitfield, fullPaths []string) {
	desc := b.prepare(job, core.RoleInstallFiles,
		flagsParam(transactionFlags),
		listParam("full_paths", fullPaths))
	job.SetTransactionFlags(transactionFlags)
	desc.InstallFiles(job.Context(), b, job, transactionFlags, fullPaths)
}

func (b *Backend) RefreshCache(job *Job, force bool) {
	desc := b.prepare(job, core.RoleRefreshCache, Param{Name: "force", Value: force})
	desc.RefreshCache(job.Context(), b, job, force)
}

func (b *Backend) RemovePackages(job *Job, transactionFlags core.Bitfield, packageIDs []string, allowDeps, autoremove bool) {
	desc := b.prepare(job, core.RoleRemovePackages,
		flagsParam(transactionFlags),
		listParam("package_ids", packageIDs),
		Param{Name: "allow_deps", Value: allowDeps},
		Param{Name: "autoremove", Value: autoremove})
	job.SetTransactionFlags(transactionFlags)
	desc.RemovePackages(job.Context(), b, job, transactionFlags, packageIDs, allowDeps, autoremove)
}

func (b *Backend) Resolve(job *Job, filters core.Bitfield, packages []string) {
	desc := b.prepare(job, core.RoleResolve, filterParam(filters), listParam("packages", packages))
	desc.Resolve(job.Context(), b, job, filters, packages)
}

func (b *Backend) SearchDetails(job *Job, filters core.Bitfield, values []string) {
	desc := b.prepare(job, core.RoleSearchDetails, filterParam(filters), listParam("values", values))
	desc.SearchDetails(job.Context(), b, job, filters, values)
}

func (b *Backend) SearchFiles(job *Job, filters core.Bitfield, values []string) {
	desc := b.prepare(job, core.RoleSearchFile, filterParam(filters), listParam("values", values))
	desc.SearchFiles(job.Context(), b, job, filters, values)
}

func (b *Backend) SearchGroups(job *Job, filters core.Bitfield, values []string) {
	desc := b.prepare(job, core.RoleSearchGroup, filterParam(filters), listParam("values", values))
	desc.SearchGroups(job.Context(), b, job, filters, values)
}

func (b *Backend) SearchNames(job *Job, filters core.Bitfield, values []string) {
	desc := b.prepare(job, core.RoleSearchName, filterParam(filters), listParam("values", values))
	desc.SearchNames(job.Context(), b, job, filters, values)
}

func (b *Backend) UpdatePackages(job *Job, transactionFlags core.Bitfield, packageIDs []string) {
	desc := b.prepare(job, core.RoleUpdatePackages,
		flagsParam(transactionFlags),
		listParam("package_ids", packageIDs))
	job.SetTransactionFlags(transactionFlags)
	desc.UpdatePackages(job.Context(), b, job, transactionFlags, packageIDs)
}

func (b *Backend) GetRepoList(job *Job, filters core.Bitfield) {
	desc := b.prepare(job, core.RoleGetRepoList, filterParam(filters))
	desc.GetRepoList(job.Context(), b, job, filters)
}

func (b *Backend) RepoEnable(job *Job, repoID string, enabled bool) {
	desc := b.prepare(job, core.RoleRepoEnable,
		Param{Name: "repo_id", Value: repoID},
		Param{Name: "enabled", Value: enabled})
	desc.RepoEnable(job.Context(), b, job, repoID, enabled)
}

func (b *Backend) RepoSetData(job *Job, repoID, parameter, value string) {
	desc := b.prepare(job, core.RoleRepoSetData,
		Param{Name: "repo_id", Value: repoID},
		Param{Name: "parameter", Value: parameter},
		Param{Name: "value", Value: value})
	desc.RepoSetData(job.Context(), b, job, repoID, parameter, value)
}

func (b *Backend) RepoRemove(job *Job, transactionFlags core.Bitfield, repoID string, autoremove bool) {
	desc := b.prepare(job, core.RoleRepoRemove,
		flagsParam(transactionFlags),
		Param{Name: "repo_id", Value: repoID},
		Param{Name: "autoremove", Value: autoremove})
	job.SetTransactionFlags(transactionFlags)
	desc.RepoRemove(job.Context(), b, job, transactionFlags, repoID, autoremove)
}

func (b *Backend) WhatProvides(job *Job, filters core.Bitfield, values []string) {
	desc := b.prepare(job, core.RoleWhatProvides, filterParam(filters), listParam("values", values))
	desc.WhatProvides(job.Context(), b, job, filters, values)
}

func (b *Backend) GetPackages(job *Job, filters core.Bitfield) {
	desc := b.prepare(job, core.RoleGetPackages, filterParam(filters))
	desc.GetPackages(job.Context(), b, job, filters)
}

func (b *Backend) RepairSystem(job *Job, transactionFlags core.Bitfield) {
	desc := b.prepare(job, core.RoleRepairSystem, flagsParam(transactionFlags))
	job.SetTransactionFlags(transactionFlags)
	desc.RepairSystem(job.Context(), b, job, transactionFlags)
}

// GetOldTransactions replays up to number finished transactions from the
// history store, newest first. It is served here rather than by the module.
func (b *Backend) GetOldTransactions(job *Job, number int) {
	b.prepare(job, core.RoleGetOldTransactions, Param{Name: "number", Value: number})

	go func(ctx context.Context) {
		defer job.finishIfPending()
		if b.history == nil {
			return
		}
		job.SetStatus(core.StatusQuery)
		txs, err := b.history.List(ctx, number)
		if err != nil {
			job.ErrorCode(core.ErrorInternalError, "reading transaction history: %v", err)
			return
		}
		for _, tx := range txs {
			if ctx.Err() != nil {
				job.ErrorCode(core.ErrorTransactionCancelled, "cancelled")
				return
			}
			job.Transaction(tx)
		}
	}(job.Context())
}

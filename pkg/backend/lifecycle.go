// pkg/backend/lifecycle.go
package backend

import (
	"context"

	"github.com/arc-language/upkgd/pkg/core"
)

// StartJob attaches job to the backend and runs the module's job-start hook.
// Starting a started job logs a warning and does nothing.
func (b *Backend) StartJob(job *Job) {
	desc := b.activeDesc()
	if desc == nil {
		b.logger.Warn().Str("job", job.ID()).Msg("StartJob called on unloaded backend")
		return
	}

	job.setBackend(b)
	if job.Started() {
		b.logger.Warn().Str("job", job.ID()).Msg("trying to start an already started job again")
		return
	}
	job.setStarted(true)

	if desc.JobStart != nil {
		desc.JobStart(b, job)
	}
}

// StopJob detaches job from the backend and runs the job-stop hook. It runs
// for every started job, even when the job failed.
func (b *Backend) StopJob(job *Job) {
	desc := b.activeDesc()
	if desc == nil {
		b.logger.Warn().Str("job", job.ID()).Msg("StopJob called on unloaded backend")
		return
	}

	if !job.Started() {
		b.logger.Warn().Str("job", job.ID()).Msg("trying to stop job, but never started it before")
		return
	}
	job.setStarted(false)

	if desc.JobStop != nil {
		desc.JobStop(b, job)
	}
}

// ResetJob prepares a started job for another transaction. Without a
// job-reset hook the module's stop and start hooks run instead.
func (b *Backend) ResetJob(job *Job) {
	desc := b.activeDesc()
	if desc == nil {
		b.logger.Warn().Str("job", job.ID()).Msg("ResetJob called on unloaded backend")
		return
	}

	if !job.Started() {
		b.logger.Warn().Str("job", job.ID()).Msg("trying to reset job, but never started it before")
		return
	}

	if desc.JobReset != nil {
		desc.JobReset(b, job)
	} else {
		if desc.JobStop != nil {
			desc.JobStop(b, job)
		}
		if desc.JobStart != nil {
			desc.JobStart(b, job)
		}
	}

	job.reset()
	// still started, so still ours
	job.setBackend(b)
}

// recordTransaction stores a finished job, skipping history reads
func (b *Backend) recordTransaction(ctx context.Context, tx core.Transaction) {
	if b.history == nil || tx.Role == core.RoleGetOldTransactions {
		return
	}
	if err := b.history.Record(context.WithoutCancel(ctx), tx); err != nil {
		b.logger.Warn().Err(err).Str("job", tx.ID).Msg("failed to record transaction")
	}
}

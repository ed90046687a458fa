// pkg/backend/thread.go
package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arc-language/upkgd/internal/metrics"
	"github.com/arc-language/upkgd/pkg/core"
)

// ThreadFunc is the body of a job's worker goroutine. ctx is cancelled when
// the job is cancelled; the body should check it between units of work.
type ThreadFunc func(ctx context.Context, job *Job)

// ThreadStart takes the lock for role, marking the job as waiting if another
// invocation of the same role holds it. Different roles never contend.
func (b *Backend) ThreadStart(job *Job, role core.Role) {
	b.lockRole(job, role)
}

// lockRole acquires and returns the role's mutex. Callers release the
// returned mutex, not the table entry, which Close may have replaced.
func (b *Backend) lockRole(job *Job, role core.Role) *sync.Mutex {
	b.threadMu.Lock()
	mu, ok := b.threads[role]
	if !ok {
		mu = &sync.Mutex{}
		b.threads[role] = mu
	}
	b.threadMu.Unlock()

	if mu.TryLock() {
		return mu
	}

	job.SetStatus(core.StatusWaitingForLock)
	metrics.LockWaits.WithLabelValues(role.String()).Inc()
	start := time.Now()
	mu.Lock()
	metrics.LockWaitSeconds.WithLabelValues(role.String()).Observe(time.Since(start).Seconds())
	return mu
}

// ThreadStop releases the lock taken by ThreadStart
func (b *Backend) ThreadStop(job *Job, role core.Role) {
	b.threadMu.Lock()
	mu := b.threads[role]
	b.threadMu.Unlock()

	if mu == nil {
		contractf("ThreadStop", "no lock for role %s held by job %s", role, job.ID())
	}
	mu.Unlock()
}

// Thread runs fn for job on a new goroutine and returns immediately. Unless
// the module supports parallelization, runs of the same role are serialized.
// The job is finished when fn returns, if fn did not finish it itself.
func (b *Backend) Thread(job *Job, fn ThreadFunc) error {
	if fn == nil {
		return fmt.Errorf("thread for job %s: nil function", job.ID())
	}

	role := job.Role()
	serialize := !b.SupportsParallelization()

	go func() {
		defer job.finishIfPending()
		if serialize {
			mu := b.lockRole(job, role)
			defer mu.Unlock()
		}
		fn(job.Context(), job)
	}()

	return nil
}

package backend

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/upkgd/pkg/core"
)

var testModules atomic.Int64

// newTestBackend registers factory under a fresh name and returns an
// unloaded Backend configured to load it
func newTestBackend(t *testing.T, factory Factory) *Backend {
	t.Helper()
	name := fmt.Sprintf("test_module_%d", testModules.Add(1))
	Register(name, factory)

	conf := core.DefaultConfig()
	conf.Daemon.DefaultBackend = name
	conf.Daemon.LocalDir = t.TempDir()
	conf.Daemon.InstallDir = t.TempDir()
	return New(Options{Config: conf})
}

// loadTestBackend is newTestBackend followed by a successful Load
func loadTestBackend(t *testing.T, m Module) *Backend {
	t.Helper()
	b := newTestBackend(t, func() Module { return m })
	require.NoError(t, b.Load())
	t.Cleanup(func() { b.Close() })
	return b
}

// newTestJob returns a job with its finished callback wired to a channel
func newTestJob(t *testing.T) (*Job, <-chan core.Exit) {
	t.Helper()
	job := NewJob(context.Background())
	done := make(chan core.Exit, 1)
	job.SetVFunc(SignalFinished, func(_ *Job, data any) {
		done <- data.(core.Exit)
	})
	return job, done
}

func waitExit(t *testing.T, done <-chan core.Exit) core.Exit {
	t.Helper()
	select {
	case exit := <-done:
		return exit
	case <-time.After(2 * time.Second):
		t.Fatal("job did not finish")
		return core.ExitUnknown
	}
}

// recoverContract runs fn and returns the ContractError it panicked with
func recoverContract(t *testing.T, fn func()) (ce *ContractError) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a contract panic")
		var ok bool
		ce, ok = r.(*ContractError)
		require.True(t, ok, "panic value %T is not *ContractError", r)
	}()
	fn()
	return nil
}

type minimalModule struct{}

func (minimalModule) Description() string { return "minimal" }

// workModule runs SearchNames and Resolve on worker goroutines and records
// how many run at once. With gate set, each run announces itself on entered
// and waits for release.
type workModule struct {
	parallel bool

	entered chan core.Role
	release chan struct{}

	active    atomic.Int32
	maxActive atomic.Int32

	mu     sync.Mutex
	calls  []string
	cancel struct {
		called     bool
		sawToken   bool
		ctxErrored bool
	}
	initDuring bool
	initRoles  core.Bitfield
}

func newWorkModule(gate bool) *workModule {
	m := &workModule{}
	if gate {
		m.entered = make(chan core.Role, 8)
		m.release = make(chan struct{})
	}
	return m
}

func (m *workModule) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *workModule) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *workModule) Description() string { return "work" }
func (m *workModule) Author() string      { return "tests" }

func (m *workModule) Initialize(conf *core.Config, b *Backend) {
	m.initDuring = b.DuringInitialize()
	b.Implement(core.RoleGetFiles)
	m.initRoles = b.GetRoles()
	m.record("initialize")
}

func (m *workModule) Destroy(b *Backend)                      { m.record("destroy") }
func (m *workModule) SupportsParallelization(b *Backend) bool { return m.parallel }
func (m *workModule) StartJob(b *Backend, job *Job)           { m.record("start") }
func (m *workModule) StopJob(b *Backend, job *Job)            { m.record("stop") }

func (m *workModule) Cancel(ctx context.Context, b *Backend, job *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancel.called = true
	m.cancel.sawToken = job.IsCancelled()
	m.cancel.ctxErrored = ctx.Err() != nil
}

func (m *workModule) work(b *Backend, job *Job) {
	_ = b.Thread(job, func(ctx context.Context, job *Job) {
		n := m.active.Add(1)
		defer m.active.Add(-1)
		for {
			old := m.maxActive.Load()
			if n <= old || m.maxActive.CompareAndSwap(old, n) {
				break
			}
		}
		if m.entered != nil {
			m.entered <- job.Role()
			select {
			case <-m.release:
			case <-ctx.Done():
			}
		}
		job.Package(core.InfoAvailable, "hello;1.0;x86_64;main", "hello")
	})
}

func (m *workModule) SearchNames(ctx context.Context, b *Backend, job *Job, filters core.Bitfield, values []string) {
	m.work(b, job)
}

func (m *workModule) Resolve(ctx context.Context, b *Backend, job *Job, filters core.Bitfield, packages []string) {
	m.work(b, job)
}

// customRolesModule advertises only resolve while also searching names
type customRolesModule struct {
	workModule
}

func (m *customRolesModule) Roles(b *Backend) core.Bitfield {
	return core.Bits(core.RoleResolve)
}

// memHistory is an in-memory History
type memHistory struct {
	mu  sync.Mutex
	txs []core.Transaction
}

func (h *memHistory) Record(ctx context.Context, tx core.Transaction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.txs = append(h.txs, tx)
	return nil
}

func (h *memHistory) List(ctx context.Context, limit int) ([]core.Transaction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]core.Transaction, 0, len(h.txs))
	for i := len(h.txs) - 1; i >= 0; i-- {
		out = append(out, h.txs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (h *memHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.txs)
}

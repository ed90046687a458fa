// pkg/backend/backend.go
package backend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/arc-language/upkgd/internal/metrics"
	"github.com/arc-language/upkgd/pkg/core"
)

// History stores finished transactions for the get-old-transactions role
type History interface {
	Record(ctx context.Context, tx core.Transaction) error
	List(ctx context.Context, limit int) ([]core.Transaction, error)
}

// Notifier is told when a backend changes its repository list
type Notifier interface {
	RepoListChanged()
}

// Options configures a Backend
type Options struct {
	// Config supplies the backend identifier and is handed to Initialize
	Config *core.Config

	// Loader locates modules; defaults to the directories in Config
	Loader *Loader

	// Logger for backend and job events (default: discard)
	Logger *zerolog.Logger

	// History records finished jobs; nil disables get-old-transactions data
	History History

	// Network reports connectivity; nil means always online
	Network NetworkMonitor

	// Notifier receives repo-list change notifications (optional)
	Notifier Notifier
}

// Backend hosts one loaded backend module and its runtime state. The daemon
// creates one per process and passes it to every dispatch call.
type Backend struct {
	conf     *core.Config
	loader   *Loader
	logger   zerolog.Logger
	history  History
	network  NetworkMonitor
	notifier Notifier

	// loadMu serializes Load, Unload and Close
	loadMu sync.Mutex

	mu       sync.RWMutex
	name     string
	desc     *Desc
	handle   any
	loaded   bool
	userData any

	duringInitialize atomic.Bool

	rolesComputeMu sync.Mutex
	rolesMu        sync.Mutex
	roles          core.Bitfield
	rolesSet       bool

	eulaMu sync.RWMutex
	eulas  map[string]struct{}

	threadMu sync.Mutex
	threads  map[core.Role]*sync.Mutex

	watchMu     sync.Mutex
	watcher     *fsnotify.Watcher
	fileChanged FileChangedFunc
	watchDone   chan struct{}
}

// New creates an unloaded Backend
func New(opts Options) *Backend {
	conf := opts.Config
	if conf == nil {
		conf = core.DefaultConfig()
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "backend").Logger()
	}

	loader := opts.Loader
	if loader == nil {
		loader = NewLoader(conf.Daemon.LocalDir, conf.Daemon.InstallDir, logger)
	}

	return &Backend{
		conf:     conf,
		loader:   loader,
		logger:   logger,
		history:  opts.History,
		network:  opts.Network,
		notifier: opts.Notifier,
		eulas:    make(map[string]struct{}),
		threads:  make(map[core.Role]*sync.Mutex),
	}
}

// Load resolves the configured backend, binds its capability descriptor and
// runs its Initialize hook. Failures leave the Backend unloaded.
func (b *Backend) Load() error {
	b.loadMu.Lock()
	defer b.loadMu.Unlock()

	b.mu.RLock()
	loaded, current := b.loaded, b.name
	b.mu.RUnlock()
	if loaded {
		return &LoadError{Name: current, Err: ErrAlreadyLoaded}
	}

	name, err := b.conf.DefaultBackendName()
	if err != nil {
		metrics.BackendLoads.WithLabelValues("error").Inc()
		return &LoadError{Err: err}
	}
	name = CanonicalName(name)

	b.logger.Debug().Str("backend", name).Msg("trying to load")
	unit, source, err := b.loader.Open(name)
	if err != nil {
		metrics.BackendLoads.WithLabelValues("error").Inc()
		return &LoadError{Name: name, Path: source, Err: err}
	}

	desc, err := bind(unit)
	if err != nil {
		metrics.BackendLoads.WithLabelValues("error").Inc()
		return &LoadError{Name: name, Path: source, Err: err}
	}

	b.mu.Lock()
	b.name = name
	b.desc = desc
	b.handle = unit
	b.mu.Unlock()

	b.rolesMu.Lock()
	b.roles = 0
	b.rolesSet = false
	b.rolesMu.Unlock()

	if desc.Initialize != nil {
		b.duringInitialize.Store(true)
		desc.Initialize(b.conf, b)
		b.duringInitialize.Store(false)
	}

	b.mu.Lock()
	b.loaded = true
	b.mu.Unlock()

	metrics.BackendLoads.WithLabelValues("ok").Inc()
	b.logger.Info().Str("backend", name).Str("source", source).Msg("backend loaded")
	return nil
}

// Unload runs the module's Destroy hook and marks the Backend unloaded.
// Unloading an unloaded backend is a no-op.
func (b *Backend) Unload() error {
	b.loadMu.Lock()
	defer b.loadMu.Unlock()
	return b.unload()
}

func (b *Backend) unload() error {
	b.mu.RLock()
	loaded, desc := b.loaded, b.desc
	b.mu.RUnlock()

	if desc == nil {
		b.logger.Warn().Msg("not yet loaded backend, try Load()")
		return ErrNeverLoaded
	}
	if !loaded {
		b.logger.Debug().Msg("already closed (nonfatal)")
		return nil
	}

	if desc.Destroy != nil {
		desc.Destroy(b)
	}

	b.mu.Lock()
	b.loaded = false
	b.userData = nil
	b.mu.Unlock()

	b.logger.Info().Str("backend", b.name).Msg("backend unloaded")
	return nil
}

// Close tears the Backend down for process exit: it unloads the module,
// stops the file watch and releases the lock table, EULA set and module.
func (b *Backend) Close() error {
	b.loadMu.Lock()
	defer b.loadMu.Unlock()

	var errs []error
	b.mu.RLock()
	loaded := b.loaded
	b.mu.RUnlock()
	if loaded {
		if err := b.unload(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := b.stopWatch(); err != nil {
		errs = append(errs, err)
	}

	b.threadMu.Lock()
	b.threads = make(map[core.Role]*sync.Mutex)
	b.threadMu.Unlock()

	b.eulaMu.Lock()
	b.eulas = make(map[string]struct{})
	b.eulaMu.Unlock()

	b.mu.Lock()
	b.handle = nil
	b.mu.Unlock()

	return errors.Join(errs...)
}

// IsLoaded reports whether a module is loaded
func (b *Backend) IsLoaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// DuringInitialize reports whether the module's Initialize hook is running
func (b *Backend) DuringInitialize() bool {
	return b.duringInitialize.Load()
}

// activeDesc returns the descriptor while loaded or initializing
func (b *Backend) activeDesc() *Desc {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.loaded || b.duringInitialize.Load() {
		return b.desc
	}
	return nil
}

// Name returns the canonical identifier of the loaded backend
func (b *Backend) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.loaded {
		b.logger.Warn().Msg("Name called on unloaded backend")
		return ""
	}
	return b.name
}

// Description returns the cached module description
func (b *Backend) Description() string {
	desc := b.activeDesc()
	if desc == nil {
		b.logger.Warn().Msg("Description called on unloaded backend")
		return ""
	}
	return desc.Description
}

// Author returns the cached module author
func (b *Backend) Author() string {
	desc := b.activeDesc()
	if desc == nil {
		b.logger.Warn().Msg("Author called on unloaded backend")
		return ""
	}
	return desc.Author
}

// Config returns the configuration the backend was created with
func (b *Backend) Config() *core.Config {
	return b.conf
}

// Logger returns the backend logger for module use
func (b *Backend) Logger() zerolog.Logger {
	return b.logger
}

// UserData returns the module's private state
func (b *Backend) UserData() any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.userData
}

// SetUserData stores the module's private state; it is dropped on unload
func (b *Backend) SetUserData(data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userData = data
}

// RepoListChanged tells the notifier that repositories changed
func (b *Backend) RepoListChanged() bool {
	if b.activeDesc() == nil {
		b.logger.Warn().Msg("RepoListChanged called on unloaded backend")
		return false
	}
	if b.notifier != nil {
		b.notifier.RepoListChanged()
	}
	return true
}

// Package dummy is a catalog-backed backend module. It implements every
// operation against an in-memory package catalog loaded from TOML files, and
// is used for development, tests and as the reference module for authors.
package dummy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	"github.com/arc-language/upkgd/pkg/backend"
	"github.com/arc-language/upkgd/pkg/catalog"
	"github.com/arc-language/upkgd/pkg/core"
	"github.com/arc-language/upkgd/pkg/debfile"
	"github.com/arc-language/upkgd/pkg/platform"
	"github.com/arc-language/upkgd/pkg/rpmfile"
)

// Name is the identifier the module registers under
const Name = "dummy"

func init() {
	backend.Register(Name, func() backend.Module { return New() })
}

// Options are read from backends.dummy in the daemon config
type Options struct {
	CatalogDir    string        `mapstructure:"catalog_dir"`
	CatalogURL    string        `mapstructure:"catalog_url"`
	CatalogBranch string        `mapstructure:"catalog_branch"`
	Root          string        `mapstructure:"root"` // install root for local files, empty to skip extraction
	Arch          string        `mapstructure:"arch"`
	Parallel      bool          `mapstructure:"parallel"`
	Delay         time.Duration `mapstructure:"delay"` // per work step
}

// DefaultOptions returns the options used for unset keys
func DefaultOptions() Options {
	dir := "/var/cache/upkgd"
	if cache, err := os.UserCacheDir(); err == nil {
		dir = filepath.Join(cache, "upkgd")
	}
	return Options{
		CatalogDir: filepath.Join(dir, "catalog"),
		Arch:       platform.PackageArch(runtime.GOARCH),
	}
}

// DecodeOptions decodes the opaque option map over the defaults
func DecodeOptions(raw map[string]any) (Options, error) {
	opts := DefaultOptions()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(raw); err != nil {
		return opts, fmt.Errorf("decoding %s options: %w", Name, err)
	}
	return opts, nil
}

// state is the per-load module data kept in Backend.UserData
type state struct {
	opts    Options
	catalog *catalog.Catalog
	logger  zerolog.Logger
	err     error

	mu   sync.Mutex
	keys map[string]struct{}
}

func stateOf(b *backend.Backend) *state {
	s, _ := b.UserData().(*state)
	return s
}

// step waits out one unit of simulated work, returning early on cancel
func (s *state) step(ctx context.Context) error {
	if s.opts.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.opts.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Module is the dummy backend; its state lives in the Backend
type Module struct{}

// New creates the module
func New() *Module {
	return &Module{}
}

func (m *Module) Description() string { return "Catalog-backed dummy backend" }
func (m *Module) Author() string      { return "upkgd developers" }

// Initialize decodes the options and loads the catalog if it was synced
func (m *Module) Initialize(conf *core.Config, b *backend.Backend) {
	logger := b.Logger().With().Str("module", Name).Logger()
	s := &state{logger: logger, keys: make(map[string]struct{})}
	b.SetUserData(s)

	opts, err := DecodeOptions(conf.BackendOptions(Name))
	if err != nil {
		logger.Error().Err(err).Msg("invalid options")
		s.err = err
		return
	}
	s.opts = opts
	s.catalog = catalog.New(opts.CatalogDir)

	switch err := s.catalog.Load(); {
	case errors.Is(err, catalog.ErrNotSynced):
		logger.Info().Str("dir", opts.CatalogDir).Msg("no catalog yet, refresh the cache")
	case err != nil:
		logger.Warn().Err(err).Msg("failed to load catalog")
	default:
		err := b.WatchFile(opts.CatalogDir, func(b *backend.Backend) {
			if s := stateOf(b); s != nil && s.catalog != nil {
				if err := s.catalog.Load(); err != nil {
					s.logger.Warn().Err(err).Msg("failed to reload catalog")
				}
			}
		})
		if err != nil {
			logger.Debug().Err(err).Msg("catalog not watched")
		}
	}
}

func (m *Module) Destroy(b *backend.Backend) {
	if s := stateOf(b); s != nil {
		s.logger.Debug().Msg("destroy")
	}
	b.SetUserData(nil)
}

func (m *Module) Groups(b *backend.Backend) core.Bitfield {
	groups := core.Bits(core.GroupOther)
	s := stateOf(b)
	if s == nil || s.catalog == nil {
		return groups
	}
	for _, p := range s.catalog.Packages(nil) {
		if g := core.GroupFromString(p.Group); g != core.GroupUnknown {
			groups = groups.Add(g.Bit())
		}
	}
	return groups
}

func (m *Module) Filters(b *backend.Backend) core.Bitfield {
	return core.Bits(
		core.FilterInstalled, core.FilterNotInstalled,
		core.FilterDevelopment, core.FilterNotDevelopment,
		core.FilterArch, core.FilterNotArch,
		core.FilterSource, core.FilterNotSource,
	)
}

func (m *Module) MimeTypes(b *backend.Backend) []string {
	return []string{debfile.MimeType, rpmfile.MimeType}
}

func (m *Module) SupportsParallelization(b *backend.Backend) bool {
	s := stateOf(b)
	return s != nil && s.opts.Parallel
}

func (m *Module) StartJob(b *backend.Backend, job *backend.Job) {
	logger := job.Logger()
	logger.Debug().Msg("job start")
}

func (m *Module) StopJob(b *backend.Backend, job *backend.Job) {
	logger := job.Logger()
	logger.Debug().Msg("job stop")
}

// Cancel runs after the job's context was cancelled; the worker sees it at
// its next step
func (m *Module) Cancel(ctx context.Context, b *backend.Backend, job *backend.Job) {
	job.SetStatus(core.StatusCancel)
}

// opError carries the error code a failed operation reports
type opError struct {
	code core.ErrorCode
	msg  string
}

func (e *opError) Error() string { return e.msg }

func fail(code core.ErrorCode, format string, args ...any) error {
	return &opError{code: code, msg: fmt.Sprintf(format, args...)}
}

// report turns an operation error into the job's error code
func report(job *backend.Job, err error) {
	var oe *opError
	switch {
	case errors.As(err, &oe):
		job.ErrorCode(oe.code, "%s", oe.msg)
	case errors.Is(err, context.Canceled):
		job.ErrorCode(core.ErrorTransactionCancelled, "the task was stopped successfully")
	case errors.Is(err, catalog.ErrPackageNotFound):
		job.ErrorCode(core.ErrorPackageNotFound, "%v", err)
	case errors.Is(err, catalog.ErrRepoNotFound):
		job.ErrorCode(core.ErrorRepoNotFound, "%v", err)
	case errors.Is(err, catalog.ErrNotSynced):
		job.ErrorCode(core.ErrorNoCache, "%v", err)
	default:
		job.ErrorCode(core.ErrorInternalError, "%v", err)
	}
}

// run executes fn for job on a worker goroutine
func (m *Module) run(b *backend.Backend, job *backend.Job, status core.Status, fn func(ctx context.Context, s *state) error) {
	err := b.Thread(job, func(ctx context.Context, job *backend.Job) {
		s := stateOf(b)
		switch {
		case s == nil:
			job.ErrorCode(core.ErrorFailedInitialization, "backend not initialized")
			return
		case s.err != nil:
			job.ErrorCode(core.ErrorFailedConfigParsing, "%v", s.err)
			return
		}

		job.SetStatus(status)
		job.SetAllowCancel(true)
		if err := fn(ctx, s); err != nil {
			report(job, err)
			return
		}
		job.SetPercentage(100)
	})
	if err != nil {
		job.ErrorCode(core.ErrorCreateThreadFailed, "%v", err)
		job.Finished()
	}
}

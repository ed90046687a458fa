// upkgd.go
package upkgd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/arc-language/upkgd/backends/dummy"
	"github.com/arc-language/upkgd/internal/metrics"
	"github.com/arc-language/upkgd/pkg/backend"
	"github.com/arc-language/upkgd/pkg/core"
	"github.com/arc-language/upkgd/pkg/history"
)

// Options configures a Daemon
type Options struct {
	// ConfigPath is read when Config is nil; empty uses defaults and env
	ConfigPath string
	Config     *core.Config

	// Logger for daemon events (default: discard)
	Logger *zerolog.Logger

	Network  backend.NetworkMonitor
	Notifier backend.Notifier
}

// Daemon owns the process-wide Backend and the stores around it
type Daemon struct {
	conf    *core.Config
	logger  zerolog.Logger
	history *history.Store
	backend *backend.Backend
	metrics *http.Server
}

// New builds the daemon: it opens the history store, creates the Backend and
// loads the configured backend module
func New(opts Options) (*Daemon, error) {
	conf := opts.Config
	if conf == nil {
		var err error
		conf, err = core.LoadConfig(opts.ConfigPath)
		if err != nil {
			return nil, &Error{Op: "load config", Err: err}
		}
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	d := &Daemon{conf: conf, logger: logger}

	var hist backend.History
	if conf.History.Path != "" {
		store, err := history.Open(conf.History.Path)
		if err != nil {
			return nil, &Error{Op: "open history", Err: err}
		}
		d.history = store
		hist = store
	}

	d.backend = backend.New(backend.Options{
		Config:   conf,
		Logger:   &logger,
		History:  hist,
		Network:  opts.Network,
		Notifier: opts.Notifier,
	})

	if err := d.backend.Load(); err != nil {
		if d.history != nil {
			d.history.Close()
		}
		name, _ := conf.DefaultBackendName()
		return nil, &Error{Op: "load", Backend: name, Err: err}
	}

	if conf.Metrics.Enabled {
		d.serveMetrics(conf.Metrics.Listen)
	}
	return d, nil
}

func (d *Daemon) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	d.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := d.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error().Err(err).Str("listen", addr).Msg("metrics server stopped")
		}
	}()
	d.logger.Info().Str("listen", addr).Msg("serving metrics")
}

// Backend returns the loaded backend
func (d *Daemon) Backend() *backend.Backend {
	return d.backend
}

// Config returns the daemon configuration
func (d *Daemon) Config() *core.Config {
	return d.conf
}

// Supports returns ErrNotSupported unless the backend implements role
func (d *Daemon) Supports(role core.Role) error {
	if !d.backend.IsImplemented(role) {
		return &Error{Op: role.String(), Backend: d.backend.Name(), Err: ErrNotSupported}
	}
	return nil
}

// Execute runs one transaction to completion: it starts job, calls dispatch
// to hand it to an entry point and waits for the finished signal. Execute
// owns the job's finished callback. When ctx ends first the job is cancelled
// and Execute still waits for it to finish.
func (d *Daemon) Execute(ctx context.Context, job *backend.Job, dispatch func(b *backend.Backend, job *backend.Job)) (core.Exit, error) {
	done := make(chan core.Exit, 1)
	job.SetVFunc(backend.SignalFinished, func(_ *backend.Job, data any) {
		exit, _ := data.(core.Exit)
		done <- exit
	})

	d.backend.StartJob(job)
	defer d.backend.StopJob(job)

	dispatch(d.backend, job)

	var exit core.Exit
	select {
	case exit = <-done:
	case <-ctx.Done():
		if d.backend.IsImplemented(core.RoleCancel) {
			d.backend.Cancel(job)
		}
		exit = <-done
	}

	switch exit {
	case core.ExitSuccess:
		return exit, nil
	case core.ExitCancelled:
		return exit, &Error{Op: job.Role().String(), Backend: d.backend.Name(), Err: context.Canceled}
	}
	if ec := job.Error(); ec != nil {
		return exit, &Error{Op: job.Role().String(), Backend: d.backend.Name(), Err: fmt.Errorf("%w: %v", ErrJobFailed, ec)}
	}
	return exit, &Error{Op: job.Role().String(), Backend: d.backend.Name(), Err: fmt.Errorf("%w: exit %s", ErrJobFailed, exit)}
}

// History lists recorded transactions, newest first
func (d *Daemon) History(ctx context.Context, limit int) ([]core.Transaction, error) {
	if d.history == nil {
		return nil, nil
	}
	return d.history.List(ctx, limit)
}

// Close unloads the backend and releases the stores
func (d *Daemon) Close() error {
	var errs []error
	if d.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.backend.Close(); err != nil {
		errs = append(errs, err)
	}
	if d.history != nil {
		if err := d.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Package metrics provides Prometheus metrics for the upkgd daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BackendLoads counts Load attempts by result (ok, error)
	BackendLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upkgd_backend_loads_total",
			Help: "Total number of backend load attempts",
		},
		[]string{"result"},
	)

	// DispatchTotal counts operations handed to the backend module
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upkgd_dispatch_total",
			Help: "Total number of dispatched operations",
		},
		[]string{"role"},
	)

	// LockWaits counts jobs that had to wait for a per-role lock
	LockWaits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upkgd_lock_waits_total",
			Help: "Total number of jobs that waited for a role lock",
		},
		[]string{"role"},
	)

	LockWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upkgd_lock_wait_duration_seconds",
			Help:    "Time spent waiting for a role lock",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"role"},
	)

	// JobsFinished counts finished jobs by role and exit
	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upkgd_jobs_finished_total",
			Help: "Total number of finished jobs",
		},
		[]string{"role", "exit"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

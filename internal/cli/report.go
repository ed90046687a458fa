// internal/cli/report.go
package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/arc-language/upkgd/pkg/backend"
	"github.com/arc-language/upkgd/pkg/core"
)

// reporter prints job signals to the console
type reporter struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	verbose bool
}

func newReporter(out, errOut io.Writer, verbose bool) *reporter {
	return &reporter{out: out, errOut: errOut, verbose: verbose}
}

func (r *reporter) printf(w io.Writer, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(w, format, args...)
}

// attach registers a callback for every result signal except finished,
// which belongs to whoever runs the job
func (r *reporter) attach(job *backend.Job) {
	job.SetVFunc(backend.SignalPackage, func(_ *backend.Job, data any) {
		p := data.(backend.Package)
		r.printf(r.out, "%-12s %-40s %s\n", p.Info, p.PackageID, p.Summary)
	})
	job.SetVFunc(backend.SignalDetails, func(_ *backend.Job, data any) {
		d := data.(backend.Details)
		r.printf(r.out, "Package:     %s\nSummary:     %s\nLicense:     %s\nGroup:       %s\nURL:         %s\nSize:        %d\n\n%s\n\n",
			d.PackageID, d.Summary, d.License, d.Group, d.URL, d.Size, d.Description)
	})
	job.SetVFunc(backend.SignalFiles, func(_ *backend.Job, data any) {
		f := data.(backend.Files)
		r.printf(r.out, "%s\n", f.PackageID)
		for _, file := range f.Files {
			r.printf(r.out, "  %s\n", file)
		}
	})
	job.SetVFunc(backend.SignalRepoDetail, func(_ *backend.Job, data any) {
		d := data.(backend.RepoDetail)
		r.printf(r.out, "%-20s %-8s %s\n", d.RepoID, enabledString(d.Enabled), d.Description)
	})
	job.SetVFunc(backend.SignalUpdateDetail, func(_ *backend.Job, data any) {
		d := data.(backend.UpdateDetail)
		r.printf(r.out, "%s\n  updates: %s\n  restart: %s\n  %s\n",
			d.PackageID, strings.Join(d.Updates, ", "), d.Restart, d.UpdateText)
	})
	job.SetVFunc(backend.SignalCategory, func(_ *backend.Job, data any) {
		c := data.(backend.Category)
		r.printf(r.out, "%-20s %-20s %s\n", c.CatID, c.ParentID, c.Name)
	})
	job.SetVFunc(backend.SignalDistroUpgrade, func(_ *backend.Job, data any) {
		u := data.(backend.DistroUpgrade)
		r.printf(r.out, "%-10s %-20s %s\n", u.State, u.Name, u.Summary)
	})
	job.SetVFunc(backend.SignalEulaRequired, func(_ *backend.Job, data any) {
		e := data.(backend.EulaRequired)
		r.printf(r.errOut, "License agreement %s from %s is required for %s.\n%s\nRe-run with --accept-eula=%s to accept it.\n",
			e.EulaID, e.VendorName, e.PackageID, e.LicenseAgreement, e.EulaID)
	})
	job.SetVFunc(backend.SignalErrorCode, func(_ *backend.Job, data any) {
		e := data.(backend.ErrorCode)
		r.printf(r.errOut, "✗ %s: %s\n", e.Code, e.Details)
	})
	job.SetVFunc(backend.SignalTransaction, func(_ *backend.Job, data any) {
		tx := data.(core.Transaction)
		r.printf(r.out, "%s  %-22s %-10s %-8s %s\n",
			tx.Started.Format("2006-01-02 15:04:05"), tx.Role, tx.Exit, tx.Duration.Round(1e6), tx.Backend)
	})
	if r.verbose {
		job.SetVFunc(backend.SignalStatusChanged, func(_ *backend.Job, data any) {
			r.printf(r.errOut, "status: %s\n", data.(core.Status))
		})
		job.SetVFunc(backend.SignalPercentage, func(_ *backend.Job, data any) {
			r.printf(r.errOut, "progress: %d%%\n", data.(int))
		})
	}
}

func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

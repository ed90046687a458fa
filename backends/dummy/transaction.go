// backends/dummy/transaction.go
package dummy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/arc-language/upkgd/pkg/backend"
	"github.com/arc-language/upkgd/pkg/catalog"
	"github.com/arc-language/upkgd/pkg/core"
	"github.com/arc-language/upkgd/pkg/debfile"
	"github.com/arc-language/upkgd/pkg/index"
	"github.com/arc-language/upkgd/pkg/rpmfile"
)

func hasFlag(flags core.Bitfield, f core.TransactionFlag) bool {
	return flags.Contains(f.Bit())
}

// progress reports i of n done
func progress(job *backend.Job, i, n int) {
	if n > 0 {
		job.SetPercentage(i * 100 / n)
	}
}

// lookup resolves every id before a transaction touches anything
func (s *state) lookup(ids []string) ([]catalog.Package, error) {
	pkgs := make([]catalog.Package, 0, len(ids))
	for _, id := range ids {
		if !core.IsPackageID(id) {
			return nil, fail(core.ErrorPackageIDInvalid, "invalid package id %q", id)
		}
		p, err := s.catalog.Get(id)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, nil
}

func (m *Module) InstallPackages(ctx context.Context, b *backend.Backend, job *backend.Job, transactionFlags core.Bitfield, packageIDs []string) {
	m.run(b, job, core.StatusDepResolve, func(ctx context.Context, s *state) error {
		pkgs, err := s.lookup(packageIDs)
		if err != nil {
			return err
		}

		reinstall := hasFlag(transactionFlags, core.TransactionFlagAllowReinstall) ||
			hasFlag(transactionFlags, core.TransactionFlagJustReinstall)
		for _, p := range pkgs {
			if p.Installed && !reinstall {
				return fail(core.ErrorPackageAlreadyInstalled, "%s is already installed", p.Name)
			}
			if p.EulaID != "" && !b.IsEulaValid(p.EulaID) {
				job.EulaRequired(backend.EulaRequired{
					EulaID:           p.EulaID,
					PackageID:        p.ID().String(),
					VendorName:       p.Vendor,
					LicenseAgreement: p.License,
				})
				return nil
			}
		}

		if hasFlag(transactionFlags, core.TransactionFlagSimulate) {
			for i := range pkgs {
				job.Package(core.InfoInstalling, pkgs[i].ID().String(), pkgs[i].Summary)
			}
			return nil
		}

		job.SetStatus(core.StatusDownload)
		for i := range pkgs {
			if err := s.step(ctx); err != nil {
				return err
			}
			job.Package(core.InfoDownloading, pkgs[i].ID().String(), pkgs[i].Summary)
		}
		if hasFlag(transactionFlags, core.TransactionFlagOnlyDownload) {
			return nil
		}

		job.SetStatus(core.StatusInstall)
		for i, p := range pkgs {
			if err := s.step(ctx); err != nil {
				return err
			}
			// past this point the transaction cannot be rolled back
			job.SetAllowCancel(false)
			if err := s.catalog.SetInstalled(p.ID().String(), true); err != nil {
				return err
			}
			job.Package(core.InfoInstalling, p.ID().String(), p.Summary)
			progress(job, i+1, len(pkgs))
		}
		return nil
	})
}

func (m *Module) UpdatePackages(ctx context.Context, b *backend.Backend, job *backend.Job, transactionFlags core.Bitfield, packageIDs []string) {
	m.run(b, job, core.StatusDepResolve, func(ctx context.Context, s *state) error {
		pkgs, err := s.lookup(packageIDs)
		if err != nil {
			return err
		}
		for _, p := range pkgs {
			if p.UpdateVersion == "" {
				return fail(core.ErrorUpdateNotFound, "no update for %s", p.Name)
			}
		}

		if hasFlag(transactionFlags, core.TransactionFlagSimulate) {
			for i := range pkgs {
				job.Package(core.InfoUpdating, pkgs[i].UpdateID().String(), pkgs[i].Summary)
			}
			return nil
		}

		job.SetStatus(core.StatusDownload)
		for i := range pkgs {
			if err := s.step(ctx); err != nil {
				return err
			}
			job.Package(core.InfoDownloading, pkgs[i].UpdateID().String(), pkgs[i].Summary)
		}
		if hasFlag(transactionFlags, core.TransactionFlagOnlyDownload) {
			return nil
		}

		job.SetStatus(core.StatusUpdate)
		for i, p := range pkgs {
			if err := s.step(ctx); err != nil {
				return err
			}
			job.SetAllowCancel(false)
			if err := s.catalog.ApplyUpdate(p.ID().String()); err != nil {
				return err
			}
			job.Package(core.InfoUpdating, p.UpdateID().String(), p.Summary)
			progress(job, i+1, len(pkgs))
		}
		return nil
	})
}

func (m *Module) RemovePackages(ctx context.Context, b *backend.Backend, job *backend.Job, transactionFlags core.Bitfield, packageIDs []string, allowDeps, autoremove bool) {
	m.run(b, job, core.StatusDepResolve, func(ctx context.Context, s *state) error {
		pkgs, err := s.lookup(packageIDs)
		if err != nil {
			return err
		}

		removing := make(map[string]catalog.Package)
		for _, p := range pkgs {
			if !p.Installed {
				return fail(core.ErrorPackageNotInstalled, "%s is not installed", p.Name)
			}
			removing[p.Name] = p
		}

		// installed packages that would break
		for changed := true; changed; {
			changed = false
			for _, p := range removing {
				p := p
				for _, c := range s.catalog.Packages(func(c *catalog.Package) bool { return c.Installed && dependsOn(c, &p) }) {
					if _, ok := removing[c.Name]; ok {
						continue
					}
					if !allowDeps {
						return fail(core.ErrorDepResolutionFailed, "%s is required by %s", p.Name, c.Name)
					}
					removing[c.Name] = c
					changed = true
				}
			}
		}

		// dependencies nothing else needs, transitively
		for changed := autoremove; changed; {
			changed = false
			for _, p := range removing {
				for _, dep := range p.Depends {
					for _, c := range s.catalog.Packages(func(c *catalog.Package) bool { return c.Installed && c.Name == dep }) {
						if _, ok := removing[c.Name]; !ok && !s.requiredOutside(&c, removing) {
							removing[c.Name] = c
							changed = true
						}
					}
				}
			}
		}

		ordered := make([]catalog.Package, 0, len(removing))
		for _, p := range removing {
			ordered = append(ordered, p)
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

		if hasFlag(transactionFlags, core.TransactionFlagSimulate) {
			for _, p := range ordered {
				job.Package(core.InfoRemoving, p.ID().String(), p.Summary)
			}
			return nil
		}

		job.SetStatus(core.StatusRemove)
		for i, p := range ordered {
			if err := s.step(ctx); err != nil {
				return err
			}
			job.SetAllowCancel(false)
			if err := s.catalog.SetInstalled(p.ID().String(), false); err != nil {
				return err
			}
			job.Package(core.InfoRemoving, p.ID().String(), p.Summary)
			progress(job, i+1, len(ordered))
		}
		return nil
	})
}

// requiredOutside reports whether an installed package outside removing
// still depends on p
func (s *state) requiredOutside(p *catalog.Package, removing map[string]catalog.Package) bool {
	users := s.catalog.Packages(func(c *catalog.Package) bool {
		_, gone := removing[c.Name]
		return c.Installed && !gone && dependsOn(c, p)
	})
	return len(users) > 0
}

func (m *Module) DownloadPackages(ctx context.Context, b *backend.Backend, job *backend.Job, packageIDs []string, directory string) {
	m.run(b, job, core.StatusDownload, func(ctx context.Context, s *state) error {
		pkgs, err := s.lookup(packageIDs)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(directory, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", directory, err)
		}

		for i, p := range pkgs {
			if err := s.step(ctx); err != nil {
				return err
			}
			path := filepath.Join(directory, fmt.Sprintf("%s_%s_%s.toml", p.Name, p.Version, p.Arch))
			if err := writeEntry(path, p); err != nil {
				return err
			}
			job.Package(core.InfoDownloading, p.ID().String(), p.Summary)
			job.Files(p.ID().String(), []string{path})
			progress(job, i+1, len(pkgs))
		}
		return nil
	})
}

// writeEntry stores a package as a one-entry catalog file
func writeEntry(path string, p catalog.Package) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	p.Installed = false
	if err := toml.NewEncoder(f).Encode(catalog.File{Packages: []catalog.Package{p}}); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}

func (m *Module) RefreshCache(ctx context.Context, b *backend.Backend, job *backend.Job, force bool) {
	m.run(b, job, core.StatusRefreshCache, func(ctx context.Context, s *state) error {
		if s.opts.CatalogURL != "" {
			if !b.IsOnline() {
				return fail(core.ErrorNoNetwork, "cannot refresh cache whilst offline")
			}
			if _, err := os.Stat(s.opts.CatalogDir); err == nil && !force {
				s.logger.Debug().Msg("catalog present, reloading without sync")
			} else {
				src := index.Source{URL: s.opts.CatalogURL, Branch: s.opts.CatalogBranch}
				if _, err := index.Sync(ctx, src, s.opts.CatalogDir, s.logger); err != nil {
					return fail(core.ErrorNoCache, "%v", err)
				}
			}
		}
		job.SetStatus(core.StatusLoadingCache)
		return s.catalog.Load()
	})
}

func (m *Module) RepoEnable(ctx context.Context, b *backend.Backend, job *backend.Job, repoID string, enabled bool) {
	m.run(b, job, core.StatusRequest, func(ctx context.Context, s *state) error {
		if err := s.catalog.SetRepoEnabled(repoID, enabled); err != nil {
			return err
		}
		b.RepoListChanged()
		return nil
	})
}

func (m *Module) RepoSetData(ctx context.Context, b *backend.Backend, job *backend.Job, repoID, parameter, value string) {
	m.run(b, job, core.StatusRequest, func(ctx context.Context, s *state) error {
		if err := s.catalog.SetRepoData(repoID, parameter, value); err != nil {
			return err
		}
		b.RepoListChanged()
		return nil
	})
}

func (m *Module) RepoRemove(ctx context.Context, b *backend.Backend, job *backend.Job, transactionFlags core.Bitfield, repoID string, autoremove bool) {
	m.run(b, job, core.StatusRequest, func(ctx context.Context, s *state) error {
		if hasFlag(transactionFlags, core.TransactionFlagSimulate) {
			for _, r := range s.catalog.Repos() {
				if r.ID == repoID {
					return nil
				}
			}
			return fail(core.ErrorRepoNotFound, "repository %s not found", repoID)
		}

		removed, err := s.catalog.RemoveRepo(repoID, autoremove)
		if err != nil {
			return err
		}
		for i := range removed {
			job.Package(core.InfoRemoving, removed[i].ID().String(), removed[i].Summary)
		}
		b.RepoListChanged()
		return nil
	})
}

func (m *Module) InstallSignature(ctx context.Context, b *backend.Backend, job *backend.Job, sigType core.SigType, keyID, packageID string) {
	m.run(b, job, core.StatusSigCheck, func(ctx context.Context, s *state) error {
		if sigType != core.SigTypeGPG {
			return fail(core.ErrorNotSupported, "signature type %s not supported", sigType)
		}
		if keyID == "" {
			return fail(core.ErrorGPGFailure, "empty key id")
		}
		s.mu.Lock()
		s.keys[keyID] = struct{}{}
		s.mu.Unlock()
		s.logger.Info().Str("key", keyID).Str("package", packageID).Msg("signature installed")
		return nil
	})
}

// localFile is a package archive named on the command line
type localFile struct {
	id          core.PackageID
	summary     string
	description string
	group       core.Group
	url         string
	size        uint64
	depends     []string
	provides    []string
	files       []string
	extract     func(root string) ([]string, error)
}

// readLocal reads every local file, accepting .deb and .rpm archives
func readLocal(files []string) ([]localFile, error) {
	local := make([]localFile, 0, len(files))
	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			return nil, fail(core.ErrorFileNotFound, "%s not found", path)
		}
		var (
			lf  localFile
			err error
		)
		switch filepath.Ext(path) {
		case ".deb":
			lf, err = readDeb(path)
		case ".rpm":
			lf, err = readRpm(path)
		default:
			return nil, fail(core.ErrorInvalidPackageFile, "%s is not a .deb or .rpm archive", path)
		}
		if err != nil {
			return nil, fail(core.ErrorInvalidPackageFile, "%v", err)
		}
		local = append(local, lf)
	}
	return local, nil
}

func readDeb(path string) (localFile, error) {
	deb, err := debfile.Read(path)
	if err != nil {
		return localFile{}, err
	}
	c := deb.Control
	return localFile{
		id:          core.PackageID{Name: c.Package, Version: c.Version, Arch: c.Architecture, Data: "local"},
		summary:     c.Summary(),
		description: c.Description,
		group:       core.GroupFromString(c.Section),
		url:         c.Homepage,
		size:        uint64(c.InstalledSize),
		depends:     c.Depends,
		provides:    c.Provides,
		files:       deb.Files,
		extract:     func(root string) ([]string, error) { return debfile.Extract(path, root) },
	}, nil
}

func readRpm(path string) (localFile, error) {
	rpm, err := rpmfile.Read(path)
	if err != nil {
		return localFile{}, err
	}
	return localFile{
		id:          core.PackageID{Name: rpm.Name, Version: rpm.EVR(), Arch: rpm.Arch, Data: "local"},
		summary:     rpm.Summary,
		description: rpm.Description,
		group:       core.GroupFromString(strings.ToLower(rpm.Group)),
		url:         rpm.URL,
		size:        uint64(rpm.Size),
		depends:     rpm.Requires,
		provides:    rpm.Provides,
		files:       rpm.Files,
		extract:     func(root string) ([]string, error) { return rpmfile.Extract(path, root) },
	}, nil
}

func (m *Module) GetDetailsLocal(ctx context.Context, b *backend.Backend, job *backend.Job, files []string) {
	m.run(b, job, core.StatusInfo, func(ctx context.Context, s *state) error {
		local, err := readLocal(files)
		if err != nil {
			return err
		}
		for _, lf := range local {
			job.Details(backend.Details{
				PackageID:   lf.id.String(),
				Summary:     lf.summary,
				Description: lf.description,
				Group:       lf.group,
				URL:         lf.url,
				Size:        lf.size,
			})
		}
		return nil
	})
}

func (m *Module) GetFilesLocal(ctx context.Context, b *backend.Backend, job *backend.Job, files []string) {
	m.run(b, job, core.StatusInfo, func(ctx context.Context, s *state) error {
		local, err := readLocal(files)
		if err != nil {
			return err
		}
		for _, lf := range local {
			job.Files(lf.id.String(), lf.files)
		}
		return nil
	})
}

func (m *Module) InstallFiles(ctx context.Context, b *backend.Backend, job *backend.Job, transactionFlags core.Bitfield, fullPaths []string) {
	m.run(b, job, core.StatusInstall, func(ctx context.Context, s *state) error {
		local, err := readLocal(fullPaths)
		if err != nil {
			return err
		}

		if hasFlag(transactionFlags, core.TransactionFlagSimulate) {
			for _, lf := range local {
				job.Package(core.InfoInstalling, lf.id.String(), lf.summary)
			}
			return nil
		}

		for i, lf := range local {
			if err := s.step(ctx); err != nil {
				return err
			}
			job.SetAllowCancel(false)
			if s.opts.Root != "" {
				if _, err := lf.extract(s.opts.Root); err != nil {
					return fail(core.ErrorInvalidPackageFile, "%v", err)
				}
			}
			s.catalog.AddPackage(catalog.Package{
				Name:        lf.id.Name,
				Version:     lf.id.Version,
				Arch:        lf.id.Arch,
				Repo:        "local",
				Summary:     lf.summary,
				Description: lf.description,
				URL:         lf.url,
				Size:        lf.size,
				Depends:     lf.depends,
				Provides:    lf.provides,
				Files:       lf.files,
				Installed:   true,
			})
			job.Package(core.InfoInstalling, lf.id.String(), lf.summary)
			progress(job, i+1, len(local))
		}
		return nil
	})
}

func (m *Module) RepairSystem(ctx context.Context, b *backend.Backend, job *backend.Job, transactionFlags core.Bitfield) {
	m.run(b, job, core.StatusCleanup, func(ctx context.Context, s *state) error {
		// reload drops any in-memory state that diverged from disk
		if hasFlag(transactionFlags, core.TransactionFlagSimulate) {
			return nil
		}
		if err := s.step(ctx); err != nil {
			return err
		}
		return s.catalog.Load()
	})
}

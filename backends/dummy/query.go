// backends/dummy/query.go
package dummy

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/arc-language/upkgd/pkg/backend"
	"github.com/arc-language/upkgd/pkg/catalog"
	"github.com/arc-language/upkgd/pkg/core"
)

// match applies the supported filters to one package
func (s *state) match(filters core.Bitfield, p *catalog.Package) bool {
	has := func(f core.Filter) bool { return filters.Contains(f.Bit()) }

	if has(core.FilterInstalled) && !p.Installed {
		return false
	}
	if has(core.FilterNotInstalled) && p.Installed {
		return false
	}

	devel := strings.HasSuffix(p.Name, "-dev") || strings.HasSuffix(p.Name, "-devel")
	if has(core.FilterDevelopment) && !devel {
		return false
	}
	if has(core.FilterNotDevelopment) && devel {
		return false
	}

	native := p.Arch == "" || p.Arch == "noarch" || p.Arch == "all" || p.Arch == s.opts.Arch
	if has(core.FilterArch) && !native {
		return false
	}
	if has(core.FilterNotArch) && native {
		return false
	}

	source := p.Arch == "source" || p.Arch == "src"
	if has(core.FilterSource) && !source {
		return false
	}
	if has(core.FilterNotSource) && source {
		return false
	}
	return true
}

func emitPackage(job *backend.Job, p *catalog.Package) {
	info := core.InfoAvailable
	if p.Installed {
		info = core.InfoInstalled
	}
	job.Package(info, p.ID().String(), p.Summary)
}

// emitMatching emits every package passing filters and keep
func (s *state) emitMatching(ctx context.Context, job *backend.Job, filters core.Bitfield, keep func(*catalog.Package) bool) error {
	pkgs := s.catalog.Packages(func(p *catalog.Package) bool {
		return s.match(filters, p) && keep(p)
	})
	for i := range pkgs {
		if err := s.step(ctx); err != nil {
			return err
		}
		emitPackage(job, &pkgs[i])
	}
	return nil
}

// containsAll reports whether every value occurs in one of the fields
func containsAll(values []string, fields ...string) bool {
	for _, v := range values {
		v = strings.ToLower(v)
		found := false
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), v) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *Module) Resolve(ctx context.Context, b *backend.Backend, job *backend.Job, filters core.Bitfield, packages []string) {
	m.run(b, job, core.StatusQuery, func(ctx context.Context, s *state) error {
		for _, value := range packages {
			if err := s.step(ctx); err != nil {
				return err
			}
			if core.IsPackageID(value) {
				p, err := s.catalog.Get(value)
				if err != nil {
					return err
				}
				emitPackage(job, &p)
				continue
			}
			pkgs := s.catalog.Packages(func(p *catalog.Package) bool {
				return p.Name == value && s.match(filters, p)
			})
			if len(pkgs) == 0 {
				return fail(core.ErrorPackageNotFound, "package %s not found", value)
			}
			for i := range pkgs {
				emitPackage(job, &pkgs[i])
			}
		}
		return nil
	})
}

func (m *Module) SearchNames(ctx context.Context, b *backend.Backend, job *backend.Job, filters core.Bitfield, values []string) {
	m.run(b, job, core.StatusQuery, func(ctx context.Context, s *state) error {
		return s.emitMatching(ctx, job, filters, func(p *catalog.Package) bool {
			return containsAll(values, p.Name)
		})
	})
}

func (m *Module) SearchDetails(ctx context.Context, b *backend.Backend, job *backend.Job, filters core.Bitfield, values []string) {
	m.run(b, job, core.StatusQuery, func(ctx context.Context, s *state) error {
		return s.emitMatching(ctx, job, filters, func(p *catalog.Package) bool {
			return containsAll(values, p.Name, p.Summary, p.Description, p.URL)
		})
	})
}

func (m *Module) SearchFiles(ctx context.Context, b *backend.Backend, job *backend.Job, filters core.Bitfield, values []string) {
	m.run(b, job, core.StatusQuery, func(ctx context.Context, s *state) error {
		return s.emitMatching(ctx, job, filters, func(p *catalog.Package) bool {
			for _, v := range values {
				for _, f := range p.Files {
					if f == v || (!filepath.IsAbs(v) && filepath.Base(f) == v) {
						return true
					}
				}
			}
			return false
		})
	})
}

func (m *Module) SearchGroups(ctx context.Context, b *backend.Backend, job *backend.Job, filters core.Bitfield, values []string) {
	m.run(b, job, core.StatusQuery, func(ctx context.Context, s *state) error {
		for _, v := range values {
			if core.GroupFromString(v) == core.GroupUnknown {
				return fail(core.ErrorGroupNotFound, "group %s not found", v)
			}
		}
		return s.emitMatching(ctx, job, filters, func(p *catalog.Package) bool {
			for _, v := range values {
				if p.Group == v {
					return true
				}
			}
			return false
		})
	})
}

func (m *Module) WhatProvides(ctx context.Context, b *backend.Backend, job *backend.Job, filters core.Bitfield, values []string) {
	m.run(b, job, core.StatusQuery, func(ctx context.Context, s *state) error {
		return s.emitMatching(ctx, job, filters, func(p *catalog.Package) bool {
			for _, v := range values {
				if p.Name == v {
					return true
				}
				for _, provided := range p.Provides {
					if provided == v {
						return true
					}
				}
			}
			return false
		})
	})
}

func (m *Module) GetPackages(ctx context.Context, b *backend.Backend, job *backend.Job, filters core.Bitfield) {
	m.run(b, job, core.StatusQuery, func(ctx context.Context, s *state) error {
		return s.emitMatching(ctx, job, filters, func(*catalog.Package) bool { return true })
	})
}

func (m *Module) GetDetails(ctx context.Context, b *backend.Backend, job *backend.Job, packageIDs []string) {
	m.run(b, job, core.StatusInfo, func(ctx context.Context, s *state) error {
		for _, id := range packageIDs {
			p, err := s.catalog.Get(id)
			if err != nil {
				return err
			}
			job.Details(backend.Details{
				PackageID:   p.ID().String(),
				Summary:     p.Summary,
				Description: p.Description,
				License:     p.License,
				Group:       core.GroupFromString(p.Group),
				URL:         p.URL,
				Size:        p.Size,
			})
		}
		return nil
	})
}

func (m *Module) GetFiles(ctx context.Context, b *backend.Backend, job *backend.Job, packageIDs []string) {
	m.run(b, job, core.StatusInfo, func(ctx context.Context, s *state) error {
		for _, id := range packageIDs {
			p, err := s.catalog.Get(id)
			if err != nil {
				return err
			}
			job.Files(p.ID().String(), p.Files)
		}
		return nil
	})
}

// walkDeps emits the packages reached from ids by next, once each
func (s *state) walkDeps(ctx context.Context, job *backend.Job, filters core.Bitfield, ids []string, recursive bool,
	next func(p *catalog.Package) []catalog.Package) error {
	seen := make(map[string]bool)
	var queue []catalog.Package
	for _, id := range ids {
		p, err := s.catalog.Get(id)
		if err != nil {
			return err
		}
		seen[p.Name] = true
		queue = append(queue, p)
	}

	for len(queue) > 0 {
		if err := s.step(ctx); err != nil {
			return err
		}
		p := queue[0]
		queue = queue[1:]
		for _, dep := range next(&p) {
			if seen[dep.Name] {
				continue
			}
			seen[dep.Name] = true
			if s.match(filters, &dep) {
				emitPackage(job, &dep)
			}
			if recursive {
				queue = append(queue, dep)
			}
		}
	}
	return nil
}

func (m *Module) DependsOn(ctx context.Context, b *backend.Backend, job *backend.Job, filters core.Bitfield, packageIDs []string, recursive bool) {
	m.run(b, job, core.StatusDepResolve, func(ctx context.Context, s *state) error {
		return s.walkDeps(ctx, job, filters, packageIDs, recursive, func(p *catalog.Package) []catalog.Package {
			names := make(map[string]bool, len(p.Depends))
			for _, d := range p.Depends {
				names[d] = true
			}
			return s.catalog.Packages(func(c *catalog.Package) bool {
				if names[c.Name] {
					return true
				}
				for _, provided := range c.Provides {
					if names[provided] {
						return true
					}
				}
				return false
			})
		})
	})
}

func (m *Module) RequiredBy(ctx context.Context, b *backend.Backend, job *backend.Job, filters core.Bitfield, packageIDs []string, recursive bool) {
	m.run(b, job, core.StatusDepResolve, func(ctx context.Context, s *state) error {
		return s.walkDeps(ctx, job, filters, packageIDs, recursive, func(p *catalog.Package) []catalog.Package {
			return s.catalog.Packages(func(c *catalog.Package) bool {
				return dependsOn(c, p)
			})
		})
	})
}

// dependsOn reports whether c depends on p by name or provided name
func dependsOn(c, p *catalog.Package) bool {
	for _, d := range c.Depends {
		if d == p.Name {
			return true
		}
		for _, provided := range p.Provides {
			if d == provided {
				return true
			}
		}
	}
	return false
}

func (m *Module) GetUpdates(ctx context.Context, b *backend.Backend, job *backend.Job, filters core.Bitfield) {
	m.run(b, job, core.StatusQuery, func(ctx context.Context, s *state) error {
		pkgs := s.catalog.Packages(func(p *catalog.Package) bool {
			return p.Installed && p.UpdateVersion != "" && s.match(filters.Remove(core.FilterInstalled.Bit()), p)
		})
		for _, p := range pkgs {
			if err := s.step(ctx); err != nil {
				return err
			}
			job.Package(core.InfoNormal, p.UpdateID().String(), p.Summary)
		}
		return nil
	})
}

func (m *Module) GetUpdateDetail(ctx context.Context, b *backend.Backend, job *backend.Job, packageIDs []string) {
	m.run(b, job, core.StatusQuery, func(ctx context.Context, s *state) error {
		for _, id := range packageIDs {
			p, err := s.catalog.Get(id)
			if err != nil {
				return err
			}
			if p.UpdateVersion == "" {
				return fail(core.ErrorUpdateNotFound, "no update for %s", id)
			}
			job.UpdateDetail(backend.UpdateDetail{
				PackageID:  p.UpdateID().String(),
				Updates:    []string{p.ID().String()},
				VendorURLs: nonEmpty(p.URL),
				Restart:    "none",
				UpdateText: p.UpdateText,
			})
		}
		return nil
	})
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (m *Module) GetCategories(ctx context.Context, b *backend.Backend, job *backend.Job) {
	m.run(b, job, core.StatusQuery, func(ctx context.Context, s *state) error {
		for _, c := range s.catalog.Categories() {
			job.Category(backend.Category{
				ParentID: c.ParentID,
				CatID:    c.ID,
				Name:     c.Name,
				Summary:  c.Summary,
				Icon:     c.Icon,
			})
		}
		return nil
	})
}

func (m *Module) GetDistroUpgrades(ctx context.Context, b *backend.Backend, job *backend.Job) {
	m.run(b, job, core.StatusQuery, func(ctx context.Context, s *state) error {
		for _, u := range s.catalog.DistroUpgrades() {
			job.DistroUpgrade(u.State, u.Name, u.Summary)
		}
		return nil
	})
}

func (m *Module) GetRepoList(ctx context.Context, b *backend.Backend, job *backend.Job, filters core.Bitfield) {
	m.run(b, job, core.StatusQuery, func(ctx context.Context, s *state) error {
		hideDevel := filters.Contains(core.FilterNotDevelopment.Bit())
		for _, r := range s.catalog.Repos() {
			if hideDevel && (strings.HasSuffix(r.ID, "-debug") || strings.HasSuffix(r.ID, "-source")) {
				continue
			}
			job.RepoDetail(r.ID, r.Description, r.Enabled)
		}
		return nil
	})
}

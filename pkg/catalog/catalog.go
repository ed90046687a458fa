// pkg/catalog/catalog.go
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/ulikunitz/xz"

	"github.com/arc-language/upkgd/pkg/core"
)

var (
	// ErrNotSynced means the catalog directory does not exist yet
	ErrNotSynced = errors.New("catalog: not found, run refresh first")

	ErrPackageNotFound = errors.New("catalog: package not found")
	ErrRepoNotFound    = errors.New("catalog: repository not found")
)

// Repo is a package source listed in a catalog file
type Repo struct {
	ID          string            `toml:"id"`
	Description string            `toml:"description"`
	Enabled     bool              `toml:"enabled"`
	Data        map[string]string `toml:"data"`
}

// Package is one catalog entry
type Package struct {
	Name        string   `toml:"name"`
	Version     string   `toml:"version"`
	Arch        string   `toml:"arch"`
	Repo        string   `toml:"repo"`
	Summary     string   `toml:"summary"`
	Description string   `toml:"description"`
	License     string   `toml:"license"`
	Group       string   `toml:"group"`
	URL         string   `toml:"url"`
	Size        uint64   `toml:"size"`
	Depends     []string `toml:"depends"`
	Provides    []string `toml:"provides"`
	Files       []string `toml:"files"`
	Installed   bool     `toml:"installed"`

	// EulaID names a license that must be accepted before installing
	EulaID string `toml:"eula"`
	Vendor string `toml:"vendor"`

	// UpdateVersion is set when a newer version is available
	UpdateVersion string `toml:"update_version"`
	UpdateText    string `toml:"update_text"`
}

// ID returns the package id; the data section is "installed" for installed
// packages and the repository otherwise
func (p *Package) ID() core.PackageID {
	data := p.Repo
	if p.Installed {
		data = "installed"
	}
	return core.PackageID{Name: p.Name, Version: p.Version, Arch: p.Arch, Data: data}
}

// UpdateID returns the id of the pending update
func (p *Package) UpdateID() core.PackageID {
	return core.PackageID{Name: p.Name, Version: p.UpdateVersion, Arch: p.Arch, Data: p.Repo}
}

// Category is a node in the category tree
type Category struct {
	ID       string `toml:"id"`
	ParentID string `toml:"parent"`
	Name     string `toml:"name"`
	Summary  string `toml:"summary"`
	Icon     string `toml:"icon"`
}

// DistroUpgrade is an available distribution release
type DistroUpgrade struct {
	Name    string `toml:"name"`
	State   string `toml:"state"`
	Summary string `toml:"summary"`
}

// File is the decoded form of one catalog file
type File struct {
	Repos          []Repo          `toml:"repo"`
	Packages       []Package       `toml:"package"`
	Categories     []Category      `toml:"category"`
	DistroUpgrades []DistroUpgrade `toml:"distro_upgrade"`
}

// Catalog is the merged, mutable view of every catalog file in a directory
type Catalog struct {
	dir string

	mu         sync.RWMutex
	repos      []*Repo
	packages   []*Package
	categories []Category
	upgrades   []DistroUpgrade
}

// New creates an empty Catalog reading from dir
func New(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// Dir returns the directory the catalog reads from
func (c *Catalog) Dir() string {
	return c.dir
}

// Load replaces the catalog contents with every *.toml and *.toml.xz file
// in the catalog directory, in name order
func (c *Catalog) Load() error {
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return ErrNotSynced
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("catalog: reading %s: %w", c.dir, err)
	}

	var files []*File
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".toml") || strings.HasSuffix(name, ".toml.xz")) {
			continue
		}
		f, err := ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.repos, c.packages, c.categories, c.upgrades = nil, nil, nil, nil
	for _, f := range files {
		c.merge(f)
	}
	return nil
}

// ReadFile decodes one catalog file, decompressing .xz files
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		xzReader, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("catalog: creating xz reader for %s: %w", path, err)
		}
		r = xzReader
	}

	file, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to parse '%s': %w", filepath.Base(path), err)
	}
	return file, nil
}

// Decode parses catalog TOML
func Decode(r io.Reader) (*File, error) {
	var file File
	if _, err := toml.NewDecoder(r).Decode(&file); err != nil {
		return nil, err
	}
	for i := range file.Packages {
		if file.Packages[i].Name == "" {
			return nil, fmt.Errorf("package %d has no name", i)
		}
	}
	return &file, nil
}

// Add merges a decoded file into the catalog
func (c *Catalog) Add(f *File) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.merge(f)
}

func (c *Catalog) merge(f *File) {
	for i := range f.Repos {
		repo := f.Repos[i]
		if repo.Data == nil {
			repo.Data = make(map[string]string)
		}
		c.repos = append(c.repos, &repo)
	}
	for i := range f.Packages {
		pkg := f.Packages[i]
		c.packages = append(c.packages, &pkg)
	}
	c.categories = append(c.categories, f.Categories...)
	c.upgrades = append(c.upgrades, f.DistroUpgrades...)
}

func (c *Catalog) repoLocked(id string) *Repo {
	for _, r := range c.repos {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// visibleLocked reports whether a package can be seen: installed packages
// always, available ones only from enabled or unknown repositories
func (c *Catalog) visibleLocked(p *Package) bool {
	if p.Installed {
		return true
	}
	r := c.repoLocked(p.Repo)
	return r == nil || r.Enabled
}

// Packages returns copies of the visible packages matching keep, sorted by
// name then version. A nil keep matches everything.
func (c *Catalog) Packages(keep func(*Package) bool) []Package {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Package
	for _, p := range c.packages {
		if !c.visibleLocked(p) {
			continue
		}
		if keep != nil && !keep(p) {
			continue
		}
		out = append(out, *p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out
}

// Get looks a package up by id
func (c *Catalog) Get(id string) (Package, error) {
	pid, err := core.ParsePackageID(id)
	if err != nil {
		return Package{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if p := c.findLocked(pid); p != nil {
		return *p, nil
	}
	return Package{}, fmt.Errorf("%w: %s", ErrPackageNotFound, id)
}

// findLocked matches name and version, and arch when the id carries one
func (c *Catalog) findLocked(pid core.PackageID) *Package {
	for _, p := range c.packages {
		if p.Name != pid.Name {
			continue
		}
		if pid.Version != "" && p.Version != pid.Version && p.UpdateVersion != pid.Version {
			continue
		}
		if pid.Arch != "" && p.Arch != pid.Arch {
			continue
		}
		return p
	}
	return nil
}

// SetInstalled marks a package installed or removed
func (c *Catalog) SetInstalled(id string, installed bool) error {
	pid, err := core.ParsePackageID(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.findLocked(pid)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPackageNotFound, id)
	}
	p.Installed = installed
	return nil
}

// ApplyUpdate moves a package to its pending update version
func (c *Catalog) ApplyUpdate(id string) error {
	pid, err := core.ParsePackageID(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.findLocked(pid)
	if p == nil || p.UpdateVersion == "" {
		return fmt.Errorf("%w: no update for %s", ErrPackageNotFound, id)
	}
	p.Version = p.UpdateVersion
	p.UpdateVersion = ""
	p.UpdateText = ""
	p.Installed = true
	return nil
}

// AddPackage inserts or replaces a package with the same name and arch
func (c *Catalog) AddPackage(pkg Package) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.packages {
		if p.Name == pkg.Name && p.Arch == pkg.Arch {
			c.packages[i] = &pkg
			return
		}
	}
	c.packages = append(c.packages, &pkg)
}

// Repos returns copies of every repository
func (c *Catalog) Repos() []Repo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Repo, 0, len(c.repos))
	for _, r := range c.repos {
		out = append(out, *r)
	}
	return out
}

// SetRepoEnabled enables or disables a repository
func (c *Catalog) SetRepoEnabled(id string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.repoLocked(id)
	if r == nil {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, id)
	}
	r.Enabled = enabled
	return nil
}

// SetRepoData stores one key/value on a repository
func (c *Catalog) SetRepoData(id, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.repoLocked(id)
	if r == nil {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, id)
	}
	r.Data[key] = value
	return nil
}

// RemoveRepo drops a repository. With autoremove its packages that are not
// installed go too; the removed packages are returned.
func (c *Catalog) RemoveRepo(id string, autoremove bool) ([]Package, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, r := range c.repos {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrRepoNotFound, id)
	}
	c.repos = append(c.repos[:idx], c.repos[idx+1:]...)

	if !autoremove {
		return nil, nil
	}
	var removed []Package
	kept := c.packages[:0]
	for _, p := range c.packages {
		if p.Repo == id && !p.Installed {
			removed = append(removed, *p)
			continue
		}
		kept = append(kept, p)
	}
	c.packages = kept
	return removed, nil
}

// Categories returns the category tree
func (c *Catalog) Categories() []Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Category(nil), c.categories...)
}

// DistroUpgrades returns the available distribution upgrades
func (c *Catalog) DistroUpgrades() []DistroUpgrade {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]DistroUpgrade(nil), c.upgrades...)
}

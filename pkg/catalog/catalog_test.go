package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

const mainCatalog = `
[[repo]]
id = "main"
description = "Main packages"
enabled = true

[[repo]]
id = "extras"
description = "Extra packages"
enabled = false

[[package]]
name = "hello"
version = "2.10"
arch = "x86_64"
repo = "main"
summary = "Prints a greeting"
group = "programming"
depends = ["libc"]
files = ["/usr/bin/hello"]
installed = true
update_version = "2.12"
update_text = "Bug fixes"

[[package]]
name = "libc"
version = "2.39"
arch = "x86_64"
repo = "main"
summary = "C library"
installed = true

[[package]]
name = "game"
version = "1.0"
arch = "x86_64"
repo = "extras"
summary = "A game"

[[category]]
id = "dev"
name = "Development"

[[distro_upgrade]]
name = "next"
state = "stable"
summary = "Next release"
`

const extraCatalog = `
[[package]]
name = "driver"
version = "5.0"
arch = "x86_64"
repo = "main"
summary = "Vendor driver"
eula = "vendor-eula"
vendor = "Vendor Inc"
`

func writeCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00-main.toml"), []byte(mainCatalog), 0o644))

	f, err := os.Create(filepath.Join(dir, "10-extra.toml.xz"))
	require.NoError(t, err)
	w, err := xz.NewWriter(f)
	require.NoError(t, err)
	_, err = w.Write([]byte(extraCatalog))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("ignored"), 0o644))
	return dir
}

func loadCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := New(writeCatalog(t))
	require.NoError(t, c.Load())
	return c
}

func TestLoad(t *testing.T) {
	c := loadCatalog(t)

	pkgs := c.Packages(nil)
	names := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"driver", "hello", "libc"}, names, "disabled repo hidden, sorted by name")

	assert.Len(t, c.Repos(), 2)
	assert.Len(t, c.Categories(), 1)
	require.Len(t, c.DistroUpgrades(), 1)
	assert.Equal(t, "next", c.DistroUpgrades()[0].Name)

	driver, err := c.Get("driver;5.0;x86_64;main")
	require.NoError(t, err)
	assert.Equal(t, "vendor-eula", driver.EulaID)

	// reload replaces rather than appends
	require.NoError(t, c.Load())
	assert.Len(t, c.Packages(nil), 3)
}

func TestLoadMissing(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, c.Load(), ErrNotSynced)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.toml"), []byte("[[package]]\nversion = 1\n"), 0o644))
	err := New(dir).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.toml")
}

func TestDecode(t *testing.T) {
	_, err := Decode(strings.NewReader("[[package]]\nversion = \"1\"\n"))
	assert.Error(t, err, "nameless package")

	f, err := Decode(strings.NewReader(extraCatalog))
	require.NoError(t, err)
	require.Len(t, f.Packages, 1)
	assert.Equal(t, "Vendor Inc", f.Packages[0].Vendor)
}

func TestPackageIDs(t *testing.T) {
	c := loadCatalog(t)

	hello, err := c.Get("hello;2.10;x86_64;installed")
	require.NoError(t, err)
	assert.Equal(t, "hello;2.10;x86_64;installed", hello.ID().String())
	assert.Equal(t, "hello;2.12;x86_64;main", hello.UpdateID().String())

	_, err = c.Get("hello;9.9;x86_64;main")
	assert.ErrorIs(t, err, ErrPackageNotFound)
	_, err = c.Get("not-an-id")
	assert.Error(t, err)
}

func TestMutations(t *testing.T) {
	c := loadCatalog(t)

	require.NoError(t, c.SetInstalled("driver;5.0;x86_64;main", true))
	driver, err := c.Get("driver;5.0;;")
	require.NoError(t, err)
	assert.True(t, driver.Installed)
	assert.ErrorIs(t, c.SetInstalled("nope;1;;", true), ErrPackageNotFound)

	require.NoError(t, c.ApplyUpdate("hello;2.12;x86_64;main"))
	hello, err := c.Get("hello;2.12;;")
	require.NoError(t, err)
	assert.Equal(t, "2.12", hello.Version)
	assert.Empty(t, hello.UpdateVersion)
	assert.ErrorIs(t, c.ApplyUpdate("libc;2.39;;"), ErrPackageNotFound)

	c.AddPackage(Package{Name: "local", Version: "0.1", Arch: "x86_64", Installed: true})
	c.AddPackage(Package{Name: "local", Version: "0.2", Arch: "x86_64", Installed: true})
	local := c.Packages(func(p *Package) bool { return p.Name == "local" })
	require.Len(t, local, 1)
	assert.Equal(t, "0.2", local[0].Version)
}

func TestRepos(t *testing.T) {
	c := loadCatalog(t)

	require.NoError(t, c.SetRepoEnabled("extras", true))
	assert.Len(t, c.Packages(nil), 4)
	assert.ErrorIs(t, c.SetRepoEnabled("nope", true), ErrRepoNotFound)

	require.NoError(t, c.SetRepoData("main", "mirror", "https://example.org"))
	assert.Equal(t, "https://example.org", c.Repos()[0].Data["mirror"])
	assert.ErrorIs(t, c.SetRepoData("nope", "k", "v"), ErrRepoNotFound)

	removed, err := c.RemoveRepo("main", true)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "driver", removed[0].Name, "installed packages stay")
	assert.Len(t, c.Repos(), 1)

	_, err = c.RemoveRepo("main", false)
	assert.ErrorIs(t, err, ErrRepoNotFound)
}

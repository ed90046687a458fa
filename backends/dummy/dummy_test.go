package dummy_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-language/upkgd/backends/dummy"
	"github.com/arc-language/upkgd/pkg/backend"
	"github.com/arc-language/upkgd/pkg/catalog"
	"github.com/arc-language/upkgd/pkg/core"
	"github.com/arc-language/upkgd/pkg/debfile"
	"github.com/arc-language/upkgd/pkg/rpmfile"
)

const testCatalog = `
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
url = "https://www.gnu.org/software/hello/"
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
provides = ["libc.so.6"]
installed = true

[[package]]
name = "tool"
version = "1.0"
arch = "x86_64"
repo = "main"
summary = "Useful tool"
depends = ["libc.so.6"]
files = ["/usr/bin/tool"]

[[package]]
name = "driver"
version = "5.0"
arch = "x86_64"
repo = "main"
summary = "Vendor driver"
license = "Proprietary"
eula = "vendor-eula"
vendor = "Vendor Inc"

[[package]]
name = "game"
version = "1.0"
arch = "x86_64"
repo = "extras"
summary = "A game"

[[category]]
id = "dev"
name = "Development"
summary = "Development tools"

[[distro_upgrade]]
name = "next"
state = "stable"
summary = "Next release"
`

type notifier struct {
	count atomic.Int32
}

func (n *notifier) RepoListChanged() { n.count.Add(1) }

type fixture struct {
	b        *backend.Backend
	dir      string
	notifier *notifier
}

func setup(t *testing.T, extra map[string]any, opts ...func(*backend.Options)) *fixture {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "catalog")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.toml"), []byte(testCatalog), 0o644))

	raw := map[string]any{"catalog_dir": dir, "arch": "x86_64"}
	for k, v := range extra {
		raw[k] = v
	}

	conf := core.DefaultConfig()
	conf.Daemon.DefaultBackend = dummy.Name
	conf.Daemon.LocalDir = t.TempDir()
	conf.Daemon.InstallDir = t.TempDir()
	conf.Backends[dummy.Name] = raw

	n := &notifier{}
	o := backend.Options{Config: conf, Notifier: n}
	for _, fn := range opts {
		fn(&o)
	}
	b := backend.New(o)
	require.NoError(t, b.Load())
	t.Cleanup(func() { b.Close() })
	return &fixture{b: b, dir: dir, notifier: n}
}

// result is everything one job reported
type result struct {
	exit     core.Exit
	err      *backend.ErrorCode
	packages []backend.Package
	details  []backend.Details
	files    []backend.Files
	updates  []backend.UpdateDetail
	repos    []backend.RepoDetail
	cats     []backend.Category
	upgrades []backend.DistroUpgrade
	eulas    []backend.EulaRequired
	percent  []int
}

func (r *result) ids() []string {
	out := make([]string, 0, len(r.packages))
	for _, p := range r.packages {
		out = append(out, p.PackageID)
	}
	return out
}

// run dispatches one job through fn and waits for it to finish
func (f *fixture) run(t *testing.T, fn func(job *backend.Job)) *result {
	t.Helper()
	job := backend.NewJob(context.Background())
	return f.runJob(t, job, fn)
}

func (f *fixture) runJob(t *testing.T, job *backend.Job, fn func(job *backend.Job)) *result {
	t.Helper()
	r := &result{}
	var mu sync.Mutex
	on := func(sig backend.Signal, add func(data any)) {
		job.SetVFunc(sig, func(_ *backend.Job, data any) {
			mu.Lock()
			defer mu.Unlock()
			add(data)
		})
	}
	on(backend.SignalPackage, func(d any) { r.packages = append(r.packages, d.(backend.Package)) })
	on(backend.SignalDetails, func(d any) { r.details = append(r.details, d.(backend.Details)) })
	on(backend.SignalFiles, func(d any) { r.files = append(r.files, d.(backend.Files)) })
	on(backend.SignalUpdateDetail, func(d any) { r.updates = append(r.updates, d.(backend.UpdateDetail)) })
	on(backend.SignalRepoDetail, func(d any) { r.repos = append(r.repos, d.(backend.RepoDetail)) })
	on(backend.SignalCategory, func(d any) { r.cats = append(r.cats, d.(backend.Category)) })
	on(backend.SignalDistroUpgrade, func(d any) { r.upgrades = append(r.upgrades, d.(backend.DistroUpgrade)) })
	on(backend.SignalEulaRequired, func(d any) { r.eulas = append(r.eulas, d.(backend.EulaRequired)) })
	on(backend.SignalPercentage, func(d any) { r.percent = append(r.percent, d.(int)) })

	done := make(chan core.Exit, 1)
	job.SetVFunc(backend.SignalFinished, func(_ *backend.Job, data any) { done <- data.(core.Exit) })

	f.b.StartJob(job)
	defer f.b.StopJob(job)
	fn(job)

	select {
	case r.exit = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}
	r.err = job.Error()
	return r
}

func requireCode(t *testing.T, r *result, code core.ErrorCode) {
	t.Helper()
	require.NotNil(t, r.err, "expected error %s", code)
	assert.Equal(t, code, r.err.Code, r.err.Details)
	assert.Equal(t, core.ExitFailed, r.exit)
}

func TestCapabilities(t *testing.T) {
	f := setup(t, nil)
	b := f.b

	assert.Equal(t, dummy.Name, b.Name())
	assert.NotEmpty(t, b.Description())
	assert.NotEmpty(t, b.Author())

	for _, role := range []core.Role{
		core.RoleCancel, core.RoleResolve, core.RoleSearchName, core.RoleInstallPackages,
		core.RoleInstallFiles, core.RoleRemovePackages, core.RoleRefreshCache,
		core.RoleRepoEnable, core.RoleRepairSystem, core.RoleGetOldTransactions,
	} {
		assert.True(t, b.IsImplemented(role), role.String())
	}
	assert.False(t, b.IsImplemented(core.RoleAcceptEula))

	assert.Equal(t, []string{debfile.MimeType, rpmfile.MimeType}, b.GetMimeTypes())
	assert.True(t, b.GetGroups().Contains(core.GroupProgramming.Bit()))
	assert.True(t, b.GetFilters().Contains(core.FilterInstalled.Bit()))
	assert.False(t, b.SupportsParallelization())

	assert.True(t, setup(t, map[string]any{"parallel": true}).b.SupportsParallelization())
}

func TestDecodeOptions(t *testing.T) {
	opts, err := dummy.DecodeOptions(map[string]any{
		"delay":    "5ms",
		"parallel": "true",
		"root":     "/tmp/root",
	})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, opts.Delay)
	assert.True(t, opts.Parallel)
	assert.Equal(t, "/tmp/root", opts.Root)
	assert.NotEmpty(t, opts.CatalogDir)
	assert.NotEmpty(t, opts.Arch)

	_, err = dummy.DecodeOptions(map[string]any{"delay": "soon"})
	assert.Error(t, err)
}

func TestBadOptions(t *testing.T) {
	f := setup(t, map[string]any{"delay": "soon"})
	r := f.run(t, func(job *backend.Job) { f.b.Resolve(job, 0, []string{"hello"}) })
	requireCode(t, r, core.ErrorFailedConfigParsing)
}

func TestResolve(t *testing.T) {
	f := setup(t, nil)

	r := f.run(t, func(job *backend.Job) { f.b.Resolve(job, 0, []string{"hello"}) })
	assert.Equal(t, core.ExitSuccess, r.exit)
	require.Len(t, r.packages, 1)
	assert.Equal(t, "hello;2.10;x86_64;installed", r.packages[0].PackageID)
	assert.Equal(t, core.InfoInstalled, r.packages[0].Info)
	assert.Equal(t, []int{100}, r.percent)

	r = f.run(t, func(job *backend.Job) { f.b.Resolve(job, 0, []string{"tool;1.0;x86_64;main"}) })
	assert.Equal(t, []string{"tool;1.0;x86_64;main"}, r.ids())

	r = f.run(t, func(job *backend.Job) { f.b.Resolve(job, core.Bits(core.FilterNotInstalled), []string{"hello"}) })
	requireCode(t, r, core.ErrorPackageNotFound)

	r = f.run(t, func(job *backend.Job) { f.b.Resolve(job, 0, []string{"missing"}) })
	requireCode(t, r, core.ErrorPackageNotFound)
}

func TestSearch(t *testing.T) {
	f := setup(t, nil)

	r := f.run(t, func(job *backend.Job) { f.b.SearchNames(job, core.Bits(core.FilterNotInstalled), []string{"o"}) })
	assert.Equal(t, []string{"tool;1.0;x86_64;main"}, r.ids())

	r = f.run(t, func(job *backend.Job) { f.b.SearchDetails(job, 0, []string{"greeting"}) })
	assert.Equal(t, []string{"hello;2.10;x86_64;installed"}, r.ids())

	r = f.run(t, func(job *backend.Job) { f.b.SearchFiles(job, 0, []string{"tool"}) })
	assert.Equal(t, []string{"tool;1.0;x86_64;main"}, r.ids())

	r = f.run(t, func(job *backend.Job) { f.b.SearchGroups(job, 0, []string{"programming"}) })
	assert.Equal(t, []string{"hello;2.10;x86_64;installed"}, r.ids())

	r = f.run(t, func(job *backend.Job) { f.b.SearchGroups(job, 0, []string{"no-such-group"}) })
	requireCode(t, r, core.ErrorGroupNotFound)

	r = f.run(t, func(job *backend.Job) { f.b.WhatProvides(job, 0, []string{"libc.so.6"}) })
	assert.Equal(t, []string{"libc;2.39;x86_64;installed"}, r.ids())

	r = f.run(t, func(job *backend.Job) { f.b.GetPackages(job, core.Bits(core.FilterInstalled)) })
	assert.Equal(t, []string{"hello;2.10;x86_64;installed", "libc;2.39;x86_64;installed"}, r.ids())

	r = f.run(t, func(job *backend.Job) { f.b.GetPackages(job, core.Bits(core.FilterNotArch)) })
	assert.Empty(t, r.ids())
}

func TestDetailsAndFiles(t *testing.T) {
	f := setup(t, nil)

	r := f.run(t, func(job *backend.Job) { f.b.GetDetails(job, []string{"hello;2.10;x86_64;installed"}) })
	require.Len(t, r.details, 1)
	assert.Equal(t, "Prints a greeting", r.details[0].Summary)
	assert.Equal(t, core.GroupProgramming, r.details[0].Group)

	r = f.run(t, func(job *backend.Job) { f.b.GetFiles(job, []string{"hello;2.10;x86_64;installed"}) })
	require.Len(t, r.files, 1)
	assert.Equal(t, []string{"/usr/bin/hello"}, r.files[0].Files)

	r = f.run(t, func(job *backend.Job) { f.b.GetDetails(job, []string{"nope;1;x86_64;main"}) })
	requireCode(t, r, core.ErrorPackageNotFound)
}

func TestDependencies(t *testing.T) {
	f := setup(t, nil)

	r := f.run(t, func(job *backend.Job) { f.b.DependsOn(job, 0, []string{"tool;1.0;x86_64;main"}, false) })
	assert.Equal(t, []string{"libc;2.39;x86_64;installed"}, r.ids())

	r = f.run(t, func(job *backend.Job) { f.b.RequiredBy(job, 0, []string{"libc;2.39;x86_64;installed"}, true) })
	assert.ElementsMatch(t, []string{"hello;2.10;x86_64;installed", "tool;1.0;x86_64;main"}, r.ids())

	r = f.run(t, func(job *backend.Job) {
		f.b.RequiredBy(job, core.Bits(core.FilterInstalled), []string{"libc;2.39;x86_64;installed"}, false)
	})
	assert.Equal(t, []string{"hello;2.10;x86_64;installed"}, r.ids())
}

func TestInstallRequiresEula(t *testing.T) {
	f := setup(t, nil)
	id := "driver;5.0;x86_64;main"

	r := f.run(t, func(job *backend.Job) { f.b.InstallPackages(job, 0, []string{id}) })
	assert.Equal(t, core.ExitEulaRequired, r.exit)
	require.Len(t, r.eulas, 1)
	assert.Equal(t, "vendor-eula", r.eulas[0].EulaID)
	assert.Equal(t, "Vendor Inc", r.eulas[0].VendorName)

	f.b.AcceptEula("vendor-eula")
	r = f.run(t, func(job *backend.Job) { f.b.InstallPackages(job, 0, []string{id}) })
	assert.Equal(t, core.ExitSuccess, r.exit)
	assert.Contains(t, r.ids(), id)

	r = f.run(t, func(job *backend.Job) { f.b.Resolve(job, 0, []string{"driver"}) })
	assert.Equal(t, []string{"driver;5.0;x86_64;installed"}, r.ids())

	r = f.run(t, func(job *backend.Job) { f.b.InstallPackages(job, 0, []string{id}) })
	requireCode(t, r, core.ErrorPackageAlreadyInstalled)

	r = f.run(t, func(job *backend.Job) {
		f.b.InstallPackages(job, core.Bits(core.TransactionFlagAllowReinstall), []string{id})
	})
	assert.Equal(t, core.ExitSuccess, r.exit)
}

func TestInstallFlags(t *testing.T) {
	f := setup(t, nil)
	id := "tool;1.0;x86_64;main"

	r := f.run(t, func(job *backend.Job) {
		f.b.InstallPackages(job, core.Bits(core.TransactionFlagSimulate), []string{id})
	})
	assert.Equal(t, core.ExitSuccess, r.exit)
	require.Len(t, r.packages, 1)
	assert.Equal(t, core.InfoInstalling, r.packages[0].Info)

	r = f.run(t, func(job *backend.Job) {
		f.b.InstallPackages(job, core.Bits(core.TransactionFlagOnlyDownload), []string{id})
	})
	assert.Equal(t, core.ExitSuccess, r.exit)
	assert.Equal(t, core.InfoDownloading, r.packages[0].Info)

	r = f.run(t, func(job *backend.Job) { f.b.Resolve(job, core.Bits(core.FilterInstalled), []string{"tool"}) })
	requireCode(t, r, core.ErrorPackageNotFound)

	r = f.run(t, func(job *backend.Job) { f.b.InstallPackages(job, 0, []string{"not-an-id"}) })
	requireCode(t, r, core.ErrorPackageIDInvalid)
}

func TestUpdates(t *testing.T) {
	f := setup(t, nil)

	r := f.run(t, func(job *backend.Job) { f.b.GetUpdates(job, 0) })
	assert.Equal(t, []string{"hello;2.12;x86_64;main"}, r.ids())

	r = f.run(t, func(job *backend.Job) { f.b.GetUpdateDetail(job, []string{"hello;2.12;x86_64;main"}) })
	require.Len(t, r.updates, 1)
	assert.Equal(t, []string{"hello;2.10;x86_64;installed"}, r.updates[0].Updates)
	assert.Equal(t, "Bug fixes", r.updates[0].UpdateText)

	r = f.run(t, func(job *backend.Job) { f.b.GetUpdateDetail(job, []string{"libc;2.39;x86_64;installed"}) })
	requireCode(t, r, core.ErrorUpdateNotFound)

	r = f.run(t, func(job *backend.Job) { f.b.UpdatePackages(job, 0, []string{"hello;2.12;x86_64;main"}) })
	assert.Equal(t, core.ExitSuccess, r.exit)

	r = f.run(t, func(job *backend.Job) { f.b.Resolve(job, 0, []string{"hello"}) })
	assert.Equal(t, []string{"hello;2.12;x86_64;installed"}, r.ids())

	r = f.run(t, func(job *backend.Job) { f.b.GetUpdates(job, 0) })
	assert.Empty(t, r.packages)
}

func TestRemove(t *testing.T) {
	f := setup(t, nil)
	libc := "libc;2.39;x86_64;installed"

	r := f.run(t, func(job *backend.Job) { f.b.RemovePackages(job, 0, []string{libc}, false, false) })
	requireCode(t, r, core.ErrorDepResolutionFailed)

	r = f.run(t, func(job *backend.Job) {
		f.b.RemovePackages(job, core.Bits(core.TransactionFlagSimulate), []string{libc}, true, false)
	})
	assert.Equal(t, core.ExitSuccess, r.exit)
	assert.ElementsMatch(t, []string{libc, "hello;2.10;x86_64;installed"}, r.ids())

	r = f.run(t, func(job *backend.Job) {
		f.b.RemovePackages(job, 0, []string{"hello;2.10;x86_64;installed"}, false, true)
	})
	assert.Equal(t, core.ExitSuccess, r.exit)
	assert.ElementsMatch(t, []string{"hello;2.10;x86_64;installed", libc}, r.ids(), "autoremove takes unused deps")

	r = f.run(t, func(job *backend.Job) { f.b.GetPackages(job, core.Bits(core.FilterInstalled)) })
	assert.Empty(t, r.packages)

	r = f.run(t, func(job *backend.Job) { f.b.RemovePackages(job, 0, []string{"tool;1.0;x86_64;main"}, false, false) })
	requireCode(t, r, core.ErrorPackageNotInstalled)
}

const chainCatalog = `
[[package]]
name = "app"
version = "1.0"
arch = "x86_64"
repo = "main"
depends = ["libmid"]
installed = true

[[package]]
name = "libmid"
version = "1.0"
arch = "x86_64"
repo = "main"
depends = ["libbase"]
installed = true

[[package]]
name = "libbase"
version = "1.0"
arch = "x86_64"
repo = "main"
installed = true
`

func TestRemoveAutoremoveTransitive(t *testing.T) {
	f := setup(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "chain.toml"), []byte(chainCatalog), 0o644))
	r := f.run(t, func(job *backend.Job) { f.b.RepairSystem(job, 0) })
	require.Equal(t, core.ExitSuccess, r.exit)

	want := []string{"app;1.0;x86_64;installed", "libbase;1.0;x86_64;installed", "libmid;1.0;x86_64;installed"}
	r = f.run(t, func(job *backend.Job) {
		f.b.RemovePackages(job, core.Bits(core.TransactionFlagSimulate), []string{"app;1.0;x86_64;installed"}, false, true)
	})
	assert.Equal(t, want, r.ids())

	r = f.run(t, func(job *backend.Job) {
		f.b.RemovePackages(job, core.Bits(core.TransactionFlagSimulate), []string{"app;1.0;x86_64;installed"}, false, false)
	})
	assert.Equal(t, []string{"app;1.0;x86_64;installed"}, r.ids())

	r = f.run(t, func(job *backend.Job) {
		f.b.RemovePackages(job, 0, []string{"app;1.0;x86_64;installed"}, false, true)
	})
	require.Equal(t, core.ExitSuccess, r.exit)
	assert.Equal(t, want, r.ids())
	assert.Equal(t, 100, r.percent[len(r.percent)-1])

	r = f.run(t, func(job *backend.Job) { f.b.Resolve(job, core.Bits(core.FilterInstalled), []string{"libbase"}) })
	requireCode(t, r, core.ErrorPackageNotFound)
}

func TestCancel(t *testing.T) {
	f := setup(t, map[string]any{"delay": "200ms"})

	r := f.run(t, func(job *backend.Job) {
		f.b.GetPackages(job, 0)
		f.b.Cancel(job)
	})
	assert.Equal(t, core.ExitCancelled, r.exit)
	require.NotNil(t, r.err)
	assert.Equal(t, core.ErrorTransactionCancelled, r.err.Code)
}

func TestRepos(t *testing.T) {
	f := setup(t, nil)

	r := f.run(t, func(job *backend.Job) { f.b.GetRepoList(job, 0) })
	require.Len(t, r.repos, 2)
	assert.Equal(t, "main", r.repos[0].RepoID)
	assert.False(t, r.repos[1].Enabled)

	r = f.run(t, func(job *backend.Job) { f.b.RepoEnable(job, "extras", true) })
	assert.Equal(t, core.ExitSuccess, r.exit)
	assert.EqualValues(t, 1, f.notifier.count.Load())

	r = f.run(t, func(job *backend.Job) { f.b.SearchNames(job, 0, []string{"game"}) })
	assert.Equal(t, []string{"game;1.0;x86_64;extras"}, r.ids())

	r = f.run(t, func(job *backend.Job) { f.b.RepoSetData(job, "main", "mirror", "https://mirror.example.org") })
	assert.Equal(t, core.ExitSuccess, r.exit)

	r = f.run(t, func(job *backend.Job) { f.b.RepoSetData(job, "nope", "k", "v") })
	requireCode(t, r, core.ErrorRepoNotFound)

	r = f.run(t, func(job *backend.Job) { f.b.RepoRemove(job, core.Bits(core.TransactionFlagSimulate), "nope", false) })
	requireCode(t, r, core.ErrorRepoNotFound)

	r = f.run(t, func(job *backend.Job) { f.b.RepoRemove(job, 0, "extras", true) })
	assert.Equal(t, core.ExitSuccess, r.exit)
	assert.Equal(t, []string{"game;1.0;x86_64;extras"}, r.ids())
	assert.EqualValues(t, 3, f.notifier.count.Load())
}

func TestCategoriesAndUpgrades(t *testing.T) {
	f := setup(t, nil)

	r := f.run(t, func(job *backend.Job) { f.b.GetCategories(job) })
	require.Len(t, r.cats, 1)
	assert.Equal(t, "dev", r.cats[0].CatID)

	r = f.run(t, func(job *backend.Job) { f.b.GetDistroUpgrades(job) })
	require.Len(t, r.upgrades, 1)
	assert.Equal(t, "next", r.upgrades[0].Name)
}

func TestDownload(t *testing.T) {
	f := setup(t, nil)
	dir := filepath.Join(t.TempDir(), "downloads")

	r := f.run(t, func(job *backend.Job) { f.b.DownloadPackages(job, []string{"tool;1.0;x86_64;main"}, dir) })
	assert.Equal(t, core.ExitSuccess, r.exit)
	require.Len(t, r.files, 1)
	require.Len(t, r.files[0].Files, 1)

	file, err := catalog.ReadFile(r.files[0].Files[0])
	require.NoError(t, err)
	require.Len(t, file.Packages, 1)
	assert.Equal(t, "tool", file.Packages[0].Name)
	assert.Equal(t, []string{"libc.so.6"}, file.Packages[0].Depends)
}

func TestSignature(t *testing.T) {
	f := setup(t, nil)

	r := f.run(t, func(job *backend.Job) {
		f.b.InstallSignature(job, core.SigTypeGPG, "0xDEADBEEF", "tool;1.0;x86_64;main")
	})
	assert.Equal(t, core.ExitSuccess, r.exit)

	r = f.run(t, func(job *backend.Job) { f.b.InstallSignature(job, core.SigTypeUnknown, "0xDEADBEEF", "") })
	requireCode(t, r, core.ErrorNotSupported)

	r = f.run(t, func(job *backend.Job) { f.b.InstallSignature(job, core.SigTypeGPG, "", "") })
	requireCode(t, r, core.ErrorGPGFailure)
}

func TestRefreshCache(t *testing.T) {
	f := setup(t, nil)
	extra := "[[package]]\nname = \"fresh\"\nversion = \"1\"\narch = \"x86_64\"\nrepo = \"main\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "zz-fresh.toml"), []byte(extra), 0o644))

	r := f.run(t, func(job *backend.Job) { f.b.RefreshCache(job, false) })
	assert.Equal(t, core.ExitSuccess, r.exit)

	r = f.run(t, func(job *backend.Job) { f.b.Resolve(job, 0, []string{"fresh"}) })
	assert.Equal(t, []string{"fresh;1;x86_64;main"}, r.ids())

	offline := setup(t, map[string]any{"catalog_url": "https://example.org/catalog.git"},
		func(o *backend.Options) { o.Network = backend.StaticNetwork(core.NetworkOffline) })
	r = offline.run(t, func(job *backend.Job) { offline.b.RefreshCache(job, true) })
	requireCode(t, r, core.ErrorNoNetwork)
}

func TestMissingCatalog(t *testing.T) {
	f := setup(t, map[string]any{"catalog_dir": filepath.Join(t.TempDir(), "none")})

	r := f.run(t, func(job *backend.Job) { f.b.GetPackages(job, 0) })
	assert.Equal(t, core.ExitSuccess, r.exit)
	assert.Empty(t, r.packages)

	r = f.run(t, func(job *backend.Job) { f.b.RefreshCache(job, false) })
	requireCode(t, r, core.ErrorNoCache)
}

func TestRepair(t *testing.T) {
	f := setup(t, nil)
	r := f.run(t, func(job *backend.Job) { f.b.RepairSystem(job, 0) })
	assert.Equal(t, core.ExitSuccess, r.exit)
}

func TestJobReuse(t *testing.T) {
	f := setup(t, nil)
	job := backend.NewJob(context.Background())

	r := f.runJob(t, job, func(job *backend.Job) { f.b.Resolve(job, 0, []string{"hello"}) })
	assert.Equal(t, core.ExitSuccess, r.exit)
	assert.Equal(t, core.RoleResolve, job.Role())

	f.b.StartJob(job)
	f.b.ResetJob(job)
	f.b.StopJob(job)
	assert.Equal(t, core.RoleUnknown, job.Role())

	r = f.runJob(t, job, func(job *backend.Job) { f.b.SearchNames(job, 0, []string{"libc"}) })
	assert.Equal(t, core.RoleSearchName, job.Role())
	assert.Equal(t, []string{"libc;2.39;x86_64;installed"}, r.ids())
}

// local .deb files

func tarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func writeDeb(t *testing.T, dir string) string {
	t.Helper()
	control := "Package: local-tool\nVersion: 0.3\nArchitecture: x86_64\nInstalled-Size: 4\nSection: games\nDescription: A local tool\n longer text\n"
	members := []struct {
		name string
		body []byte
	}{
		{"debian-binary", []byte("2.0\n")},
		{"control.tar.gz", tarGz(t, map[string]string{"./control": control})},
		{"data.tar.gz", tarGz(t, map[string]string{"./usr/bin/local-tool": "#!/bin/sh\n"})},
	}

	path := filepath.Join(dir, "local-tool_0.3_x86_64.deb")
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	w := ar.NewWriter(out)
	require.NoError(t, w.WriteGlobalHeader())
	for _, m := range members {
		require.NoError(t, w.WriteHeader(&ar.Header{Name: m.name, ModTime: time.Unix(1700000000, 0), Mode: 0o644, Size: int64(len(m.body))}))
		_, err := w.Write(m.body)
		require.NoError(t, err)
	}
	return path
}

func TestLocalFiles(t *testing.T) {
	root := t.TempDir()
	f := setup(t, map[string]any{"root": root})
	deb := writeDeb(t, t.TempDir())
	id := "local-tool;0.3;x86_64;local"

	r := f.run(t, func(job *backend.Job) { f.b.GetDetailsLocal(job, []string{deb}) })
	require.Len(t, r.details, 1)
	assert.Equal(t, id, r.details[0].PackageID)
	assert.Equal(t, "A local tool", r.details[0].Summary)
	assert.Equal(t, core.GroupGames, r.details[0].Group)
	assert.EqualValues(t, 4096, r.details[0].Size)

	r = f.run(t, func(job *backend.Job) { f.b.GetFilesLocal(job, []string{deb}) })
	require.Len(t, r.files, 1)
	assert.Equal(t, []string{"/usr/bin/local-tool"}, r.files[0].Files)

	r = f.run(t, func(job *backend.Job) { f.b.InstallFiles(job, 0, []string{deb}) })
	assert.Equal(t, core.ExitSuccess, r.exit)
	assert.FileExists(t, filepath.Join(root, "usr", "bin", "local-tool"))

	r = f.run(t, func(job *backend.Job) { f.b.Resolve(job, core.Bits(core.FilterInstalled), []string{"local-tool"}) })
	assert.Equal(t, []string{"local-tool;0.3;x86_64;installed"}, r.ids())

	r = f.run(t, func(job *backend.Job) { f.b.GetDetailsLocal(job, []string{filepath.Join(root, "missing.deb")}) })
	requireCode(t, r, core.ErrorFileNotFound)

	badRpm := filepath.Join(t.TempDir(), "pkg.rpm")
	require.NoError(t, os.WriteFile(badRpm, []byte("x"), 0o644))
	r = f.run(t, func(job *backend.Job) { f.b.InstallFiles(job, 0, []string{badRpm}) })
	requireCode(t, r, core.ErrorInvalidPackageFile)

	tarball := filepath.Join(t.TempDir(), "pkg.tar")
	require.NoError(t, os.WriteFile(tarball, []byte("x"), 0o644))
	r = f.run(t, func(job *backend.Job) { f.b.GetFilesLocal(job, []string{tarball}) })
	requireCode(t, r, core.ErrorInvalidPackageFile)
}

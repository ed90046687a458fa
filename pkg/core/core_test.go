package core

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitfield(t *testing.T) {
	b := Bits(RoleResolve, RoleSearchName)
	assert.True(t, b.Contains(RoleResolve.Bit()))
	assert.True(t, b.Contains(Bits(RoleResolve, RoleSearchName)))
	assert.False(t, b.Contains(RoleGetFiles.Bit()))
	assert.False(t, b.Contains(0))

	b = b.Add(RoleGetFiles.Bit()).Remove(RoleResolve.Bit())
	assert.Equal(t, []Role{RoleGetFiles, RoleSearchName}, Values[Role](b))
	assert.Equal(t, "get-files;search-name", Join[Role](b))
	assert.Empty(t, Join[Filter](0))
}

func TestEnumNames(t *testing.T) {
	assert.Equal(t, "install-packages", RoleInstallPackages.String())
	assert.Equal(t, RoleInstallPackages, RoleFromString("install-packages"))
	assert.Equal(t, RoleUnknown, RoleFromString("bogus"))
	assert.Equal(t, "unknown", Role(-1).String())

	assert.Equal(t, FilterNotInstalled, FilterFromString("~installed"))
	assert.Equal(t, GroupProgramming, GroupFromString(GroupProgramming.String()))
	assert.Equal(t, TransactionFlagSimulate, TransactionFlagFromString(TransactionFlagSimulate.String()))
	assert.Equal(t, ExitEulaRequired, ExitFromString(ExitEulaRequired.String()))
	assert.Equal(t, SigTypeGPG, SigTypeFromString(SigTypeGPG.String()))
	assert.Equal(t, NetworkWifi, NetworkFromString(NetworkWifi.String()))

	var r Role
	require.NoError(t, r.UnmarshalText([]byte("repair-system")))
	assert.Equal(t, RoleRepairSystem, r)
	text, err := r.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "repair-system", string(text))
}

func TestAllRoles(t *testing.T) {
	roles := AllRoles()
	assert.NotContains(t, roles, RoleUnknown)
	assert.Equal(t, RoleCancel, roles[0])
	assert.Equal(t, RoleRepairSystem, roles[len(roles)-1])
	for _, role := range roles {
		assert.NotEqual(t, "unknown", role.String())
	}
}

func TestPackageID(t *testing.T) {
	id, err := ParsePackageID("hello;2.10;x86_64;main")
	require.NoError(t, err)
	assert.Equal(t, PackageID{Name: "hello", Version: "2.10", Arch: "x86_64", Data: "main"}, id)
	assert.Equal(t, "hello;2.10;x86_64;main", id.String())

	for _, bad := range []string{"", "hello", "hello;1.0;x86_64", ";1.0;x86_64;main", "a;b;c;d;e"} {
		_, err := ParsePackageID(bad)
		assert.Error(t, err, bad)
		assert.False(t, IsPackageID(bad), bad)
	}
	assert.True(t, IsPackageID("hello;;;"))

	assert.Equal(t, "yes", BoolToString(true))
	assert.Equal(t, "no", BoolToString(false))
}

func TestConfig(t *testing.T) {
	t.Run("default backend", func(t *testing.T) {
		conf := DefaultConfig()
		_, err := conf.DefaultBackendName()
		assert.ErrorIs(t, err, ErrConfigKeyMissing)

		var nilConf *Config
		_, err = nilConf.DefaultBackendName()
		assert.ErrorIs(t, err, ErrConfigKeyMissing)

		conf.Daemon.DefaultBackend = "dummy"
		name, err := conf.DefaultBackendName()
		require.NoError(t, err)
		assert.Equal(t, "dummy", name)
	})

	t.Run("backend options", func(t *testing.T) {
		conf := DefaultConfig()
		assert.NotNil(t, conf.BackendOptions("dummy"))
		conf.Backends["dummy"] = map[string]any{"delay": "5ms"}
		assert.Equal(t, "5ms", conf.BackendOptions("dummy")["delay"])
		assert.NotNil(t, (*Config)(nil).BackendOptions("dummy"))
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		conf, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
		require.NoError(t, err)
		assert.Empty(t, conf.Daemon.DefaultBackend)
		assert.Equal(t, "127.0.0.1:9477", conf.Metrics.Listen)
		assert.NotNil(t, conf.Backends)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := []byte(`
daemon:
  default_backend: dummy
  install_dir: /opt/upkgd
metrics:
  enabled: true
backends:
  dummy:
    delay: 10ms
    parallel: true
`)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		conf, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "dummy", conf.Daemon.DefaultBackend)
		assert.Equal(t, "/opt/upkgd", conf.Daemon.InstallDir)
		assert.True(t, conf.Metrics.Enabled)
		assert.Equal(t, "10ms", conf.BackendOptions("dummy")["delay"])
		assert.Equal(t, true, conf.BackendOptions("dummy")["parallel"])
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("daemon:\n  default_backend: dummy\n"), 0o644))
		t.Setenv("UPKGD_DAEMON_DEFAULT_BACKEND", "hif")

		conf, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "hif", conf.Daemon.DefaultBackend)
	})

	t.Run("save and load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.yaml")
		conf := DefaultConfig()
		conf.Daemon.DefaultBackend = "dummy"
		conf.History.Path = "/tmp/history.db"
		require.NoError(t, SaveConfig(conf, path))

		loaded, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "dummy", loaded.Daemon.DefaultBackend)
		assert.Equal(t, "/tmp/history.db", loaded.History.Path)
	})

	t.Run("environment applies without home directory", func(t *testing.T) {
		t.Setenv("HOME", "")
		t.Setenv("UPKGD_DAEMON_DEFAULT_BACKEND", "hif")

		_, err := DefaultConfigPath()
		require.Error(t, err)

		conf, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "hif", conf.Daemon.DefaultBackend)
		assert.Equal(t, "127.0.0.1:9477", conf.Metrics.Listen)
	})

	t.Run("encode", func(t *testing.T) {
		conf := DefaultConfig()
		conf.Daemon.DefaultBackend = "dummy"
		conf.Backends["dummy"] = map[string]any{"arch": "x86_64"}

		var buf bytes.Buffer
		require.NoError(t, EncodeConfig(&buf, conf))
		assert.Contains(t, buf.String(), "daemon:\n  default_backend: dummy\n")
		assert.Contains(t, buf.String(), "backends:\n  dummy:\n    arch: x86_64\n")
	})

	t.Run("invalid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("daemon: [unclosed\n"), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

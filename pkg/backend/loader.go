// pkg/backend/loader.go
package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Factory creates a fresh instance of a compiled-in backend module
type Factory func() Module

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// aliases maps retired backend names to their successors
var aliases = map[string]string{
	"hawkey": "hif",
}

// Register adds or replaces a compiled-in backend module under name
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Registered returns the names of the compiled-in backend modules
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CanonicalName applies the historical rename table to a backend identifier
func CanonicalName(name string) string {
	if renamed, ok := aliases[name]; ok {
		return renamed
	}
	return name
}

// LibraryName is the file name of a shared-object backend module
func LibraryName(name string) string {
	return fmt.Sprintf("upkgd_backend_%s.so", name)
}

// Loader locates backend modules. Shared objects in the local build tree are
// preferred, then the installed directory, then compiled-in modules.
type Loader struct {
	LocalDir   string // e.g. ../backends, searched as <LocalDir>/<dir>/<lib>
	InstallDir string // e.g. /usr/lib/upkgd-backend
	logger     zerolog.Logger
}

// NewLoader creates a loader for the given search directories
func NewLoader(localDir, installDir string, logger zerolog.Logger) *Loader {
	return &Loader{
		LocalDir:   localDir,
		InstallDir: installDir,
		logger:     logger,
	}
}

// LibraryPath returns the shared-object path for name, or "" if none exists
func (l *Loader) LibraryPath(name string) string {
	filename := LibraryName(name)

	if l.LocalDir != "" {
		// test_spawn, test_fail, etc. live in the 'test' folder
		directory := name
		if strings.HasPrefix(name, "test_") {
			directory = "test"
		}
		path := filepath.Join(l.LocalDir, directory, filename)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		l.logger.Debug().Str("path", path).Msg("local backend not found")
	}

	if l.InstallDir != "" {
		path := filepath.Join(l.InstallDir, filename)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Open resolves name to a loadable unit and opens it. The returned source is
// the shared-object path or "builtin".
func (l *Loader) Open(name string) (unit any, source string, err error) {
	if path := l.LibraryPath(name); path != "" {
		l.logger.Debug().Str("path", path).Msg("opening backend module")
		unit, err := openPlugin(path)
		if err != nil {
			return nil, path, err
		}
		return unit, path, nil
	}

	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if ok {
		return factory(), "builtin", nil
	}

	return nil, "", ErrModuleNotFound
}

// openPlugin opens a shared object and returns its exported Module symbol
func openPlugin(path string) (any, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening module failed: %w", err)
	}

	sym, err := p.Lookup("Module")
	if err != nil {
		return nil, ErrNoDescription
	}

	// exported variables are looked up by address
	if ptr, ok := sym.(*Module); ok {
		return *ptr, nil
	}
	return sym, nil
}

// pkg/backend/errors.go
package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyLoaded indicates Load was called while a module is loaded
	ErrAlreadyLoaded = errors.New("backend already loaded")

	// ErrNotLoaded indicates an accessor was used without a loaded module
	ErrNotLoaded = errors.New("backend not loaded")

	// ErrNeverLoaded indicates Unload was called before any Load
	ErrNeverLoaded = errors.New("backend was never loaded")

	// ErrModuleNotFound indicates no loadable unit matched the backend name
	ErrModuleNotFound = errors.New("backend module not found")

	// ErrNoDescription indicates the unit does not provide the mandatory description
	ErrNoDescription = errors.New("could not find description in backend module")

	// ErrAlreadyWatching indicates a file watch is already registered
	ErrAlreadyWatching = errors.New("file watch already registered")
)

// LoadError is returned by Load for environmental failures
type LoadError struct {
	Name string // Backend identifier, if known
	Path string // Loadable unit that was tried, if any
	Err  error  // Underlying error
}

func (e *LoadError) Error() string {
	switch {
	case e.Name == "":
		return fmt.Sprintf("loading backend: %v", e.Err)
	case e.Path != "":
		return fmt.Sprintf("loading backend %s from %s: %v", e.Name, e.Path, e.Err)
	default:
		return fmt.Sprintf("loading backend %s: %v", e.Name, e.Err)
	}
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ContractError is the panic value raised when a caller breaks a dispatch
// precondition: the transport must check IsImplemented and wire the finished
// callback before calling an entry point.
type ContractError struct {
	Op  string
	Msg string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func contractf(op string, format string, args ...any) {
	panic(&ContractError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// errors.go
package upkgd

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported indicates the loaded backend lacks the role
	ErrNotSupported = errors.New("operation not supported by backend")

	// ErrJobFailed indicates a job finished without success
	ErrJobFailed = errors.New("job failed")
)

// Error wraps an error with additional context
type Error struct {
	Op      string // Operation that failed
	Backend string // Backend name if applicable
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Backend, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

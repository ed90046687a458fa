// internal/logging/logging.go
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the console logger for app and installs it as the global
// logger. Debug lowers the level from info to debug.
func New(app string, debug bool) zerolog.Logger {
	return NewWithWriter(os.Stderr, app, debug)
}

// NewWithWriter is New writing to w
func NewWithWriter(w io.Writer, app string, debug bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// Package logging builds the zerolog loggers used across relsync.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configures logger construction.
type Options struct {
	// Out defaults to os.Stderr.
	Out     io.Writer
	Debug   bool
	NoColor bool
	// JSON disables the console writer (machine readable output for CI).
	JSON bool
}

// New returns a console logger with RFC3339 timestamps.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	if opts.JSON {
		return zerolog.New(out).Level(level).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: opts.NoColor}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// WithRun attaches a short run identifier so log lines of one release run
// can be correlated. The identifier is returned as well.
func WithRun(l zerolog.Logger) (zerolog.Logger, string) {
	id := uuid.NewString()[:8]
	return l.With().Str("run", id).Logger(), id
}

// Printf adapts l to the printf-style debug hooks used by the git package.
func Printf(l zerolog.Logger) func(format string, args ...any) {
	return func(format string, args ...any) {
		l.Debug().Msg(fmt.Sprintf(format, args...))
	}
}

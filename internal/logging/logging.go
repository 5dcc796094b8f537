// Package logging builds the process-wide zerolog.Logger, the way the
// teacher wires zerolog: one configured logger built in main, passed
// down through constructors rather than used via a package-level
// global.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a structured JSON logger at the given level ("debug",
// "info", "warn", "error"). Unknown levels default to info.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// WithCorrelation returns a child logger tagged with a correlation id
// field, for use across a single pair/intent's lifetime.
func WithCorrelation(l zerolog.Logger, field, value string) zerolog.Logger {
	return l.With().Str(field, value).Logger()
}

// Package logging configures the process-wide zerolog output and hands out
// component-scoped loggers so call sites never reach for a bare log.Printf.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Init configures the global zerolog level and writer. Call once at startup.
// When pretty is true, output goes through zerolog's console writer (for a
// human at a terminal); otherwise it's newline-delimited JSON suitable for
// a log collector.
func Init(levelName string, pretty bool) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(levelName))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = os.Stderr
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(w).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	return logger
}

// Component returns a child logger tagged with the given component name,
// mirroring the per-subsystem logging the acquisition pipeline's pieces use
// (scheduler, indexer, download, import).
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

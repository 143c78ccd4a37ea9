// logging.go — process-wide structured logger plus per-connection and
// per-query child loggers for correlation, per SPEC_FULL.md §4.10.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds the daemon's root logger, writing level-tagged JSON lines
// to w at the given level ("debug", "info", "warn", "error"). An
// unrecognized level falls back to info.
func New(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// NewConsole builds a root logger writing human-readable, colorized
// lines to stderr.
func NewConsole(level string) zerolog.Logger {
	return New(zerolog.ConsoleWriter{Out: os.Stderr}, level)
}

// ForConnection returns a child logger tagged with conn_id.
func ForConnection(base zerolog.Logger, connID uint64) zerolog.Logger {
	return base.With().Uint64("conn_id", connID).Logger()
}

// ForQuery returns a child logger additionally tagged with query_id.
func ForQuery(connLogger zerolog.Logger, queryID uint16) zerolog.Logger {
	return connLogger.With().Uint16("query_id", queryID).Logger()
}

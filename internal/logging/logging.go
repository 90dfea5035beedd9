// Package logging configures the process logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a console logger at the given level. An unparseable level falls
// back to info. Log output goes to stderr so command output stays pipeable.
func New(levelStr string) zerolog.Logger {
	return NewWriter(os.Stderr, levelStr)
}

// NewWriter builds a console logger writing to w.
func NewWriter(w io.Writer, levelStr string) zerolog.Logger {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

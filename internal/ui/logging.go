package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger keeps the printf-style surface used across the CLI while writing
// leveled records through zerolog. A nil *Logger discards everything.
type Logger struct {
	Debug bool
	zl    zerolog.Logger
}

// NewLogger returns a human-readable console logger on stdout.
func NewLogger(debug bool) *Logger {
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}
	return newLogger(out, debug)
}

// NewJSONLogger returns a logger emitting one JSON object per record.
func NewJSONLogger(w io.Writer, debug bool) *Logger {
	return newLogger(w, debug)
}

// NopLogger returns a logger that drops every record.
func NopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func newLogger(w io.Writer, debug bool) *Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	return &Logger{
		Debug: debug,
		zl:    zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

// Zerolog exposes the underlying logger for structured fields.
func (l *Logger) Zerolog() zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return l.zl
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || !l.Debug {
		return
	}
	l.zl.Debug().Msg(msg(format, args))
}

func (l *Logger) Infof(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Info().Msg(msg(format, args))
}

func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Warn().Msg(msg(format, args))
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Error().Msg(msg(format, args))
}

func msg(format string, args []any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}

package monitoring

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger writes structured events for the command line tools. Package code
// keeps calling Logf and Debugf; Install bridges both into zerolog.
type Logger struct {
	logger zerolog.Logger
}

// NewZerolog returns a Logger writing JSON events to w at the given level.
func NewZerolog(w io.Writer, level zerolog.Level) *Logger {
	logger := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
	return &Logger{logger: logger}
}

// NewConsoleLogger returns a human-readable Logger on stderr.
func NewConsoleLogger(level zerolog.Level) *Logger {
	return NewZerolog(zerolog.ConsoleWriter{Out: os.Stderr}, level)
}

// Logf matches the signature accepted by SetLogger.
func (l *Logger) Logf(format string, v ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, v...))
}

// Debugf is the debug-level counterpart of Logf.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, v...))
}

// Error logs err with the component tag and optional fields.
func (l *Logger) Error(component string, err error, fields map[string]interface{}) {
	event := l.logger.Error().Str("component", component).Err(err)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg("operation failed")
}

// ParseLevel maps a flag value such as "debug" or "warn" to a zerolog level.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(s)
}

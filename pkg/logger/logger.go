// Package logger defines the logging abstraction used across pricewatch
package logger

import (
	"fmt"
	"strings"
)

type Level int8

const (
	Disabled   Level = -1   // Disabled turns logging off.
	TraceLevel Level = iota // TraceLevel is used for per entry reconciliation details.
	DebugLevel              // DebugLevel is used for debugging information.
	InfoLevel               // InfoLevel is used for informational messages.
	WarnLevel               // WarnLevel is used for recoverable failures such as an unavailable price.
	ErrorLevel              // ErrorLevel is used for failures that need attention.
	FatalLevel              // FatalLevel logs and exits the program.
	NoLevel                 // NoLevel is used for no logging level.
)

var levelNames = map[string]Level{
	"disabled": Disabled,
	"trace":    TraceLevel,
	"debug":    DebugLevel,
	"info":     InfoLevel,
	"warn":     WarnLevel,
	"warning":  WarnLevel,
	"error":    ErrorLevel,
	"fatal":    FatalLevel,
}

// ParseLevel converts a level name into a Level
func ParseLevel(name string) (Level, error) {
	level, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return NoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

type Logger interface {
	// Derived loggers carrying structured fields
	WithField(key string, value any) Logger  // WithField returns a logger with the given key-value pair.
	WithFields(fields map[string]any) Logger // WithFields returns a logger with the given fields.
	WithError(err error) Logger              // WithError returns a logger with the given error.

	Trace(args ...any)
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Fatal(args ...any) // Fatal logs the message and then exits the program.

	Tracef(format string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)

	SetLevel(level Level) // SetLevel sets the minimum level written.
	GetLevel() Level      // GetLevel returns the minimum level written.
}

// Options configures a logger backend
type Options struct {
	Level      string // Minimum level name, e.g. "info"
	TimeFormat string // Layout used for timestamps in console output
	Colored    bool   // Colour console output
	JSON       bool   // Emit JSON lines instead of console output
}

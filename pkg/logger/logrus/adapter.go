// Package logrus adapts sirupsen/logrus to logger.Logger
package logrus

import (
	"io"
	"os"

	"github.com/raykavin/pricewatch/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Adapter implements logger.Logger on top of a logrus entry
type Adapter struct {
	*logrus.Entry
}

// New builds a logrus backed logger writing to stdout
func New(options logger.Options) (*Adapter, error) {
	return NewWithWriter(os.Stdout, options)
}

// NewWithWriter builds a logrus backed logger writing to out
func NewWithWriter(out io.Writer, options logger.Options) (*Adapter, error) {
	level, err := logger.ParseLevel(options.Level)
	if err != nil {
		return nil, err
	}

	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(toLogrusLevel(level))

	if options.JSON {
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: options.TimeFormat})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: options.TimeFormat,
			ForceColors:     options.Colored,
			DisableColors:   !options.Colored,
		})
	}

	if level == logger.Disabled {
		base.SetOutput(io.Discard)
	}

	return &Adapter{logrus.NewEntry(base)}, nil
}

// WithField implements logger.Logger.
func (l *Adapter) WithField(key string, value any) logger.Logger {
	return &Adapter{l.Entry.WithField(key, value)}
}

// WithFields implements logger.Logger.
func (l *Adapter) WithFields(fields map[string]any) logger.Logger {
	return &Adapter{l.Entry.WithFields(fields)}
}

// WithError implements logger.Logger.
func (l *Adapter) WithError(err error) logger.Logger {
	return &Adapter{l.Entry.WithError(err)}
}

// SetLevel implements logger.Logger.
func (l *Adapter) SetLevel(level logger.Level) {
	l.Logger.SetLevel(toLogrusLevel(level))
}

// GetLevel implements logger.Logger.
func (l *Adapter) GetLevel() logger.Level {
	switch l.Logger.GetLevel() {
	case logrus.TraceLevel:
		return logger.TraceLevel
	case logrus.DebugLevel:
		return logger.DebugLevel
	case logrus.InfoLevel:
		return logger.InfoLevel
	case logrus.WarnLevel:
		return logger.WarnLevel
	case logrus.ErrorLevel:
		return logger.ErrorLevel
	case logrus.FatalLevel, logrus.PanicLevel:
		return logger.FatalLevel
	default:
		return logger.NoLevel
	}
}

func toLogrusLevel(level logger.Level) logrus.Level {
	switch level {
	case logger.TraceLevel:
		return logrus.TraceLevel
	case logger.DebugLevel:
		return logrus.DebugLevel
	case logger.WarnLevel:
		return logrus.WarnLevel
	case logger.ErrorLevel:
		return logrus.ErrorLevel
	case logger.FatalLevel:
		return logrus.FatalLevel
	case logger.Disabled:
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

package zerolog

import (
	"fmt"
	"io"
	"os"

	"github.com/raykavin/pricewatch/pkg/logger"
	"github.com/rs/zerolog"
)

// Adapter implements logger.Logger on top of zerolog
type Adapter struct {
	*zerolog.Logger
}

// NewAdapter wraps an existing zerolog logger
func NewAdapter(log *zerolog.Logger) *Adapter {
	return &Adapter{log}
}

// Nop returns a logger that discards everything, useful in tests
func Nop() *Adapter {
	log := zerolog.Nop()
	return &Adapter{&log}
}

// New builds a zerolog backed logger writing to stdout
func New(options logger.Options) (*Adapter, error) {
	return NewWithWriter(os.Stdout, options)
}

// NewWithWriter builds a zerolog backed logger writing to out
func NewWithWriter(out io.Writer, options logger.Options) (*Adapter, error) {
	level, err := logger.ParseLevel(options.Level)
	if err != nil {
		return nil, err
	}

	// zerolog drops trace events below its global level unless asked otherwise
	if level == logger.TraceLevel {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}

	var writer io.Writer = out
	if !options.JSON {
		writer = consoleWriter(out, options.TimeFormat, options.Colored)
	}

	log := zerolog.New(writer).
		Level(toZerologLevel(level)).
		With().
		Timestamp().
		Logger()

	return &Adapter{&log}, nil
}

// GetLevel implements logger.Logger.
func (z *Adapter) GetLevel() logger.Level {
	return toLevel(z.Logger.GetLevel())
}

// SetLevel implements logger.Logger.
func (z *Adapter) SetLevel(level logger.Level) {
	updated := z.Logger.Level(toZerologLevel(level))
	z.Logger = &updated
}

func (z *Adapter) Trace(args ...any) { z.Logger.Trace().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Debug(args ...any) { z.Logger.Debug().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Info(args ...any)  { z.Logger.Info().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Warn(args ...any)  { z.Logger.Warn().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Error(args ...any) { z.Logger.Error().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Fatal(args ...any) { z.Logger.Fatal().Msg(fmt.Sprint(args...)) }

func (z *Adapter) Tracef(format string, args ...any) { z.Logger.Trace().Msgf(format, args...) }
func (z *Adapter) Debugf(format string, args ...any) { z.Logger.Debug().Msgf(format, args...) }
func (z *Adapter) Infof(format string, args ...any)  { z.Logger.Info().Msgf(format, args...) }
func (z *Adapter) Warnf(format string, args ...any)  { z.Logger.Warn().Msgf(format, args...) }
func (z *Adapter) Errorf(format string, args ...any) { z.Logger.Error().Msgf(format, args...) }
func (z *Adapter) Fatalf(format string, args ...any) { z.Logger.Fatal().Msgf(format, args...) }

// WithError implements logger.Logger.
func (z *Adapter) WithError(err error) logger.Logger {
	derived := z.With().Err(err).Logger()
	return &Adapter{&derived}
}

// WithField implements logger.Logger.
func (z *Adapter) WithField(key string, value any) logger.Logger {
	derived := z.With().Interface(key, value).Logger()
	return &Adapter{&derived}
}

// WithFields implements logger.Logger.
func (z *Adapter) WithFields(fields map[string]any) logger.Logger {
	derived := z.With().Fields(fields).Logger()
	return &Adapter{&derived}
}

var levels = []struct {
	ours   logger.Level
	theirs zerolog.Level
}{
	{logger.Disabled, zerolog.Disabled},
	{logger.NoLevel, zerolog.NoLevel},
	{logger.TraceLevel, zerolog.TraceLevel},
	{logger.DebugLevel, zerolog.DebugLevel},
	{logger.InfoLevel, zerolog.InfoLevel},
	{logger.WarnLevel, zerolog.WarnLevel},
	{logger.ErrorLevel, zerolog.ErrorLevel},
	{logger.FatalLevel, zerolog.FatalLevel},
}

func toLevel(level zerolog.Level) logger.Level {
	for _, l := range levels {
		if l.theirs == level {
			return l.ours
		}
	}
	return logger.NoLevel
}

func toZerologLevel(level logger.Level) zerolog.Level {
	for _, l := range levels {
		if l.ours == level {
			return l.theirs
		}
	}
	return zerolog.NoLevel
}

package zerolog

import (
	"io"
	"strings"
	"time"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"
)

const (
	messageWidth      = 60
	defaultTimeLayout = "2006-01-02 15:04:05"
)

func consoleWriter(out io.Writer, timeLayout string, colored bool) zerolog.ConsoleWriter {
	if timeLayout == "" {
		timeLayout = defaultTimeLayout
	}

	writer := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    !colored,
		TimeFormat: timeLayout,
	}

	if colored {
		writer.FormatLevel = formatLevel
		writer.FormatMessage = formatMessage
		writer.FormatTimestamp = func(i any) string {
			return formatTimestamp(i, timeLayout)
		}
	}

	return writer
}

func formatLevel(i any) string {
	switch i {
	case zerolog.LevelTraceValue:
		return term.Cyanf("[TRC]")
	case zerolog.LevelDebugValue:
		return term.Cyanf("[DBG]")
	case zerolog.LevelInfoValue:
		return term.Greenf("[INF]")
	case zerolog.LevelWarnValue:
		return term.Yellowf("[WRN]")
	case zerolog.LevelErrorValue:
		return term.Redf("[ERR]")
	case zerolog.LevelFatalValue, zerolog.LevelPanicValue:
		return term.Redf("[FTL]")
	default:
		return term.Whitef("[???]")
	}
}

// formatMessage pads short messages so structured fields line up
func formatMessage(i any) string {
	msg, ok := i.(string)
	if !ok || msg == "" {
		return ">"
	}

	if len(msg) < messageWidth {
		msg += strings.Repeat(" ", messageWidth-len(msg))
	}

	return term.Whitef("> %s", msg)
}

func formatTimestamp(i any, layout string) string {
	raw, ok := i.(string)
	if !ok {
		return term.Cyanf("[%v]", i)
	}

	if ts, err := time.Parse(zerolog.TimeFieldFormat, raw); err == nil {
		raw = ts.Local().Format(layout)
	}

	return term.Cyanf("[%s]", raw)
}

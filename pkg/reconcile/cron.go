package reconcile

import (
	"fmt"

	"github.com/raykavin/pricewatch/pkg/logger"
)

// cronLogger routes robfig/cron diagnostics to logger.Logger
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.WithFields(pairs(keysAndValues)).Debug("scheduler: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.WithFields(pairs(keysAndValues)).WithError(err).Error("scheduler: " + msg)
}

func pairs(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}

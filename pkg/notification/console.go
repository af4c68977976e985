package notification

import (
	"context"
	"fmt"

	"github.com/raykavin/pricewatch/pkg/core"
	"github.com/raykavin/pricewatch/pkg/logger"
)

// Console writes notifications to the log instead of a chat. Used when no bot is configured.
type Console struct {
	log logger.Logger
}

// NewConsole creates a Console notifier
func NewConsole(log logger.Logger) *Console {
	return &Console{log: log}
}

// Notify logs the message for userID
func (c *Console) Notify(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrNotificationFailed, err)
	}

	c.log.WithField("user", userID).Info(text)
	return nil
}

func (c *Console) Start() {}

func (c *Console) Stop() {}

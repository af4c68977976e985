// Package notification provides the chat transports that deliver alerts and receive commands
package notification

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/raykavin/pricewatch/pkg/command"
	"github.com/raykavin/pricewatch/pkg/core"
	"github.com/raykavin/pricewatch/pkg/logger"
	tb "gopkg.in/tucnak/telebot.v2"
)

const (
	defaultPollTimeout = 10 * time.Second
	connectAttempts    = 5
)

// sender is the part of *tb.Bot used to deliver messages
type sender interface {
	Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
}

// Telegram implements the core.NotifierWithStart interface and routes bot commands to a command.Service
type Telegram struct {
	settings *core.Settings
	service  *command.Service
	log      logger.Logger
	client   *tb.Bot
	sender   sender

	pollTimeout time.Duration
}

// Option is a function that configures a Telegram instance
type Option func(telegram *Telegram)

// WithPollTimeout sets the long polling timeout
func WithPollTimeout(timeout time.Duration) Option {
	return func(telegram *Telegram) {
		if timeout > 0 {
			telegram.pollTimeout = timeout
		}
	}
}

// NewTelegram connects to the Bot API and registers the command handlers
func NewTelegram(service *command.Service, settings *core.Settings, log logger.Logger,
	options ...Option) (*Telegram, error) {

	bot := &Telegram{
		settings: settings,
		service:  service,
		log:      log,

		pollTimeout: defaultPollTimeout,
	}

	for _, option := range options {
		option(bot)
	}

	poller := &tb.LongPoller{Timeout: bot.pollTimeout}
	client, err := connect(tb.Settings{
		Token:  settings.Telegram.Token,
		Poller: tb.NewMiddlewarePoller(poller, authorize(settings.Telegram.Users, bot.log)),
	}, bot.log)
	if err != nil {
		return nil, err
	}

	if err := setupCommands(client); err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	bot.client = client
	bot.sender = client
	registerHandlers(client, bot)

	return bot, nil
}

// connect creates the bot client, retrying while the Bot API is unreachable
func connect(settings tb.Settings, log logger.Logger) (*tb.Bot, error) {
	retry := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    10 * time.Second,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		client, err := tb.NewBot(settings)
		if err == nil {
			return client, nil
		}

		lastErr = err
		wait := retry.Duration()
		log.WithError(err).WithField("attempt", attempt).Warnf("telegram unreachable, retrying in %s", wait)
		time.Sleep(wait)
	}

	return nil, fmt.Errorf("failed to create telegram bot: %w", lastErr)
}

// authorize filters updates from users outside the allow-list. An empty list allows everyone.
func authorize(users []int64, log logger.Logger) func(*tb.Update) bool {
	return func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Sender == nil {
			return false
		}

		if len(users) == 0 || slices.Contains(users, u.Message.Sender.ID) {
			return true
		}

		log.WithField("user", u.Message.Sender.ID).Warn("unauthorized user")
		return false
	}
}

// setupCommands registers the bot command menu
func setupCommands(client *tb.Bot) error {
	return client.SetCommands([]tb.Command{
		{Text: "/track", Description: "Start tracking a cryptocurrency"},
		{Text: "/alerts", Description: "View your active alerts"},
		{Text: "/remove", Description: "Stop tracking a cryptocurrency"},
		{Text: "/help", Description: "Show help message"},
	})
}

// registerHandlers registers all command handlers
func registerHandlers(client *tb.Bot, bot *Telegram) {
	client.Handle("/start", bot.HelpHandle)
	client.Handle("/help", bot.HelpHandle)
	client.Handle("/track", bot.TrackHandle)
	client.Handle("/alerts", bot.AlertsHandle)
	client.Handle("/list", bot.AlertsHandle)
	client.Handle("/remove", bot.RemoveHandle)
}

// Start begins long polling in the background
func (t *Telegram) Start() {
	go t.client.Start()
	t.log.Info("telegram bot started")
}

// Stop ends long polling
func (t *Telegram) Stop() {
	t.client.Stop()
	t.log.Info("telegram bot stopped")
}

// Notify sends a plain text message to a single user
func (t *Telegram) Notify(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrNotificationFailed, err)
	}

	if _, err := t.sender.Send(&tb.User{ID: userID}, text); err != nil {
		return fmt.Errorf("%w: user %d: %w", core.ErrNotificationFailed, userID, err)
	}
	return nil
}

// reply sends a command answer back to the user who issued it
func (t *Telegram) reply(to *tb.User, answer command.Reply) {
	options := []interface{}{}
	if answer.HTML {
		options = append(options, tb.ModeHTML)
	}

	if _, err := t.sender.Send(to, answer.Text, options...); err != nil {
		t.log.WithField("user", to.ID).WithError(err).Error("failed to send reply")
	}
}

// HelpHandle answers /start and /help
func (t *Telegram) HelpHandle(m *tb.Message) {
	t.reply(m.Sender, t.service.Help())
}

// TrackHandle answers /track <asset>
func (t *Telegram) TrackHandle(m *tb.Message) {
	answer, err := t.service.Track(context.Background(), m.Sender.ID, argument(m.Payload))
	if err != nil {
		t.log.WithField("user", m.Sender.ID).WithError(err).Debug("track request refused")
	}
	t.reply(m.Sender, answer)
}

// AlertsHandle answers /alerts and /list
func (t *Telegram) AlertsHandle(m *tb.Message) {
	t.reply(m.Sender, t.service.List(context.Background(), m.Sender.ID))
}

// RemoveHandle answers /remove <asset>
func (t *Telegram) RemoveHandle(m *tb.Message) {
	answer, err := t.service.Remove(m.Sender.ID, argument(m.Payload))
	if err != nil {
		t.log.WithField("user", m.Sender.ID).WithError(err).Debug("remove request refused")
	}
	t.reply(m.Sender, answer)
}

// argument returns the first word of a command payload
func argument(payload string) string {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

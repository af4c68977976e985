package core

// DuplicatePolicy decides what a second track request for the same asset does
type DuplicatePolicy string

const (
	// PolicyReject keeps the existing record and reports ErrAlreadyTracking
	PolicyReject DuplicatePolicy = "reject"
	// PolicyReplace discards the existing record and starts over
	PolicyReplace DuplicatePolicy = "replace"
)

// Valid reports whether p is a known policy
func (p DuplicatePolicy) Valid() bool {
	return p == PolicyReject || p == PolicyReplace
}

// Settings represents the runtime configuration shared by the command surface and the bot
type Settings struct {
	Thresholds Thresholds       // Levels assigned to every new record
	Duplicate  DuplicatePolicy  // Behaviour of a repeated track request
	Telegram   TelegramSettings // Telegram transport settings
}

// TelegramSettings holds configuration for Telegram integration
type TelegramSettings struct {
	Enabled bool    // Whether the Telegram bot is started
	Token   string  // Telegram bot token
	Users   []int64 // Allowed user IDs, empty allows everyone
}

package core

import "context"

// PriceSource quotes the current price of an asset in the reference currency.
// Implementations must be safe for concurrent use. Every failure wraps
// ErrPriceUnavailable.
type PriceSource interface {
	Price(ctx context.Context, assetID string) (float64, error)
}

// Notifier delivers a text message to a single user
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// NotifierWithStart is a notifier that also owns a long running transport
type NotifierWithStart interface {
	Notifier
	Start()
	Stop()
}

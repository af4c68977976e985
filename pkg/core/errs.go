package core

import "errors"

var (
	ErrAlreadyTracking    = errors.New("already tracking asset")
	ErrNotFound           = errors.New("tracking record not found")
	ErrPriceUnavailable   = errors.New("price unavailable")
	ErrNotificationFailed = errors.New("notification failed")
	ErrInvalidPrice       = errors.New("price must be positive")
	ErrNoThresholds       = errors.New("empty threshold set")
	ErrThresholdGrowth    = errors.New("remaining thresholds are not a subset of pending thresholds")
	ErrEmptyAsset         = errors.New("empty asset id")
)

package core

import (
	"math"
	"strings"
	"time"
)

// Direction of a price move relative to the initial price
type Direction string

const (
	DirectionIncreased Direction = "increased"
	DirectionDecreased Direction = "decreased"
)

// TrackingRecord is one user's watch on one asset
type TrackingRecord struct {
	ID           string     `json:"id"` // Unique per created record, a re-tracked asset gets a new ID
	UserID       int64      `json:"user_id"`
	AssetID      string     `json:"asset_id"`
	InitialPrice float64    `json:"initial_price"`
	Pending      Thresholds `json:"pending"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Clone returns a copy that shares no memory with r
func (r TrackingRecord) Clone() TrackingRecord {
	r.Pending = r.Pending.Clone()
	return r
}

// Entry is a single row of a store snapshot
type Entry struct {
	UserID  int64
	AssetID string
	Record  TrackingRecord
}

// Change describes the move from the initial price to a current price
type Change struct {
	Percent   float64
	Abs       float64
	Direction Direction
}

// ChangeFrom computes the percentage change between initial and current.
// A zero move counts as decreased.
func ChangeFrom(initial, current float64) Change {
	percent := (current - initial) / initial * 100

	direction := DirectionDecreased
	if percent > 0 {
		direction = DirectionIncreased
	}

	return Change{
		Percent:   percent,
		Abs:       math.Abs(percent),
		Direction: direction,
	}
}

// NormalizeAsset trims and lower-cases an asset identifier
func NormalizeAsset(assetID string) string {
	return strings.ToLower(strings.TrimSpace(assetID))
}

// ValidateRecord checks the arguments of a store insert
func ValidateRecord(assetID string, initialPrice float64, thresholds Thresholds) error {
	if assetID == "" {
		return ErrEmptyAsset
	}

	if !(initialPrice > 0) || math.IsInf(initialPrice, 1) {
		return ErrInvalidPrice
	}

	if len(thresholds) == 0 {
		return ErrNoThresholds
	}

	return nil
}

package core

// Outcome reports what ApplyThresholdResult did to a record
type Outcome int

const (
	// OutcomeMissing means the record was removed before the result was applied
	OutcomeMissing Outcome = iota
	// OutcomeUpdated means the pending set shrank and the record is still active
	OutcomeUpdated
	// OutcomeRetired means the last pending threshold fired and the record was deleted
	OutcomeRetired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUpdated:
		return "updated"
	case OutcomeRetired:
		return "retired"
	default:
		return "missing"
	}
}

// Store is the registry of active tracking records keyed by (user, asset).
// Every method is atomic with respect to concurrent callers and returns copies.
// No record with an empty pending set and no user without records is ever observable.
type Store interface {
	// Create inserts a new record, failing with ErrAlreadyTracking on duplicates
	Create(userID int64, assetID string, initialPrice float64, thresholds Thresholds) (TrackingRecord, error)

	// Replace inserts or overwrites a record
	Replace(userID int64, assetID string, initialPrice float64, thresholds Thresholds) (TrackingRecord, error)

	// Remove deletes a record and reports whether it existed
	Remove(userID int64, assetID string) bool

	// Get returns a single record
	Get(userID int64, assetID string) (TrackingRecord, bool)

	// GetAllForUser returns the user's records ordered by asset
	GetAllForUser(userID int64) []TrackingRecord

	// SnapshotAll returns a point in time copy of every record ordered by user and asset
	SnapshotAll() []Entry

	// ApplyThresholdResult replaces the pending set of the record identified by recordID with remaining,
	// deleting the record when it is empty. It returns OutcomeMissing when the pair holds no record or a
	// different one, so a record removed since the snapshot is never resurrected or mixed with its successor.
	ApplyThresholdResult(userID int64, assetID, recordID string, fired, remaining Thresholds) (Outcome, error)

	// Len returns the number of active records
	Len() int
}

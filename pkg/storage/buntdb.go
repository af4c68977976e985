package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raykavin/pricewatch/pkg/core"
	"github.com/raykavin/pricewatch/pkg/tracker"
	"github.com/tidwall/buntdb"
)

// BuntStore implements core.Store on an in-memory BuntDB database.
// Keys are "<user>:<asset>" and values are JSON encoded records.
type BuntStore struct {
	db  *buntdb.DB
	now func() time.Time
}

// FromMemory creates an ephemeral store
func FromMemory() (*BuntStore, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	return &BuntStore{
		db:  db,
		now: time.Now,
	}, nil
}

func recordKey(userID int64, assetID string) string {
	return strconv.FormatInt(userID, 10) + ":" + assetID
}

func userPattern(userID int64) string {
	return strconv.FormatInt(userID, 10) + ":*"
}

func decodeRecord(value string) (core.TrackingRecord, error) {
	var record core.TrackingRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return core.TrackingRecord{}, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return record, nil
}

func (b *BuntStore) put(tx *buntdb.Tx, record core.TrackingRecord) error {
	content, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if _, _, err = tx.Set(recordKey(record.UserID, record.AssetID), string(content), nil); err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}

	return nil
}

// Create inserts a new record, failing with core.ErrAlreadyTracking on duplicates
func (b *BuntStore) Create(userID int64, assetID string, initialPrice float64,
	thresholds core.Thresholds) (core.TrackingRecord, error) {
	return b.insert(userID, assetID, initialPrice, thresholds, false)
}

// Replace inserts a record, overwriting any existing one for the pair
func (b *BuntStore) Replace(userID int64, assetID string, initialPrice float64,
	thresholds core.Thresholds) (core.TrackingRecord, error) {
	return b.insert(userID, assetID, initialPrice, thresholds, true)
}

func (b *BuntStore) insert(userID int64, assetID string, initialPrice float64,
	thresholds core.Thresholds, overwrite bool) (core.TrackingRecord, error) {

	if err := core.ValidateRecord(assetID, initialPrice, thresholds); err != nil {
		return core.TrackingRecord{}, err
	}

	record := core.TrackingRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		AssetID:      assetID,
		InitialPrice: initialPrice,
		Pending:      thresholds.Clone(),
		CreatedAt:    b.now(),
	}

	err := b.db.Update(func(tx *buntdb.Tx) error {
		if !overwrite {
			_, err := tx.Get(recordKey(userID, assetID))
			if err == nil {
				return fmt.Errorf("%w: %s", core.ErrAlreadyTracking, assetID)
			}
			if !errors.Is(err, buntdb.ErrNotFound) {
				return fmt.Errorf("failed to read record: %w", err)
			}
		}
		return b.put(tx, record)
	})
	if err != nil {
		return core.TrackingRecord{}, err
	}

	return record, nil
}

// Remove deletes a record and reports whether it existed
func (b *BuntStore) Remove(userID int64, assetID string) bool {
	removed := false
	_ = b.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(recordKey(userID, assetID))
		removed = err == nil
		return nil
	})
	return removed
}

// Get returns a single record
func (b *BuntStore) Get(userID int64, assetID string) (core.TrackingRecord, bool) {
	var (
		record core.TrackingRecord
		found  bool
	)

	_ = b.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(recordKey(userID, assetID))
		if err != nil {
			return err
		}

		record, err = decodeRecord(value)
		found = err == nil
		return err
	})

	return record, found
}

// GetAllForUser returns the user's records ordered by asset
func (b *BuntStore) GetAllForUser(userID int64) []core.TrackingRecord {
	records := make([]core.TrackingRecord, 0)

	_ = b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(userPattern(userID), func(_, value string) bool {
			if record, err := decodeRecord(value); err == nil {
				records = append(records, record)
			}
			return true
		})
	})

	sort.Slice(records, func(i, j int) bool {
		return records[i].AssetID < records[j].AssetID
	})

	return records
}

// SnapshotAll returns a consistent copy of the whole store
func (b *BuntStore) SnapshotAll() []core.Entry {
	entries := make([]core.Entry, 0)

	_ = b.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(key, value string) bool {
			record, err := decodeRecord(value)
			if err != nil || !strings.Contains(key, ":") {
				return true
			}

			entries = append(entries, core.Entry{
				UserID:  record.UserID,
				AssetID: record.AssetID,
				Record:  record,
			})
			return true
		})
	})

	tracker.SortEntries(entries)
	return entries
}

// ApplyThresholdResult replaces the pending set of record recordID with remaining.
// The record is deleted when remaining is empty and left alone when it no longer exists
// or the pair was re-tracked since the snapshot.
func (b *BuntStore) ApplyThresholdResult(userID int64, assetID, recordID string,
	fired, remaining core.Thresholds) (core.Outcome, error) {

	outcome := core.OutcomeMissing
	err := b.db.Update(func(tx *buntdb.Tx) error {
		key := recordKey(userID, assetID)

		value, err := tx.Get(key)
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}

		record, err := decodeRecord(value)
		if err != nil {
			return err
		}

		if record.ID != recordID {
			return nil
		}

		if !remaining.SubsetOf(record.Pending) {
			return fmt.Errorf("%w: %s for user %d", core.ErrThresholdGrowth, assetID, userID)
		}

		if len(remaining) == 0 {
			if _, err := tx.Delete(key); err != nil {
				return fmt.Errorf("failed to delete record: %w", err)
			}
			outcome = core.OutcomeRetired
			return nil
		}

		record.Pending = remaining.Clone()
		if err := b.put(tx, record); err != nil {
			return err
		}
		outcome = core.OutcomeUpdated
		return nil
	})
	if err != nil {
		return core.OutcomeMissing, err
	}

	return outcome, nil
}

// Len returns the number of active records
func (b *BuntStore) Len() int {
	total := 0
	_ = b.db.View(func(tx *buntdb.Tx) error {
		var err error
		total, err = tx.Len()
		return err
	})
	return total
}

// Close closes the database
func (b *BuntStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// Package tracker provides the in-memory registry of active tracking records
package tracker

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raykavin/pricewatch/pkg/core"
)

// MemoryStore implements core.Store on a two level map guarded by a mutex
type MemoryStore struct {
	mu      sync.RWMutex
	records map[int64]map[string]*core.TrackingRecord
	now     func() time.Time
}

// Option configures a MemoryStore
type Option func(*MemoryStore)

// WithClock overrides the clock used for CreatedAt
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an empty store
func NewMemoryStore(options ...Option) *MemoryStore {
	store := &MemoryStore{
		records: make(map[int64]map[string]*core.TrackingRecord),
		now:     time.Now,
	}

	for _, option := range options {
		option(store)
	}

	return store
}

// Create inserts a new record, failing with core.ErrAlreadyTracking on duplicates
func (s *MemoryStore) Create(userID int64, assetID string, initialPrice float64,
	thresholds core.Thresholds) (core.TrackingRecord, error) {

	if err := core.ValidateRecord(assetID, initialPrice, thresholds); err != nil {
		return core.TrackingRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[userID][assetID]; ok {
		return core.TrackingRecord{}, fmt.Errorf("%w: %s", core.ErrAlreadyTracking, assetID)
	}

	return s.insert(userID, assetID, initialPrice, thresholds), nil
}

// Replace inserts a record, overwriting any existing one for the pair
func (s *MemoryStore) Replace(userID int64, assetID string, initialPrice float64,
	thresholds core.Thresholds) (core.TrackingRecord, error) {

	if err := core.ValidateRecord(assetID, initialPrice, thresholds); err != nil {
		return core.TrackingRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insert(userID, assetID, initialPrice, thresholds), nil
}

// insert must be called with the write lock held
func (s *MemoryStore) insert(userID int64, assetID string, initialPrice float64,
	thresholds core.Thresholds) core.TrackingRecord {

	assets, ok := s.records[userID]
	if !ok {
		assets = make(map[string]*core.TrackingRecord)
		s.records[userID] = assets
	}

	record := &core.TrackingRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		AssetID:      assetID,
		InitialPrice: initialPrice,
		Pending:      thresholds.Clone(),
		CreatedAt:    s.now(),
	}
	assets[assetID] = record

	return record.Clone()
}

// Remove deletes a record and reports whether it existed
func (s *MemoryStore) Remove(userID int64, assetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[userID][assetID]; !ok {
		return false
	}

	s.delete(userID, assetID)
	return true
}

// delete drops the record and the user entry once it is empty.
// Must be called with the write lock held.
func (s *MemoryStore) delete(userID int64, assetID string) {
	delete(s.records[userID], assetID)
	if len(s.records[userID]) == 0 {
		delete(s.records, userID)
	}
}

// Get returns a copy of a single record
func (s *MemoryStore) Get(userID int64, assetID string) (core.TrackingRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[userID][assetID]
	if !ok {
		return core.TrackingRecord{}, false
	}

	return record.Clone(), true
}

// GetAllForUser returns copies of the user's records ordered by asset
func (s *MemoryStore) GetAllForUser(userID int64) []core.TrackingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]core.TrackingRecord, 0, len(s.records[userID]))
	for _, record := range s.records[userID] {
		records = append(records, record.Clone())
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].AssetID < records[j].AssetID
	})

	return records
}

// SnapshotAll returns a consistent copy of the whole store
func (s *MemoryStore) SnapshotAll() []core.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]core.Entry, 0, len(s.records))
	for userID, assets := range s.records {
		for assetID, record := range assets {
			entries = append(entries, core.Entry{
				UserID:  userID,
				AssetID: assetID,
				Record:  record.Clone(),
			})
		}
	}

	SortEntries(entries)
	return entries
}

// ApplyThresholdResult replaces the pending set of record recordID with remaining.
// The record is deleted when remaining is empty and left alone when it no longer exists
// or the pair was re-tracked since the snapshot.
func (s *MemoryStore) ApplyThresholdResult(userID int64, assetID, recordID string,
	fired, remaining core.Thresholds) (core.Outcome, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[userID][assetID]
	if !ok || record.ID != recordID {
		return core.OutcomeMissing, nil
	}

	if !remaining.SubsetOf(record.Pending) {
		return core.OutcomeMissing, fmt.Errorf("%w: %s for user %d", core.ErrThresholdGrowth, assetID, userID)
	}

	if len(remaining) == 0 {
		s.delete(userID, assetID)
		return core.OutcomeRetired, nil
	}

	record.Pending = remaining.Clone()
	return core.OutcomeUpdated, nil
}

// Len returns the number of active records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, assets := range s.records {
		total += len(assets)
	}
	return total
}

// SortEntries orders snapshot rows by user and asset
func SortEntries(entries []core.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].UserID != entries[j].UserID {
			return entries[i].UserID < entries[j].UserID
		}
		return entries[i].AssetID < entries[j].AssetID
	})
}

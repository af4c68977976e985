package tracker

import (
	"testing"
	"time"

	"github.com/raykavin/pricewatch/pkg/core"
	"github.com/raykavin/pricewatch/pkg/tracker/storetest"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.Store {
		return NewMemoryStore()
	})
}

func TestMemoryStore_UserEntryDropped(t *testing.T) {
	store := NewMemoryStore()

	record, err := store.Create(7, "bitcoin", 100, core.Thresholds{5})
	require.NoError(t, err)
	require.Len(t, store.records, 1)

	outcome, err := store.ApplyThresholdResult(7, "bitcoin", record.ID, core.Thresholds{5}, core.Thresholds{})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeRetired, outcome)
	require.Empty(t, store.records)

	_, err = store.Create(7, "bitcoin", 100, core.Thresholds{5})
	require.NoError(t, err)
	require.True(t, store.Remove(7, "bitcoin"))
	require.Empty(t, store.records)
}

func TestMemoryStore_WithClock(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithClock(func() time.Time { return created }))

	record, err := store.Create(1, "bitcoin", 100, core.DefaultThresholds())
	require.NoError(t, err)
	require.Equal(t, created, record.CreatedAt)
}

func TestSortEntries(t *testing.T) {
	entries := []core.Entry{
		{UserID: 2, AssetID: "a"},
		{UserID: 1, AssetID: "b"},
		{UserID: 1, AssetID: "a"},
	}
	SortEntries(entries)
	require.Equal(t, []core.Entry{
		{UserID: 1, AssetID: "a"},
		{UserID: 1, AssetID: "b"},
		{UserID: 2, AssetID: "a"},
	}, entries)
}

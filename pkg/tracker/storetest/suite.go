// Package storetest holds the behaviour every core.Store implementation must share
package storetest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/raykavin/pricewatch/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory builds an empty store for a single test
type Factory func(t *testing.T) core.Store

// Run executes the store contract against stores built by factory
func Run(t *testing.T, factory Factory) {
	t.Run("create and get", func(t *testing.T) { testCreate(t, factory(t)) })
	t.Run("create duplicate", func(t *testing.T) { testCreateDuplicate(t, factory(t)) })
	t.Run("create invalid", func(t *testing.T) { testCreateInvalid(t, factory(t)) })
	t.Run("replace", func(t *testing.T) { testReplace(t, factory(t)) })
	t.Run("remove", func(t *testing.T) { testRemove(t, factory(t)) })
	t.Run("copies", func(t *testing.T) { testCopies(t, factory(t)) })
	t.Run("snapshot", func(t *testing.T) { testSnapshot(t, factory(t)) })
	t.Run("apply partial", func(t *testing.T) { testApplyPartial(t, factory(t)) })
	t.Run("apply retires", func(t *testing.T) { testApplyRetires(t, factory(t)) })
	t.Run("apply after remove", func(t *testing.T) { testApplyAfterRemove(t, factory(t)) })
	t.Run("apply after retrack", func(t *testing.T) { testApplyAfterRetrack(t, factory(t)) })
	t.Run("apply after replace", func(t *testing.T) { testApplyAfterReplace(t, factory(t)) })
	t.Run("apply growth", func(t *testing.T) { testApplyGrowth(t, factory(t)) })
	t.Run("concurrent", func(t *testing.T) { testConcurrent(t, factory(t)) })
}

func testCreate(t *testing.T, store core.Store) {
	record, err := store.Create(1, "bitcoin", 100, core.DefaultThresholds())
	require.NoError(t, err)
	require.Equal(t, int64(1), record.UserID)
	require.Equal(t, "bitcoin", record.AssetID)
	require.Equal(t, 100.0, record.InitialPrice)
	require.Equal(t, core.DefaultThresholds(), record.Pending)

	got, ok := store.Get(1, "bitcoin")
	require.True(t, ok)
	require.Equal(t, record.InitialPrice, got.InitialPrice)
	require.Equal(t, record.Pending, got.Pending)
	require.Equal(t, record.ID, got.ID)
	require.NotEmpty(t, record.ID)
	require.Equal(t, 1, store.Len())

	_, ok = store.Get(2, "bitcoin")
	require.False(t, ok)
}

func testCreateDuplicate(t *testing.T, store core.Store) {
	record, err := store.Create(1, "bitcoin", 100, core.DefaultThresholds())
	require.NoError(t, err)

	_, err = store.ApplyThresholdResult(1, "bitcoin", record.ID, core.Thresholds{5}, core.DefaultThresholds()[1:])
	require.NoError(t, err)

	_, err = store.Create(1, "bitcoin", 200, core.DefaultThresholds())
	require.ErrorIs(t, err, core.ErrAlreadyTracking)

	got, ok := store.Get(1, "bitcoin")
	require.True(t, ok)
	require.Equal(t, 100.0, got.InitialPrice)
	require.Len(t, got.Pending, 19)
}

func testCreateInvalid(t *testing.T, store core.Store) {
	_, err := store.Create(1, "bitcoin", 0, core.DefaultThresholds())
	require.ErrorIs(t, err, core.ErrInvalidPrice)

	_, err = store.Create(1, "bitcoin", 100, core.Thresholds{})
	require.ErrorIs(t, err, core.ErrNoThresholds)

	_, err = store.Create(1, "", 100, core.DefaultThresholds())
	require.ErrorIs(t, err, core.ErrEmptyAsset)

	require.Zero(t, store.Len())
	require.Empty(t, store.SnapshotAll())
}

func testReplace(t *testing.T, store core.Store) {
	_, err := store.Create(1, "bitcoin", 100, core.Thresholds{5, 10})
	require.NoError(t, err)

	record, err := store.Replace(1, "bitcoin", 250, core.DefaultThresholds())
	require.NoError(t, err)
	require.Equal(t, 250.0, record.InitialPrice)

	got, ok := store.Get(1, "bitcoin")
	require.True(t, ok)
	require.Equal(t, 250.0, got.InitialPrice)
	require.Equal(t, core.DefaultThresholds(), got.Pending)
	require.Equal(t, 1, store.Len())
}

func testRemove(t *testing.T, store core.Store) {
	_, err := store.Create(1, "bitcoin", 100, core.DefaultThresholds())
	require.NoError(t, err)
	_, err = store.Create(1, "ethereum", 10, core.DefaultThresholds())
	require.NoError(t, err)

	require.False(t, store.Remove(1, "dogecoin"))
	require.False(t, store.Remove(2, "bitcoin"))
	require.Equal(t, 2, store.Len())

	require.True(t, store.Remove(1, "bitcoin"))
	require.False(t, store.Remove(1, "bitcoin"))
	require.Len(t, store.GetAllForUser(1), 1)

	require.True(t, store.Remove(1, "ethereum"))
	require.Empty(t, store.GetAllForUser(1))
	require.NotNil(t, store.GetAllForUser(1))
	require.Zero(t, store.Len())
	require.Empty(t, store.SnapshotAll())
}

func testCopies(t *testing.T, store core.Store) {
	_, err := store.Create(1, "bitcoin", 100, core.Thresholds{5, 10})
	require.NoError(t, err)

	records := store.GetAllForUser(1)
	require.Len(t, records, 1)
	records[0].Pending[0] = 99
	records[0].InitialPrice = 1

	snapshot := store.SnapshotAll()
	snapshot[0].Record.Pending[1] = 99

	got, _ := store.Get(1, "bitcoin")
	require.Equal(t, core.Thresholds{5, 10}, got.Pending)
	require.Equal(t, 100.0, got.InitialPrice)
}

func testSnapshot(t *testing.T, store core.Store) {
	for _, seed := range []struct {
		user  int64
		asset string
	}{{2, "solana"}, {1, "ethereum"}, {1, "bitcoin"}} {
		_, err := store.Create(seed.user, seed.asset, 10, core.DefaultThresholds())
		require.NoError(t, err)
	}

	snapshot := store.SnapshotAll()
	require.Len(t, snapshot, 3)
	require.Equal(t, []string{"bitcoin", "ethereum", "solana"}, []string{
		snapshot[0].AssetID, snapshot[1].AssetID, snapshot[2].AssetID,
	})
	require.Equal(t, int64(2), snapshot[2].UserID)
	require.Equal(t, snapshot[0].AssetID, snapshot[0].Record.AssetID)

	// later mutations do not leak into a snapshot already taken
	require.True(t, store.Remove(1, "bitcoin"))
	require.Len(t, snapshot, 3)
	require.Equal(t, core.DefaultThresholds(), snapshot[0].Record.Pending)

	records := store.GetAllForUser(1)
	require.Len(t, records, 1)
	require.Equal(t, "ethereum", records[0].AssetID)
}

func testApplyPartial(t *testing.T, store core.Store) {
	record, err := store.Create(1, "bitcoin", 100, core.DefaultThresholds())
	require.NoError(t, err)

	fired, remaining := core.DefaultThresholds().Partition(core.ChangeFrom(100, 106).Abs)
	require.Equal(t, core.Thresholds{5}, fired)

	outcome, err := store.ApplyThresholdResult(1, "bitcoin", record.ID, fired, remaining)
	require.NoError(t, err)
	require.Equal(t, core.OutcomeUpdated, outcome)

	got, ok := store.Get(1, "bitcoin")
	require.True(t, ok)
	require.Equal(t, core.StepThresholds(5, 100)[1:], got.Pending)
	require.Equal(t, 100.0, got.InitialPrice)
}

func testApplyRetires(t *testing.T, store core.Store) {
	record, err := store.Create(1, "bitcoin", 100, core.Thresholds{5, 10, 15, 20})
	require.NoError(t, err)

	fired, remaining := core.Thresholds{5, 10, 15, 20}.Partition(core.ChangeFrom(100, 80).Abs)
	require.Len(t, fired, 4)
	require.Empty(t, remaining)

	outcome, err := store.ApplyThresholdResult(1, "bitcoin", record.ID, fired, remaining)
	require.NoError(t, err)
	require.Equal(t, core.OutcomeRetired, outcome)

	_, ok := store.Get(1, "bitcoin")
	require.False(t, ok)
	require.Empty(t, store.GetAllForUser(1))
	require.Zero(t, store.Len())
}

func testApplyAfterRemove(t *testing.T, store core.Store) {
	_, err := store.Create(1, "bitcoin", 100, core.DefaultThresholds())
	require.NoError(t, err)

	snapshot := store.SnapshotAll()
	require.True(t, store.Remove(1, "bitcoin"))

	fired, remaining := snapshot[0].Record.Pending.Partition(6)
	outcome, err := store.ApplyThresholdResult(1, "bitcoin", snapshot[0].Record.ID, fired, remaining)
	require.NoError(t, err)
	require.Equal(t, core.OutcomeMissing, outcome)

	_, ok := store.Get(1, "bitcoin")
	require.False(t, ok)
	require.Zero(t, store.Len())
}

func testApplyAfterRetrack(t *testing.T, store core.Store) {
	_, err := store.Create(1, "bitcoin", 100, core.DefaultThresholds())
	require.NoError(t, err)

	snapshot := store.SnapshotAll()
	require.True(t, store.Remove(1, "bitcoin"))
	fresh, err := store.Create(1, "bitcoin", 106, core.DefaultThresholds())
	require.NoError(t, err)
	require.NotEqual(t, snapshot[0].Record.ID, fresh.ID)

	fired, remaining := snapshot[0].Record.Pending.Partition(6)
	outcome, err := store.ApplyThresholdResult(1, "bitcoin", snapshot[0].Record.ID, fired, remaining)
	require.NoError(t, err)
	require.Equal(t, core.OutcomeMissing, outcome)

	got, ok := store.Get(1, "bitcoin")
	require.True(t, ok)
	require.Equal(t, fresh.ID, got.ID)
	require.Equal(t, 106.0, got.InitialPrice)
	require.Equal(t, core.DefaultThresholds(), got.Pending)
}

func testApplyAfterReplace(t *testing.T, store core.Store) {
	old, err := store.Create(1, "bitcoin", 100, core.Thresholds{5, 10})
	require.NoError(t, err)

	replaced, err := store.Replace(1, "bitcoin", 120, core.Thresholds{5, 10})
	require.NoError(t, err)
	require.NotEqual(t, old.ID, replaced.ID)

	outcome, err := store.ApplyThresholdResult(1, "bitcoin", old.ID, core.Thresholds{5, 10}, core.Thresholds{})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeMissing, outcome)

	got, ok := store.Get(1, "bitcoin")
	require.True(t, ok)
	require.Equal(t, core.Thresholds{5, 10}, got.Pending)
}

func testApplyGrowth(t *testing.T, store core.Store) {
	record, err := store.Create(1, "bitcoin", 100, core.Thresholds{10, 15})
	require.NoError(t, err)

	_, err = store.ApplyThresholdResult(1, "bitcoin", record.ID, nil, core.Thresholds{5, 10, 15})
	require.ErrorIs(t, err, core.ErrThresholdGrowth)

	got, ok := store.Get(1, "bitcoin")
	require.True(t, ok)
	require.Equal(t, core.Thresholds{10, 15}, got.Pending)
}

func testConcurrent(t *testing.T, store core.Store) {
	const users = 8
	const assets = 10

	var wg sync.WaitGroup
	for user := int64(1); user <= users; user++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			for i := 0; i < assets; i++ {
				asset := fmt.Sprintf("asset-%d", i)
				record, err := store.Create(user, asset, 100, core.Thresholds{5, 10})
				assert.NoError(t, err)

				_, err = store.ApplyThresholdResult(user, asset, record.ID, core.Thresholds{5}, core.Thresholds{10})
				assert.NoError(t, err)

				if i%2 == 0 {
					assert.True(t, store.Remove(user, asset))
				} else {
					_, err = store.ApplyThresholdResult(user, asset, record.ID, core.Thresholds{10}, core.Thresholds{})
					assert.NoError(t, err)
				}
			}
		}(user)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < assets; i++ {
				for _, entry := range store.SnapshotAll() {
					assert.NotEmpty(t, entry.Record.Pending)
				}
			}
		}()
	}
	wg.Wait()

	require.Zero(t, store.Len())
	require.Empty(t, store.SnapshotAll())
}

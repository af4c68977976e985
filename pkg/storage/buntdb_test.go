package storage

import (
	"testing"

	"github.com/raykavin/pricewatch/pkg/core"
	"github.com/raykavin/pricewatch/pkg/tracker/storetest"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *BuntStore {
	store, err := FromMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestBuntStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.Store {
		return newStore(t)
	})
}

func TestBuntStore_UserPrefixIsolation(t *testing.T) {
	store := newStore(t)

	_, err := store.Create(7, "bitcoin", 100, core.DefaultThresholds())
	require.NoError(t, err)
	_, err = store.Create(71, "ethereum", 10, core.DefaultThresholds())
	require.NoError(t, err)

	records := store.GetAllForUser(7)
	require.Len(t, records, 1)
	require.Equal(t, "bitcoin", records[0].AssetID)
}

func TestBuntStore_NegativeChatIDs(t *testing.T) {
	store := newStore(t)

	_, err := store.Create(-100123, "bitcoin", 100, core.DefaultThresholds())
	require.NoError(t, err)

	snapshot := store.SnapshotAll()
	require.Len(t, snapshot, 1)
	require.Equal(t, int64(-100123), snapshot[0].UserID)
	require.True(t, store.Remove(-100123, "bitcoin"))
}

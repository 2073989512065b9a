package blockstore

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustRandomID(t *testing.T) BlockID {
	t.Helper()
	id, err := NewRandomBlockID()
	require.NoError(t, err)
	return id
}

func sortedIDs(ids []BlockID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	sort.Strings(out)
	return out
}

// testBlockStore runs the contract every BlockStore implementation must
// satisfy. Each subtest gets a fresh store from newStore.
func testBlockStore(t *testing.T, newStore func(t *testing.T) BlockStore) {
	t.Run("LoadMissingIsAbsenceNotError", func(t *testing.T) {
		store := newStore(t)
		data, found, err := store.Load(mustRandomID(t))
		require.NoError(t, err)
		require.False(t, found)
		require.Nil(t, data)
	})

	t.Run("StoreAndLoad", func(t *testing.T) {
		store := newStore(t)
		id := mustRandomID(t)
		content := dataRegion(4096, 11)

		require.NoError(t, StoreBytes(store, id, content))

		loaded, found, err := store.Load(id)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, content, loaded)
	})

	t.Run("StoreOverwrites", func(t *testing.T) {
		store := newStore(t)
		id := mustRandomID(t)

		require.NoError(t, StoreBytes(store, id, []byte("first")))
		require.NoError(t, StoreBytes(store, id, []byte("second")))

		loaded, found, err := store.Load(id)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, []byte("second"), loaded)
	})

	t.Run("EmptyBlock", func(t *testing.T) {
		store := newStore(t)
		id := mustRandomID(t)

		require.NoError(t, StoreBytes(store, id, nil))

		loaded, found, err := store.Load(id)
		require.NoError(t, err)
		require.True(t, found)
		require.Empty(t, loaded)
	})

	t.Run("TryCreate", func(t *testing.T) {
		store := newStore(t)
		id := mustRandomID(t)

		created, err := TryCreateBytes(store, id, []byte("original"))
		require.NoError(t, err)
		require.True(t, created)

		created, err = TryCreateBytes(store, id, []byte("conflicting"))
		require.NoError(t, err)
		require.False(t, created)

		loaded, found, err := store.Load(id)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, []byte("original"), loaded, "a losing TryCreate must not overwrite")
	})

	t.Run("Remove", func(t *testing.T) {
		store := newStore(t)
		id := mustRandomID(t)

		existed, err := store.Remove(id)
		require.NoError(t, err)
		require.False(t, existed)

		require.NoError(t, StoreBytes(store, id, []byte("doomed")))

		existed, err = store.Remove(id)
		require.NoError(t, err)
		require.True(t, existed)

		_, found, err := store.Load(id)
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("NumBlocksAndAllBlocks", func(t *testing.T) {
		store := newStore(t)

		n, err := store.NumBlocks()
		require.NoError(t, err)
		require.Zero(t, n)

		var stored []BlockID
		for i := 0; i < 5; i++ {
			id := mustRandomID(t)
			require.NoError(t, StoreBytes(store, id, dataRegion(100, int64(i))))
			stored = append(stored, id)
		}

		n, err = store.NumBlocks()
		require.NoError(t, err)
		require.Equal(t, uint64(5), n)

		all, err := store.AllBlocks()
		require.NoError(t, err)
		require.Equal(t, sortedIDs(stored), sortedIDs(all))
	})

	t.Run("EstimateNumFreeBytes", func(t *testing.T) {
		store := newStore(t)
		free, err := store.EstimateNumFreeBytes()
		require.NoError(t, err)
		require.Positive(t, free)
	})

	t.Run("AllocateMatchesDeclaredReserve", func(t *testing.T) {
		store := newStore(t)
		buf := store.Allocate(128)
		require.Equal(t, 128, buf.Len())
		require.Equal(t, store.RequiredPrefixBytesTotal(), buf.AvailablePrefixBytes())
		require.Zero(t, buf.AvailableSuffixBytes())
	})
}

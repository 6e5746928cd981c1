package state_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guminc/EvolvableArchetype/archetype"
	"github.com/guminc/EvolvableArchetype/lvldb"
	"github.com/guminc/EvolvableArchetype/state"
)

func TestRawStorage(t *testing.T) {
	kv, _ := lvldb.NewMem()
	defer kv.Close()
	st := state.New(kv)

	key := archetype.BytesToBytes32([]byte("key"))

	raw, err := st.GetRawStorage(key)
	require.NoError(t, err)
	assert.Empty(t, raw)

	st.SetRawStorage(key, []byte("value"))
	raw, err = st.GetRawStorage(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), []byte(raw))

	// clearing the slot
	st.SetRawStorage(key, nil)
	raw, err = st.GetRawStorage(key)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestCheckpointRevert(t *testing.T) {
	kv, _ := lvldb.NewMem()
	defer kv.Close()
	st := state.New(kv)

	key := archetype.BytesToBytes32([]byte("key"))
	st.SetRawStorage(key, []byte("base"))

	cp := st.NewCheckpoint()
	st.SetRawStorage(key, []byte("dirty"))

	raw, err := st.GetRawStorage(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("dirty"), []byte(raw))

	st.RevertTo(cp)
	raw, err = st.GetRawStorage(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("base"), []byte(raw))
}

func TestCommit(t *testing.T) {
	kv, _ := lvldb.NewMem()
	defer kv.Close()
	st := state.New(kv)

	key := archetype.BytesToBytes32([]byte("key"))
	gone := archetype.BytesToBytes32([]byte("gone"))

	st.SetRawStorage(key, []byte("value"))
	st.SetRawStorage(gone, []byte("short-lived"))
	st.SetRawStorage(gone, nil)
	require.NoError(t, st.Commit())

	// a fresh state over the same store sees committed values only
	st = state.New(kv)
	raw, err := st.GetRawStorage(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), []byte(raw))

	raw, err = st.GetRawStorage(gone)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestStructedStorage(t *testing.T) {
	kv, _ := lvldb.NewMem()
	defer kv.Close()
	st := state.New(kv)

	key := archetype.BytesToBytes32([]byte("counter"))

	var n uint64
	require.NoError(t, st.GetStructedStorage(key, &n))
	assert.Zero(t, n)

	require.NoError(t, st.SetStructedStorage(key, uint64(42)))
	require.NoError(t, st.GetStructedStorage(key, &n))
	assert.Equal(t, uint64(42), n)

	bkey := archetype.BytesToBytes32([]byte("big"))
	require.NoError(t, st.SetStructedStorage(bkey, big.NewInt(1e9)))
	var b big.Int
	require.NoError(t, st.GetStructedStorage(bkey, &b))
	assert.Equal(t, big.NewInt(1e9), &b)
}

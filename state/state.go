package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/guminc/EvolvableArchetype/archetype"
	"github.com/guminc/EvolvableArchetype/kv"
	"github.com/guminc/EvolvableArchetype/stackedmap"
)

// storagePrefix namespaces storage slots in the underlying kv store.
const storagePrefix = "s"

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// storageKey distinguishes storage slots inside the stacked map.
type storageKey archetype.Bytes32

// storeKey is the prefixed form under which the slot lives in the kv store.
func (k storageKey) storeKey() []byte {
	return append([]byte(storagePrefix), k[:]...)
}

// State manages the ledger state.
// All mutations are journaled in a stacked map, so that any range of writes
// can be reverted wholesale, and committed to the kv store as one batch.
type State struct {
	store kv.GetPutter
	sm    *stackedmap.StackedMap
}

// New create state object.
func New(store kv.GetPutter) *State {
	state := State{store: store}
	state.sm = stackedmap.New(func(key interface{}) (interface{}, bool, error) {
		return state.storeGetter(key)
	})
	// base level for writes preceding the first checkpoint
	state.sm.Push()
	return &state
}

// storeGetter implements stackedmap.MapGetter.
func (s *State) storeGetter(key interface{}) (interface{}, bool, error) {
	switch k := key.(type) {
	case storageKey:
		data, err := s.store.Get(k.storeKey())
		if err != nil {
			if s.store.IsNotFound(err) {
				return rlp.RawValue(nil), true, nil
			}
			return nil, false, &Error{err}
		}
		return rlp.RawValue(data), true, nil
	}
	panic(fmt.Sprintf("unexpected state key type %T", key))
}

// GetRawStorage returns raw storage value for the given key.
// Empty value indicates an unoccupied slot.
func (s *State) GetRawStorage(key archetype.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(storageKey(key))
	if err != nil {
		return nil, err
	}
	return data.(rlp.RawValue), nil
}

// SetRawStorage set storage value in raw form.
// Empty raw clears the slot.
func (s *State) SetRawStorage(key archetype.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey(key), raw)
}

// NewCheckpoint makes a checkpoint of current state.
// It returns checkpoint id.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts state to given checkpoint.
// All writes after the checkpoint are discarded.
func (s *State) RevertTo(checkpoint int) {
	s.sm.PopTo(checkpoint)
}

// Stage collects all uncommitted changes into a write batch.
func (s *State) Stage() *Stage {
	batch := s.store.NewBatch()
	stage := Stage{batch: batch}
	s.sm.Journal(func(k, v interface{}) bool {
		key := k.(storageKey)
		raw := v.(rlp.RawValue)
		if len(raw) == 0 {
			stage.err = batch.Delete(key.storeKey())
		} else {
			stage.err = batch.Put(key.storeKey(), raw)
		}
		return stage.err == nil
	})
	return &stage
}

// Commit writes all uncommitted changes into the kv store,
// and resets the journal.
func (s *State) Commit() error {
	if err := s.Stage().Commit(); err != nil {
		return &Error{err}
	}
	s.sm.PopTo(0)
	s.sm.Push()
	return nil
}

package state

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/guminc/EvolvableArchetype/archetype"
)

// StructedStorage storage data type should implement this.
// Encoding to empty bytes clears the slot.
type StructedStorage interface {
	Encode() ([]byte, error)
	Decode([]byte) error
}

// GetStructedStorage get and decode stored value for the given key.
// Values not implementing StructedStorage are decoded as RLP; an empty slot
// leaves the value untouched.
func (s *State) GetStructedStorage(key archetype.Bytes32, val interface{}) error {
	raw, err := s.GetRawStorage(key)
	if err != nil {
		return err
	}
	if ss, ok := val.(StructedStorage); ok {
		if err := ss.Decode(raw); err != nil {
			return &Error{err}
		}
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	if err := rlp.DecodeBytes(raw, val); err != nil {
		return &Error{err}
	}
	return nil
}

// SetStructedStorage encode and store value for the given key.
func (s *State) SetStructedStorage(key archetype.Bytes32, val interface{}) error {
	var (
		raw []byte
		err error
	)
	if ss, ok := val.(StructedStorage); ok {
		raw, err = ss.Encode()
	} else {
		raw, err = rlp.EncodeToBytes(val)
	}
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(key, raw)
	return nil
}

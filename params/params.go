package params

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/guminc/EvolvableArchetype/archetype"
	"github.com/guminc/EvolvableArchetype/state"
)

// ErrKeyLocked returned when setting a param whose key has been locked.
var ErrKeyLocked = errors.New("params: key locked")

func lockKey(key archetype.Bytes32) archetype.Bytes32 {
	return archetype.Bytes32(crypto.Keccak256Hash([]byte("lock"), key.Bytes()))
}

// Params provides access to deployment params.
// Values are persisted in state; a locked key can never be set again.
type Params struct {
	state *state.State
}

// New create a new instance.
func New(state *state.State) *Params {
	return &Params{state}
}

// Get native way to get param.
func (p *Params) Get(key archetype.Bytes32) (*big.Int, error) {
	var v big.Int
	if err := p.state.GetStructedStorage(key, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetUint64 gets param value clamped into uint64 range.
func (p *Params) GetUint64(key archetype.Bytes32) (uint64, error) {
	v, err := p.Get(key)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return ^uint64(0), nil
	}
	return v.Uint64(), nil
}

// Set native way to set param.
// It fails with ErrKeyLocked if the key has been locked.
func (p *Params) Set(key archetype.Bytes32, value *big.Int) error {
	locked, err := p.IsLocked(key)
	if err != nil {
		return err
	}
	if locked {
		return ErrKeyLocked
	}
	return p.state.SetStructedStorage(key, value)
}

// Lock permanently freezes the param under the given key.
// Locking is append-only; there is no unlock.
func (p *Params) Lock(key archetype.Bytes32) error {
	return p.state.SetStructedStorage(lockKey(key), true)
}

// IsLocked returns whether the given key has been locked.
func (p *Params) IsLocked(key archetype.Bytes32) (bool, error) {
	var locked bool
	if err := p.state.GetStructedStorage(lockKey(key), &locked); err != nil {
		return false, err
	}
	return locked, nil
}

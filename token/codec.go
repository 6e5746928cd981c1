package token

import (
	"github.com/holiman/uint256"

	"github.com/guminc/EvolvableArchetype/archetype"
)

// A token's ownership and staking state is packed into one 256-bit word:
//
//	bits [0..159]   owner
//	bits [160..191] stakingStart, seconds since the deploy epoch
//	bits [192..223] stakingDuration, length of the current lock period
//	bits [224..255] totalStakedTime, sum of completed lock periods
//
// The big-endian 32-byte form of the word is the persisted format and must
// stay bit-stable.
const (
	stakingStartOffset    = 160
	stakingDurationOffset = 192
	totalStakedTimeOffset = 224
)

var ownerMask = new(uint256.Int).SubUint64(
	new(uint256.Int).Lsh(uint256.NewInt(1), stakingStartOffset), 1)

// Record is the unpacked form of a token's ownership word.
type Record struct {
	Owner           archetype.Address
	StakingStart    uint32
	StakingDuration uint32
	TotalStakedTime uint32
}

// IsEmpty returns whether the record carries no ownership of its own.
// An empty slot still participates in the backward scan.
func (r *Record) IsEmpty() bool {
	return r.Owner.IsZero()
}

// Pack encodes the record into one 256-bit word.
// Pure and total; field widths are fixed, callers pre-validate ranges.
func (r *Record) Pack() archetype.Bytes32 {
	var w, f uint256.Int
	w.SetBytes(r.Owner.Bytes())
	w.Or(&w, f.Lsh(f.SetUint64(uint64(r.StakingStart)), stakingStartOffset))
	w.Or(&w, f.Lsh(f.SetUint64(uint64(r.StakingDuration)), stakingDurationOffset))
	w.Or(&w, f.Lsh(f.SetUint64(uint64(r.TotalStakedTime)), totalStakedTimeOffset))
	return archetype.Bytes32(w.Bytes32())
}

// Unpack decodes a 256-bit word into record form.
func Unpack(word archetype.Bytes32) *Record {
	var w, f uint256.Int
	w.SetBytes32(word[:])
	return &Record{
		Owner:           archetype.BytesToAddress(f.And(&w, ownerMask).Bytes()),
		StakingStart:    uint32(f.Rsh(&w, stakingStartOffset).Uint64()),
		StakingDuration: uint32(f.Rsh(&w, stakingDurationOffset).Uint64()),
		TotalStakedTime: uint32(f.Rsh(&w, totalStakedTimeOffset).Uint64()),
	}
}

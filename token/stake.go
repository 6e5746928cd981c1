package token

import (
	"github.com/guminc/EvolvableArchetype/archetype"
	"github.com/guminc/EvolvableArchetype/params"
)

// stakeAccounting is the time-lock policy layered on the ownership chain.
// It decides transferability and computes the staking fields persisted on
// mint-with-stake and on transfer. Staking offsets are relative to the
// deploy epoch so they fit the 32-bit record fields.
type stakeAccounting struct {
	params *params.Params
}

func newStakeAccounting(params *params.Params) *stakeAccounting {
	return &stakeAccounting{params}
}

func (s *stakeAccounting) deployEpoch() (uint64, error) {
	return s.params.GetUint64(archetype.KeyDeployEpoch)
}

// isLocked returns whether the record's current lock period is still running.
func (s *stakeAccounting) isLocked(rec *Record, now uint64) (bool, error) {
	if rec.StakingDuration == 0 {
		return false, nil
	}
	epoch, err := s.deployEpoch()
	if err != nil {
		return false, err
	}
	return now < epoch+uint64(rec.StakingStart)+uint64(rec.StakingDuration), nil
}

// unlockTime returns the absolute time the current lock period ends,
// or zero when the record is not actively staked.
func (s *stakeAccounting) unlockTime(rec *Record) (uint64, error) {
	if rec.StakingDuration == 0 {
		return 0, nil
	}
	epoch, err := s.deployEpoch()
	if err != nil {
		return 0, err
	}
	return epoch + uint64(rec.StakingStart) + uint64(rec.StakingDuration), nil
}

// lockForMint computes the staking fields of a freshly minted record.
func (s *stakeAccounting) lockForMint(now, lockDuration uint64) (start, duration uint32, err error) {
	if lockDuration == 0 {
		return 0, 0, nil
	}
	epoch, err := s.deployEpoch()
	if err != nil {
		return 0, 0, err
	}
	return clampStakeTime(sinceEpoch(now, epoch)), clampStakeTime(lockDuration), nil
}

// finalizeAndRestake closes out the just-ended lock period and computes the
// fields to persist for the new owner. The accrued credit is capped at the
// configured duration, so a token transferred long after maturity earns no
// extra staked time. A fresh lock starts when newLockDuration > 0.
func (s *stakeAccounting) finalizeAndRestake(old *Record, now, newLockDuration uint64) (start, duration, total uint32, err error) {
	epoch, err := s.deployEpoch()
	if err != nil {
		return 0, 0, 0, err
	}

	total = old.TotalStakedTime
	if old.StakingDuration > 0 {
		began := epoch + uint64(old.StakingStart)
		var elapsed uint64
		if now > began {
			elapsed = now - began
		}
		accrued := min(elapsed, uint64(old.StakingDuration))
		total = clampStakeTime(uint64(total) + accrued)
	}

	if newLockDuration > 0 {
		start = clampStakeTime(sinceEpoch(now, epoch))
		duration = clampStakeTime(newLockDuration)
	}
	return start, duration, total, nil
}

// sinceEpoch returns now-epoch, or zero while the clock has not reached the
// deploy epoch yet.
func sinceEpoch(now, epoch uint64) uint64 {
	if now <= epoch {
		return 0
	}
	return now - epoch
}

func clampStakeTime(v uint64) uint32 {
	return uint32(min(v, archetype.MaxStakeSeconds))
}

package token

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/guminc/EvolvableArchetype/archetype"
	"github.com/guminc/EvolvableArchetype/metrics"
	"github.com/guminc/EvolvableArchetype/params"
	"github.com/guminc/EvolvableArchetype/state"
)

var (
	logger = log.New("pkg", "token")

	metricMints     = metrics.LazyLoadCounterVec("token_mint_count", []string{"staked"})
	metricTransfers = metrics.LazyLoadCounter("token_transfer_count")
)

// StakeInfo is the staking view of a single token.
type StakeInfo struct {
	StakingStart    uint32 `json:"stakingStart"`
	StakingDuration uint32 `json:"stakingDuration"`
	TotalStakedTime uint32 `json:"totalStakedTime"`
	Locked          bool   `json:"locked"`
	UnlockTime      uint64 `json:"unlockTime,omitempty"`
}

// Token is the ownership/staking record engine.
//
// Every mutating operation executes as one indivisible unit: all
// preconditions are validated against a state checkpoint, any failure
// reverts every write of the operation, and success commits them to the
// store before the lock is released. A single mutex models the
// single-processor execution order; the commit must stay under it, since
// committing resets the journal any in-flight checkpoint points into.
type Token struct {
	mu     sync.Mutex
	state  *state.State
	params *params.Params
	chain  *ownershipChain
	ledger *addressLedger
	stake  *stakeAccounting
}

// New create a new instance bound to the given state.
func New(state *state.State, params *params.Params) *Token {
	return &Token{
		state:  state,
		params: params,
		chain:  newOwnershipChain(state),
		ledger: newAddressLedger(state),
		stake:  newStakeAccounting(params),
	}
}

// Mint assigns quantity sequential ids to the given address.
// With autoStake, every id in the batch starts locked for the configured
// auto-stake-mint duration. Returns the first and last assigned id.
func (t *Token) Mint(to archetype.Address, quantity uint64, autoStake bool, now uint64) (first, last uint64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	checkpoint := t.state.NewCheckpoint()
	defer func() {
		if err != nil {
			t.state.RevertTo(checkpoint)
		}
	}()

	if to.IsZero() {
		return 0, 0, errors.WithMessage(ErrInvalidTransfer, "mint to zero address")
	}
	if quantity == 0 {
		return 0, 0, ErrInvalidQuantity
	}

	rec := Record{Owner: to}
	if autoStake {
		lockDuration, err := t.params.GetUint64(archetype.KeyAutoStakeMint)
		if err != nil {
			return 0, 0, err
		}
		if rec.StakingStart, rec.StakingDuration, err = t.stake.lockForMint(now, lockDuration); err != nil {
			return 0, 0, err
		}
	}

	if first, last, err = t.chain.mintBatch(&rec, quantity); err != nil {
		return 0, 0, err
	}
	if err = t.ledger.increaseBalanceAndMinted(to, quantity); err != nil {
		return 0, 0, err
	}
	if err = t.state.Commit(); err != nil {
		return 0, 0, err
	}

	metricMints().AddWithLabel(int64(quantity), map[string]string{"staked": label(autoStake)})
	logger.Debug("minted batch", "to", to, "first", first, "last", last, "staked", autoStake)
	return first, last, nil
}

// Transfer moves one token to a new owner.
// The containing batch is split first so the remainder keeps its owner, the
// old lock period is folded into the token's cumulative staked time, and a
// fresh lock starts when auto-stake-tx is configured.
func (t *Token) Transfer(from, to archetype.Address, id, now uint64) (err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	checkpoint := t.state.NewCheckpoint()
	defer func() {
		if err != nil {
			t.state.RevertTo(checkpoint)
		}
	}()

	if to.IsZero() {
		return errors.WithMessage(ErrInvalidTransfer, "transfer to zero address")
	}
	governing, _, err := t.chain.resolveRecord(id)
	if err != nil {
		return err
	}
	if governing.Owner != from {
		return errors.WithMessage(ErrInvalidTransfer, "sender is not the owner")
	}
	locked, err := t.stake.isLocked(governing, now)
	if err != nil {
		return err
	}
	if locked {
		return ErrTokenLocked
	}

	if err = t.chain.splitIfNeeded(id, governing); err != nil {
		return err
	}
	newLockDuration, err := t.params.GetUint64(archetype.KeyAutoStakeTx)
	if err != nil {
		return err
	}
	next := Record{Owner: to}
	if next.StakingStart, next.StakingDuration, next.TotalStakedTime, err = t.stake.finalizeAndRestake(governing, now, newLockDuration); err != nil {
		return err
	}
	t.chain.writeExplicit(id, &next)

	if err = t.ledger.transferBalance(from, to); err != nil {
		return err
	}
	if err = t.state.Commit(); err != nil {
		return err
	}

	metricTransfers().Add(1)
	logger.Debug("transferred token", "id", id, "from", from, "to", to)
	return nil
}

// OwnerOf resolves the current owner of the given id.
func (t *Token) OwnerOf(id uint64) (archetype.Address, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, _, err := t.chain.resolveRecord(id)
	if err != nil {
		return archetype.Address{}, err
	}
	return rec.Owner, nil
}

// BalanceOf returns the count of tokens currently owned by the address.
func (t *Token) BalanceOf(addr archetype.Address) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.balanceOf(addr)
}

// NumberMinted returns the lifetime count minted to the address.
func (t *Token) NumberMinted(addr archetype.Address) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.mintedOf(addr)
}

// StakeInfoOf returns the staking view of the given id. Ids inside an
// unsplit batch inherit the staking fields of the batch head.
func (t *Token) StakeInfoOf(id, now uint64) (*StakeInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, _, err := t.chain.resolveRecord(id)
	if err != nil {
		return nil, err
	}
	locked, err := t.stake.isLocked(rec, now)
	if err != nil {
		return nil, err
	}
	info := StakeInfo{
		StakingStart:    rec.StakingStart,
		StakingDuration: rec.StakingDuration,
		TotalStakedTime: rec.TotalStakedTime,
		Locked:          locked,
	}
	if locked {
		if info.UnlockTime, err = t.stake.unlockTime(rec); err != nil {
			return nil, err
		}
	}
	return &info, nil
}

// TotalMinted returns the count of ids assigned so far.
func (t *Token) TotalMinted() (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, err := t.chain.nextID()
	if err != nil {
		return 0, err
	}
	return next - archetype.FirstTokenID, nil
}

// Exists returns whether the id has been minted.
func (t *Token) Exists(id uint64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, err := t.chain.nextID()
	if err != nil {
		return false, err
	}
	return id >= archetype.FirstTokenID && id < next, nil
}

// AuxOf returns the free-form per-address word.
func (t *Token) AuxOf(addr archetype.Address) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.getAux(addr)
}

// SetAux sets the free-form per-address word.
func (t *Token) SetAux(addr archetype.Address, aux uint64) (err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	checkpoint := t.state.NewCheckpoint()
	defer func() {
		if err != nil {
			t.state.RevertTo(checkpoint)
		}
	}()

	if err = t.ledger.setAux(addr, aux); err != nil {
		return err
	}
	return t.state.Commit()
}

// SetParam updates a deployment param and persists it. It fails with
// params.ErrKeyLocked on a locked key.
func (t *Token) SetParam(key archetype.Bytes32, value *big.Int) (err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	checkpoint := t.state.NewCheckpoint()
	defer func() {
		if err != nil {
			t.state.RevertTo(checkpoint)
		}
	}()

	if err = t.params.Set(key, value); err != nil {
		return err
	}
	return t.state.Commit()
}

// LockParam permanently freezes the param under the given key.
func (t *Token) LockParam(key archetype.Bytes32) (err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	checkpoint := t.state.NewCheckpoint()
	defer func() {
		if err != nil {
			t.state.RevertTo(checkpoint)
		}
	}()

	if err = t.params.Lock(key); err != nil {
		return err
	}
	return t.state.Commit()
}

// GetParam returns a deployment param value clamped to uint64.
func (t *Token) GetParam(key archetype.Bytes32) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.params.GetUint64(key)
}

// ParamLocked returns whether the param under the given key has been locked.
func (t *Token) ParamLocked(key archetype.Bytes32) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.params.IsLocked(key)
}

func label(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

package token_test

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guminc/EvolvableArchetype/archetype"
	"github.com/guminc/EvolvableArchetype/lvldb"
	"github.com/guminc/EvolvableArchetype/params"
	"github.com/guminc/EvolvableArchetype/state"
	"github.com/guminc/EvolvableArchetype/token"
)

const deployEpoch = 1000

var (
	addrA = archetype.BytesToAddress([]byte("alice"))
	addrB = archetype.BytesToAddress([]byte("bob"))
	addrC = archetype.BytesToAddress([]byte("carol"))
)

func newTestToken(t *testing.T) (*token.Token, *params.Params) {
	kv, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	st := state.New(kv)
	pm := params.New(st)
	require.NoError(t, pm.Set(archetype.KeyDeployEpoch, big.NewInt(deployEpoch)))
	return token.New(st, pm), pm
}

func ownersOf(t *testing.T, tok *token.Token, upTo uint64) []archetype.Address {
	owners := make([]archetype.Address, 0, upTo)
	for id := uint64(1); id <= upTo; id++ {
		owner, err := tok.OwnerOf(id)
		require.NoError(t, err)
		owners = append(owners, owner)
	}
	return owners
}

func TestSequentialAssignment(t *testing.T) {
	tok, _ := newTestToken(t)

	first, last, err := tok.Mint(addrA, 3, false, deployEpoch)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(3), last)

	first, last, err = tok.Mint(addrB, 2, false, deployEpoch)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), first)
	assert.Equal(t, uint64(5), last)

	assert.Equal(t, []archetype.Address{addrA, addrA, addrA, addrB, addrB}, ownersOf(t, tok, 5))

	total, err := tok.TotalMinted()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), total)

	balance, err := tok.BalanceOf(addrA)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), balance)

	minted, err := tok.NumberMinted(addrB)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), minted)
}

func TestMintValidation(t *testing.T) {
	tok, _ := newTestToken(t)

	_, _, err := tok.Mint(addrA, 0, false, deployEpoch)
	assert.ErrorIs(t, err, token.ErrInvalidQuantity)

	// quantity that would wrap the id counter
	_, _, err = tok.Mint(addrA, ^uint64(0), false, deployEpoch)
	assert.ErrorIs(t, err, token.ErrInvalidQuantity)
	balance, err := tok.BalanceOf(addrA)
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, _, err = tok.Mint(archetype.Address{}, 1, false, deployEpoch)
	assert.ErrorIs(t, err, token.ErrInvalidTransfer)

	_, err = tok.OwnerOf(1)
	assert.ErrorIs(t, err, token.ErrNonexistentToken)
}

func TestNonexistentToken(t *testing.T) {
	tok, _ := newTestToken(t)

	_, _, err := tok.Mint(addrA, 5, false, deployEpoch)
	require.NoError(t, err)

	_, err = tok.OwnerOf(0)
	assert.ErrorIs(t, err, token.ErrNonexistentToken)
	_, err = tok.OwnerOf(6)
	assert.ErrorIs(t, err, token.ErrNonexistentToken)

	exists, err := tok.Exists(5)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = tok.Exists(6)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBatchSplitNonInterference(t *testing.T) {
	tok, _ := newTestToken(t)

	_, _, err := tok.Mint(addrA, 5, false, deployEpoch)
	require.NoError(t, err)

	require.NoError(t, tok.Transfer(addrA, addrB, 2, deployEpoch+10))
	assert.Equal(t, []archetype.Address{addrA, addrB, addrA, addrA, addrA}, ownersOf(t, tok, 5))

	require.NoError(t, tok.Transfer(addrA, addrB, 3, deployEpoch+20))
	assert.Equal(t, []archetype.Address{addrA, addrB, addrB, addrA, addrA}, ownersOf(t, tok, 5))

	// the previous owner cannot move an already-transferred id
	err = tok.Transfer(addrA, addrC, 2, deployEpoch+30)
	assert.ErrorIs(t, err, token.ErrInvalidTransfer)
	assert.Equal(t, []archetype.Address{addrA, addrB, addrB, addrA, addrA}, ownersOf(t, tok, 5))
}

func TestConcreteScenario(t *testing.T) {
	tok, _ := newTestToken(t)

	_, _, err := tok.Mint(addrA, 3, false, deployEpoch)
	require.NoError(t, err)
	_, _, err = tok.Mint(addrB, 2, false, deployEpoch)
	require.NoError(t, err)
	assert.Equal(t, []archetype.Address{addrA, addrA, addrA, addrB, addrB}, ownersOf(t, tok, 5))

	require.NoError(t, tok.Transfer(addrA, addrB, 2, deployEpoch+1))
	assert.Equal(t, []archetype.Address{addrA, addrB, addrA, addrB, addrB}, ownersOf(t, tok, 5))

	err = tok.Transfer(addrA, addrB, 2, deployEpoch+2)
	assert.ErrorIs(t, err, token.ErrInvalidTransfer)

	require.NoError(t, tok.Transfer(addrA, addrB, 3, deployEpoch+3))
	assert.Equal(t, []archetype.Address{addrA, addrB, addrB, addrB, addrB}, ownersOf(t, tok, 5))

	balanceA, err := tok.BalanceOf(addrA)
	require.NoError(t, err)
	balanceB, err := tok.BalanceOf(addrB)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), balanceA)
	assert.Equal(t, uint64(4), balanceB)
}

func TestBalanceConservation(t *testing.T) {
	tok, _ := newTestToken(t)

	_, _, err := tok.Mint(addrA, 7, false, deployEpoch)
	require.NoError(t, err)
	_, _, err = tok.Mint(addrB, 3, false, deployEpoch)
	require.NoError(t, err)

	moves := []struct {
		from, to archetype.Address
		id       uint64
	}{
		{addrA, addrC, 4},
		{addrA, addrB, 1},
		{addrB, addrC, 9},
		{addrC, addrA, 4},
	}
	now := uint64(deployEpoch)
	for _, m := range moves {
		now += 10
		require.NoError(t, tok.Transfer(m.from, m.to, m.id, now))
	}

	var sum uint64
	for _, addr := range []archetype.Address{addrA, addrB, addrC} {
		balance, err := tok.BalanceOf(addr)
		require.NoError(t, err)
		sum += balance
	}
	total, err := tok.TotalMinted()
	require.NoError(t, err)
	assert.Equal(t, total, sum)
}

func TestLockGating(t *testing.T) {
	tok, pm := newTestToken(t)
	require.NoError(t, pm.Set(archetype.KeyAutoStakeMint, big.NewInt(500)))

	mintTime := uint64(deployEpoch + 1000)
	_, _, err := tok.Mint(addrA, 1, true, mintTime)
	require.NoError(t, err)

	info, err := tok.StakeInfoOf(1, mintTime)
	require.NoError(t, err)
	assert.True(t, info.Locked)
	assert.Equal(t, uint32(1000), info.StakingStart)
	assert.Equal(t, uint32(500), info.StakingDuration)
	assert.Equal(t, mintTime+500, info.UnlockTime)

	err = tok.Transfer(addrA, addrB, 1, mintTime+499)
	assert.ErrorIs(t, err, token.ErrTokenLocked)

	// owner unchanged by the failed attempt
	owner, err := tok.OwnerOf(1)
	require.NoError(t, err)
	assert.Equal(t, addrA, owner)

	require.NoError(t, tok.Transfer(addrA, addrB, 1, mintTime+500))
	owner, err = tok.OwnerOf(1)
	require.NoError(t, err)
	assert.Equal(t, addrB, owner)
}

func TestBatchLockUniformity(t *testing.T) {
	tok, pm := newTestToken(t)
	require.NoError(t, pm.Set(archetype.KeyAutoStakeMint, big.NewInt(500)))

	mintTime := uint64(deployEpoch + 100)
	_, _, err := tok.Mint(addrA, 3, true, mintTime)
	require.NoError(t, err)

	for id := uint64(1); id <= 3; id++ {
		info, err := tok.StakeInfoOf(id, mintTime)
		require.NoError(t, err)
		assert.True(t, info.Locked)

		err = tok.Transfer(addrA, addrB, id, mintTime+499)
		assert.ErrorIs(t, err, token.ErrTokenLocked)
	}

	for id := uint64(1); id <= 3; id++ {
		require.NoError(t, tok.Transfer(addrA, addrB, id, mintTime+500))
	}
	assert.Equal(t, []archetype.Address{addrB, addrB, addrB}, ownersOf(t, tok, 3))
}

func TestStakeAccumulation(t *testing.T) {
	tok, pm := newTestToken(t)
	require.NoError(t, pm.Set(archetype.KeyAutoStakeMint, big.NewInt(500)))

	mintTime := uint64(deployEpoch + 100)
	_, _, err := tok.Mint(addrA, 1, true, mintTime)
	require.NoError(t, err)

	// transferred long after maturity: credit capped at the configured duration
	transferTime := mintTime + 10_000
	require.NoError(t, tok.Transfer(addrA, addrB, 1, transferTime))

	info, err := tok.StakeInfoOf(1, transferTime)
	require.NoError(t, err)
	assert.False(t, info.Locked)
	assert.Zero(t, info.StakingStart)
	assert.Zero(t, info.StakingDuration)
	assert.Equal(t, uint32(500), info.TotalStakedTime)
}

func TestAutoRestakeOnTransfer(t *testing.T) {
	tok, pm := newTestToken(t)
	require.NoError(t, pm.Set(archetype.KeyAutoStakeMint, big.NewInt(500)))
	require.NoError(t, pm.Set(archetype.KeyAutoStakeTx, big.NewInt(300)))

	mintTime := uint64(deployEpoch + 100)
	_, _, err := tok.Mint(addrA, 1, true, mintTime)
	require.NoError(t, err)

	transferTime := mintTime + 500
	require.NoError(t, tok.Transfer(addrA, addrB, 1, transferTime))

	info, err := tok.StakeInfoOf(1, transferTime)
	require.NoError(t, err)
	assert.True(t, info.Locked)
	assert.Equal(t, uint32(500), info.TotalStakedTime)
	assert.Equal(t, transferTime+300, info.UnlockTime)

	err = tok.Transfer(addrB, addrC, 1, transferTime+299)
	assert.ErrorIs(t, err, token.ErrTokenLocked)

	// the second completed period accrues on top of the first
	require.NoError(t, tok.Transfer(addrB, addrC, 1, transferTime+300))
	info, err = tok.StakeInfoOf(1, transferTime+300)
	require.NoError(t, err)
	assert.Equal(t, uint32(800), info.TotalStakedTime)
}

func TestStakeInheritedInsideBatch(t *testing.T) {
	tok, pm := newTestToken(t)
	require.NoError(t, pm.Set(archetype.KeyAutoStakeMint, big.NewInt(500)))

	mintTime := uint64(deployEpoch + 100)
	_, _, err := tok.Mint(addrA, 5, true, mintTime)
	require.NoError(t, err)

	// interior id inherits the batch head's staking fields
	head, err := tok.StakeInfoOf(1, mintTime)
	require.NoError(t, err)
	interior, err := tok.StakeInfoOf(4, mintTime)
	require.NoError(t, err)
	assert.Equal(t, head, interior)
}

func TestSplitPreservesStakeHistory(t *testing.T) {
	tok, pm := newTestToken(t)
	require.NoError(t, pm.Set(archetype.KeyAutoStakeMint, big.NewInt(500)))

	mintTime := uint64(deployEpoch + 100)
	_, _, err := tok.Mint(addrA, 3, true, mintTime)
	require.NoError(t, err)

	// moving id 2 closes its lock period; ids 1 and 3 keep the original one
	transferTime := mintTime + 600
	require.NoError(t, tok.Transfer(addrA, addrB, 2, transferTime))

	moved, err := tok.StakeInfoOf(2, transferTime)
	require.NoError(t, err)
	assert.Equal(t, uint32(500), moved.TotalStakedTime)
	assert.Zero(t, moved.StakingDuration)

	for _, id := range []uint64{1, 3} {
		kept, err := tok.StakeInfoOf(id, transferTime)
		require.NoError(t, err)
		assert.Zero(t, kept.TotalStakedTime)
		assert.Equal(t, uint32(500), kept.StakingDuration)
	}
}

func TestTransferValidation(t *testing.T) {
	tok, _ := newTestToken(t)

	_, _, err := tok.Mint(addrA, 2, false, deployEpoch)
	require.NoError(t, err)

	err = tok.Transfer(addrA, archetype.Address{}, 1, deployEpoch+1)
	assert.ErrorIs(t, err, token.ErrInvalidTransfer)

	err = tok.Transfer(addrA, addrB, 3, deployEpoch+1)
	assert.ErrorIs(t, err, token.ErrNonexistentToken)

	err = tok.Transfer(addrB, addrC, 1, deployEpoch+1)
	assert.ErrorIs(t, err, token.ErrInvalidTransfer)

	// nothing moved
	assert.Equal(t, []archetype.Address{addrA, addrA}, ownersOf(t, tok, 2))
	balance, err := tok.BalanceOf(addrA)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), balance)
}

func TestAux(t *testing.T) {
	tok, _ := newTestToken(t)

	aux, err := tok.AuxOf(addrA)
	require.NoError(t, err)
	assert.Zero(t, aux)

	require.NoError(t, tok.SetAux(addrA, 0xdead))
	aux, err = tok.AuxOf(addrA)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xdead), aux)
}

func TestThresholdStrategy(t *testing.T) {
	strategy := token.ThresholdStrategy{100, 1000, 10_000}

	assert.Equal(t, uint32(0), strategy.Evolve(1, 99))
	assert.Equal(t, uint32(1), strategy.Evolve(1, 100))
	assert.Equal(t, uint32(2), strategy.Evolve(1, 5000))
	assert.Equal(t, uint32(3), strategy.Evolve(1, 50_000))
}

func TestOperationsPersistAcrossRestart(t *testing.T) {
	kv, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	st := state.New(kv)
	tok := token.New(st, params.New(st))
	require.NoError(t, tok.SetParam(archetype.KeyDeployEpoch, big.NewInt(deployEpoch)))

	_, _, err = tok.Mint(addrA, 3, false, deployEpoch)
	require.NoError(t, err)
	require.NoError(t, tok.Transfer(addrA, addrB, 2, deployEpoch+1))

	// a failed operation must leave nothing behind for later commits
	err = tok.Transfer(addrB, addrC, 1, deployEpoch+1)
	assert.ErrorIs(t, err, token.ErrInvalidTransfer)
	require.NoError(t, tok.SetAux(addrA, 7))

	st = state.New(kv)
	reopened := token.New(st, params.New(st))
	assert.Equal(t, []archetype.Address{addrA, addrB, addrA}, ownersOf(t, reopened, 3))

	balance, err := reopened.BalanceOf(addrA)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), balance)
	balance, err = reopened.BalanceOf(addrC)
	require.NoError(t, err)
	assert.Zero(t, balance)
	aux, err := reopened.AuxOf(addrA)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), aux)
}

func TestConcurrentOperations(t *testing.T) {
	tok, _ := newTestToken(t)

	const workers = 8
	const rounds = 16

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		owner := archetype.BytesToAddress([]byte{byte(w + 1)})
		sink := archetype.BytesToAddress([]byte{byte(w + 1), 0xff})
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				first, _, err := tok.Mint(owner, 2, false, deployEpoch)
				if !assert.NoError(t, err) {
					return
				}
				if !assert.NoError(t, tok.Transfer(owner, sink, first, deployEpoch+1)) {
					return
				}
				// failing ops interleaved with other workers' commits
				// must not leak partial writes
				_, _, err = tok.Mint(archetype.Address{}, 1, false, deployEpoch)
				assert.ErrorIs(t, err, token.ErrInvalidTransfer)
				err = tok.Transfer(sink, owner, first+1, deployEpoch+1)
				assert.ErrorIs(t, err, token.ErrInvalidTransfer)

				_, err = tok.OwnerOf(first)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	total, err := tok.TotalMinted()
	require.NoError(t, err)
	assert.Equal(t, uint64(workers*rounds*2), total)

	var sum uint64
	for w := 0; w < workers; w++ {
		owner := archetype.BytesToAddress([]byte{byte(w + 1)})
		sink := archetype.BytesToAddress([]byte{byte(w + 1), 0xff})
		for _, addr := range []archetype.Address{owner, sink} {
			balance, err := tok.BalanceOf(addr)
			require.NoError(t, err)
			assert.Equal(t, uint64(rounds), balance)
			sum += balance
		}
	}
	assert.Equal(t, total, sum)
}

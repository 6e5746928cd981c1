package token

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/guminc/EvolvableArchetype/archetype"
	"github.com/guminc/EvolvableArchetype/state"
)

func aggregateKey(addr archetype.Address) archetype.Bytes32 {
	return archetype.BytesToBytes32(append([]byte("a"), addr.Bytes()...))
}

// aggregate is the per-address counter set.
type aggregate struct {
	Balance uint64 // tokens currently owned
	Minted  uint64 // lifetime count minted to this address
	Aux     uint64 // free-form per-address word
}

var _ state.StructedStorage = (*aggregate)(nil)

func (a *aggregate) isEmpty() bool {
	return a.Balance == 0 && a.Minted == 0 && a.Aux == 0
}

// Encode implements state.StructedStorage. Empty aggregates clear the slot.
func (a *aggregate) Encode() ([]byte, error) {
	if a.isEmpty() {
		return nil, nil
	}
	return rlp.EncodeToBytes(a)
}

// Decode implements state.StructedStorage.
func (a *aggregate) Decode(data []byte) error {
	if len(data) == 0 {
		*a = aggregate{}
		return nil
	}
	return rlp.DecodeBytes(data, a)
}

// addressLedger maintains per-owner aggregate counters.
// Entries are created lazily on first mint/receipt.
type addressLedger struct {
	state *state.State
}

func newAddressLedger(state *state.State) *addressLedger {
	return &addressLedger{state}
}

func (l *addressLedger) getAggregate(addr archetype.Address) (*aggregate, error) {
	var agg aggregate
	if err := l.state.GetStructedStorage(aggregateKey(addr), &agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

func (l *addressLedger) setAggregate(addr archetype.Address, agg *aggregate) error {
	return l.state.SetStructedStorage(aggregateKey(addr), agg)
}

func (l *addressLedger) getAndSetAggregate(addr archetype.Address, cb func(*aggregate) error) error {
	agg, err := l.getAggregate(addr)
	if err != nil {
		return err
	}
	if err := cb(agg); err != nil {
		return err
	}
	return l.setAggregate(addr, agg)
}

// increaseBalanceAndMinted bumps both counters by quantity in one write.
func (l *addressLedger) increaseBalanceAndMinted(addr archetype.Address, quantity uint64) error {
	return l.getAndSetAggregate(addr, func(agg *aggregate) error {
		agg.Balance += quantity
		agg.Minted += quantity
		return nil
	})
}

// transferBalance moves one unit of balance between owners.
// Underflow means the ownership chain and the ledger disagree.
func (l *addressLedger) transferBalance(from, to archetype.Address) error {
	fromAgg, err := l.getAggregate(from)
	if err != nil {
		return err
	}
	if fromAgg.Balance == 0 {
		return errors.WithMessage(ErrInvalidTransfer, "balance underflow")
	}
	if from == to {
		return nil
	}
	fromAgg.Balance--
	if err := l.setAggregate(from, fromAgg); err != nil {
		return err
	}
	return l.getAndSetAggregate(to, func(agg *aggregate) error {
		agg.Balance++
		return nil
	})
}

func (l *addressLedger) balanceOf(addr archetype.Address) (uint64, error) {
	agg, err := l.getAggregate(addr)
	if err != nil {
		return 0, err
	}
	return agg.Balance, nil
}

func (l *addressLedger) mintedOf(addr archetype.Address) (uint64, error) {
	agg, err := l.getAggregate(addr)
	if err != nil {
		return 0, err
	}
	return agg.Minted, nil
}

func (l *addressLedger) getAux(addr archetype.Address) (uint64, error) {
	agg, err := l.getAggregate(addr)
	if err != nil {
		return 0, err
	}
	return agg.Aux, nil
}

func (l *addressLedger) setAux(addr archetype.Address, aux uint64) error {
	return l.getAndSetAggregate(addr, func(agg *aggregate) error {
		agg.Aux = aux
		return nil
	})
}

package transferdb

import (
	"fmt"

	"github.com/guminc/EvolvableArchetype/archetype"
)

// Kind of a journaled event.
type Kind string

const (
	// KindMint a batch mint; FirstID..LastID assigned to To.
	KindMint Kind = "mint"
	// KindTransfer a single-token transfer; FirstID == LastID.
	KindTransfer Kind = "transfer"
)

// Event store in db
type Event struct {
	Seq      int64              `json:"seq"`
	Time     uint64             `json:"time"`
	Kind     Kind               `json:"kind"`
	FirstID  uint64             `json:"firstId"`
	LastID   uint64             `json:"lastId"`
	From     *archetype.Address `json:"from,omitempty"` // nil for mints
	To       archetype.Address  `json:"to"`
	Quantity uint64             `json:"quantity"`
}

// NewMint return a formatted mint event.
func NewMint(time uint64, to archetype.Address, firstID, lastID uint64) *Event {
	return &Event{
		Time:     time,
		Kind:     KindMint,
		FirstID:  firstID,
		LastID:   lastID,
		To:       to,
		Quantity: lastID - firstID + 1,
	}
}

// NewTransfer return a formatted transfer event.
func NewTransfer(time uint64, from, to archetype.Address, id uint64) *Event {
	return &Event{
		Time:     time,
		Kind:     KindTransfer,
		FirstID:  id,
		LastID:   id,
		From:     &from,
		To:       to,
		Quantity: 1,
	}
}

func (ev *Event) String() string {
	from := "-"
	if ev.From != nil {
		from = ev.From.String()
	}
	return fmt.Sprintf(`
		Event(
			seq:      %v,
			time:     %v,
			kind:     %v,
			firstID:  %v,
			lastID:   %v,
			from:     %v,
			to:       %v,
			quantity: %v,)`,
		ev.Seq,
		ev.Time,
		ev.Kind,
		ev.FirstID,
		ev.LastID,
		from,
		ev.To,
		ev.Quantity)
}

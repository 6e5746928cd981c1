package token

import (
	"encoding/binary"
	"math"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/guminc/EvolvableArchetype/archetype"
	"github.com/guminc/EvolvableArchetype/metrics"
	"github.com/guminc/EvolvableArchetype/state"
)

var (
	nextIDKey = archetype.Bytes32(crypto.Keccak256Hash([]byte("next-token-id")))

	metricRecordSplits = metrics.LazyLoadCounter("record_split_count")
	metricScanLength   = metrics.LazyLoadHistogram("record_scan_length", metrics.BucketScanLength)
)

func recordKey(id uint64) archetype.Bytes32 {
	var b [9]byte
	b[0] = 'r'
	binary.BigEndian.PutUint64(b[1:], id)
	return archetype.BytesToBytes32(b[:])
}

// ownershipChain is the sparse array of explicit ownership records plus the
// next-free-id counter. Interior ids of a batch carry no record of their own
// and resolve by scanning backward to the batch head.
type ownershipChain struct {
	state *state.State
}

func newOwnershipChain(state *state.State) *ownershipChain {
	return &ownershipChain{state}
}

// nextID returns the next id to be assigned. Ids start at FirstTokenID and
// are never reused.
func (c *ownershipChain) nextID() (uint64, error) {
	var id uint64
	if err := c.state.GetStructedStorage(nextIDKey, &id); err != nil {
		return 0, err
	}
	if id == 0 {
		id = archetype.FirstTokenID
	}
	return id, nil
}

func (c *ownershipChain) getRecord(id uint64) (*Record, error) {
	raw, err := c.state.GetRawStorage(recordKey(id))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return &Record{}, nil
	}
	return Unpack(archetype.BytesToBytes32(raw)), nil
}

// writeExplicit unconditionally overwrites the record at id.
func (c *ownershipChain) writeExplicit(id uint64, rec *Record) {
	word := rec.Pack()
	c.state.SetRawStorage(recordKey(id), word[:])
}

// mintBatch assigns quantity sequential ids to rec.Owner, writing exactly
// one explicit record at the first id regardless of quantity.
func (c *ownershipChain) mintBatch(rec *Record, quantity uint64) (first, last uint64, err error) {
	if quantity == 0 {
		return 0, 0, ErrInvalidQuantity
	}
	if first, err = c.nextID(); err != nil {
		return 0, 0, err
	}
	// the counter must never wrap, or ids would be reassigned
	if quantity > math.MaxUint64-first {
		return 0, 0, ErrInvalidQuantity
	}
	c.writeExplicit(first, rec)
	if err = c.state.SetStructedStorage(nextIDKey, first+quantity); err != nil {
		return 0, 0, err
	}
	return first, first + quantity - 1, nil
}

// resolveRecord scans from id downward to the governing explicit record and
// returns it along with the id it sits at. The scan is bounded by the start
// of the containing batch.
func (c *ownershipChain) resolveRecord(id uint64) (*Record, uint64, error) {
	next, err := c.nextID()
	if err != nil {
		return nil, 0, err
	}
	if id < archetype.FirstTokenID || id >= next {
		return nil, 0, ErrNonexistentToken
	}
	for at := id; ; at-- {
		rec, err := c.getRecord(at)
		if err != nil {
			return nil, 0, err
		}
		if !rec.IsEmpty() {
			metricScanLength().Observe(int64(id - at))
			return rec, at, nil
		}
	}
}

// splitIfNeeded materializes an explicit record at id+1, copying the
// governing pre-transfer record verbatim, so the remainder of the batch
// keeps resolving to the old owner. Must run before the record at id is
// overwritten.
func (c *ownershipChain) splitIfNeeded(id uint64, governing *Record) error {
	next, err := c.nextID()
	if err != nil {
		return err
	}
	if id+1 >= next {
		return nil
	}
	rec, err := c.getRecord(id + 1)
	if err != nil {
		return err
	}
	if !rec.IsEmpty() {
		return nil
	}
	c.writeExplicit(id+1, governing)
	metricRecordSplits().Add(1)
	return nil
}

package token

import "errors"

// Errors surfaced by token operations.
// Every failure aborts the whole operation with state unchanged.
var (
	// ErrInvalidQuantity zero mint quantity.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrNonexistentToken token id out of the minted range.
	ErrNonexistentToken = errors.New("nonexistent token")
	// ErrTokenLocked transfer attempted before stake maturity.
	ErrTokenLocked = errors.New("token locked")
	// ErrInvalidTransfer zero destination, ownership mismatch, or a
	// ledger consistency violation.
	ErrInvalidTransfer = errors.New("invalid transfer")
)

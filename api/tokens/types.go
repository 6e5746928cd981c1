package tokens

import (
	"github.com/guminc/EvolvableArchetype/archetype"
	"github.com/guminc/EvolvableArchetype/token"
)

// MintRequest body of POST /tokens.
type MintRequest struct {
	To        archetype.Address `json:"to"`
	Quantity  uint64            `json:"quantity"`
	AutoStake bool              `json:"autoStake"`
}

// MintResponse the id range assigned to the batch.
type MintResponse struct {
	FirstID uint64 `json:"firstId"`
	LastID  uint64 `json:"lastId"`
}

// TransferRequest body of POST /tokens/{id}/transfer.
type TransferRequest struct {
	From archetype.Address `json:"from"`
	To   archetype.Address `json:"to"`
}

// TokenResponse the ownership/staking view of one token.
type TokenResponse struct {
	ID        uint64            `json:"id"`
	Owner     archetype.Address `json:"owner"`
	Stake     *token.StakeInfo  `json:"stake"`
	Evolution *uint32           `json:"evolution,omitempty"`
}

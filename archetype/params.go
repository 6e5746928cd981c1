package archetype

import "math/big"

// Constants of the ledger.
const (
	// FirstTokenID ids are assigned sequentially starting here, never reused.
	FirstTokenID uint64 = 1

	// MaxStakeSeconds upper bound of the 32-bit staking fields.
	MaxStakeSeconds uint64 = 1<<32 - 1
)

// Keys of deployment params.
var (
	KeyDeployEpoch    = BytesToBytes32([]byte("deploy-epoch"))
	KeyAutoStakeMint  = BytesToBytes32([]byte("auto-stake-mint"))
	KeyAutoStakeTx    = BytesToBytes32([]byte("auto-stake-tx"))
	KeyMinStakingTime = BytesToBytes32([]byte("min-staking-time"))

	InitialMinStakingTime = big.NewInt(60 * 60 * 24) // one day
)

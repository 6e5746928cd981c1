package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// CollectionConfig describes the collection a fresh data dir is
// initialized with. Values already persisted in state win over the
// file on later runs.
type CollectionConfig struct {
	Name string `yaml:"name"`

	// DeployEpoch unix seconds all staking offsets are relative to.
	// 0 means the process start time of the first run.
	DeployEpoch uint64 `yaml:"deployEpoch"`

	// AutoStakeMint staking duration applied to freshly minted tokens, 0 disables.
	AutoStakeMint uint64 `yaml:"autoStakeMint"`
	// AutoStakeTx staking duration re-applied on transfer, 0 disables.
	AutoStakeTx uint64 `yaml:"autoStakeTx"`
	// MinStakingTime floor for non-zero auto-stake durations.
	MinStakingTime uint64 `yaml:"minStakingTime"`

	// Evolution cumulative staked seconds per stage, ascending.
	Evolution []uint32 `yaml:"evolution"`
}

func loadCollectionConfig(path string) (*CollectionConfig, error) {
	var cfg CollectionConfig
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessage(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WithMessage(err, "parse config")
	}
	for i := 1; i < len(cfg.Evolution); i++ {
		if cfg.Evolution[i] < cfg.Evolution[i-1] {
			return nil, errors.New("config: evolution thresholds must be ascending")
		}
	}
	return &cfg, nil
}

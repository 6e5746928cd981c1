package token

// EvolutionStrategy resolves a token's evolution stage from its cumulative
// staked time. Metadata resolution itself lives outside the core; this is
// the boundary consumed by the serving layer.
type EvolutionStrategy interface {
	Evolve(id uint64, totalStakedTime uint32) uint32
}

// ThresholdStrategy evolves a token one stage per crossed threshold.
// Thresholds are cumulative staked seconds in ascending order.
type ThresholdStrategy []uint32

// Evolve implements EvolutionStrategy.
func (s ThresholdStrategy) Evolve(_ uint64, totalStakedTime uint32) uint32 {
	var stage uint32
	for _, threshold := range s {
		if totalStakedTime < threshold {
			break
		}
		stage++
	}
	return stage
}

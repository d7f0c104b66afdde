package agents

import (
	"math/rand/v2"

	"marketsim/src/engine"
)

// NoiseTrader places limit orders scattered around the fair value on a
// random side.
type NoiseTrader struct {
	Account
	sigma       float64
	maxQuantity int64
	rng         *rand.Rand
}

func NewNoiseTrader(id string, sigma float64, rng *rand.Rand) *NoiseTrader {
	return &NoiseTrader{
		Account:     newAccount(id),
		sigma:       sigma,
		maxQuantity: 20,
		rng:         rng,
	}
}

func (n *NoiseTrader) Act(_ engine.Snapshot, fairValue float64) []engine.Intent {
	side := engine.SideBuy
	if n.rng.IntN(2) == 1 {
		side = engine.SideSell
	}
	qty := 1 + n.rng.Int64N(n.maxQuantity)

	variation := n.rng.NormFloat64() * n.sigma
	price := fairValue + variation
	if side == engine.SideSell {
		price = fairValue - variation
	}

	return []engine.Intent{{
		Type:     engine.IntentPlaceLimit,
		Side:     side,
		Price:    floorPrice(price),
		Quantity: qty,
		AgentID:  n.id,
	}}
}

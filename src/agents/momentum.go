package agents

import (
	"math/rand/v2"

	"marketsim/src/engine"
)

// MomentumTrader sends market orders in the direction of the mid price
// relative to its simple moving average.
type MomentumTrader struct {
	Account
	window  int
	history []float64 // ring buffer of the last window mids
	next    int
	rng     *rand.Rand
}

func NewMomentumTrader(id string, window int, rng *rand.Rand) *MomentumTrader {
	if window < 1 {
		window = 1
	}
	return &MomentumTrader{
		Account: newAccount(id),
		window:  window,
		history: make([]float64, 0, window),
		rng:     rng,
	}
}

func (m *MomentumTrader) Act(snap engine.Snapshot, _ float64) []engine.Intent {
	m.observe(snap.MidPrice)
	if len(m.history) < m.window {
		return nil
	}

	// mids within half a tick of the average count as flat
	diff := snap.MidPrice - m.mean()
	var side engine.OrderSide
	switch {
	case diff > engine.MinTick/2:
		side = engine.SideBuy
	case diff < -engine.MinTick/2:
		side = engine.SideSell
	default:
		return nil
	}

	return []engine.Intent{{
		Type:     engine.IntentPlaceMarket,
		Side:     side,
		Quantity: 5 + m.rng.Int64N(11),
		AgentID:  m.id,
	}}
}

func (m *MomentumTrader) observe(mid float64) {
	if len(m.history) < m.window {
		m.history = append(m.history, mid)
		return
	}
	m.history[m.next] = mid
	m.next = (m.next + 1) % m.window
}

// mean is recomputed over the whole window every turn.
func (m *MomentumTrader) mean() float64 {
	var sum float64
	for _, v := range m.history {
		sum += v
	}
	return sum / float64(len(m.history))
}

package agents

import (
	"fmt"
	"math/rand/v2"

	"marketsim/src/engine"
)

const (
	minQuoteSpread = 0.02
	crossedBump    = 0.05
)

// MarketMakerConfig tunes a MarketMaker.
type MarketMakerConfig struct {
	InventoryLimit int64
	SkewFactor     float64 // price shift per unit of inventory
	MaxQuantity    int64
}

func DefaultMarketMakerConfig() MarketMakerConfig {
	return MarketMakerConfig{
		InventoryLimit: 1000,
		SkewFactor:     0.01,
		MaxQuantity:    10,
	}
}

// MarketMaker quotes both sides around an inventory-skewed reservation price
// and replaces its quotes every turn.
type MarketMaker struct {
	Account
	cfg     MarketMakerConfig
	rng     *rand.Rand
	active  []string
	counter int
}

func NewMarketMaker(id string, cfg MarketMakerConfig, rng *rand.Rand) *MarketMaker {
	if cfg.MaxQuantity < 1 {
		cfg.MaxQuantity = 1
	}
	return &MarketMaker{
		Account: newAccount(id),
		cfg:     cfg,
		rng:     rng,
	}
}

// Act cancels the previous quotes and, unless inventory is at the limit,
// places a fresh bid and ask.
func (m *MarketMaker) Act(snap engine.Snapshot, _ float64) []engine.Intent {
	intents := make([]engine.Intent, 0, len(m.active)+2)
	for _, id := range m.active {
		intents = append(intents, engine.Intent{Type: engine.IntentCancel, AgentID: m.id, OrderID: id})
	}
	m.active = m.active[:0]

	if abs(m.inventory) >= m.cfg.InventoryLimit {
		return intents
	}

	reservation := snap.MidPrice - float64(m.inventory)*m.cfg.SkewFactor
	spread := max(minQuoteSpread, snap.Spread*(0.9+0.2*m.rng.Float64()))
	half := spread / 2

	bid := floorPrice(reservation - half)
	ask := floorPrice(reservation + half)
	if ask <= bid {
		ask = roundCents(bid + crossedBump)
	}

	qty := 1 + m.rng.Int64N(m.cfg.MaxQuantity)

	m.counter++
	bidID := fmt.Sprintf("%s_%d_B", m.id, m.counter)
	askID := fmt.Sprintf("%s_%d_A", m.id, m.counter)
	m.active = append(m.active, bidID, askID)

	return append(intents,
		engine.Intent{Type: engine.IntentPlaceLimit, Side: engine.SideBuy, Price: bid, Quantity: qty, AgentID: m.id, OrderID: bidID},
		engine.Intent{Type: engine.IntentPlaceLimit, Side: engine.SideSell, Price: ask, Quantity: qty, AgentID: m.id, OrderID: askID},
	)
}

// ActiveQuotes returns the ids of the quotes placed on the last turn.
func (m *MarketMaker) ActiveQuotes() []string {
	return append([]string(nil), m.active...)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

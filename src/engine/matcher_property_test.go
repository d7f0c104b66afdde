package engine_test

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"marketsim/src/engine"
)

type step struct {
	cancel    bool
	cancelIdx int
	side      engine.OrderSide
	orderType engine.OrderType
	priceTick int
	qty       int64
}

func drawStep(t *rapid.T, i int) step {
	return step{
		cancel:    rapid.IntRange(0, 4).Draw(t, fmt.Sprintf("cancel%d", i)) == 0,
		cancelIdx: rapid.IntRange(0, 1000).Draw(t, fmt.Sprintf("cancelIdx%d", i)),
		side:      rapid.SampledFrom([]engine.OrderSide{engine.SideBuy, engine.SideSell}).Draw(t, fmt.Sprintf("side%d", i)),
		orderType: rapid.SampledFrom([]engine.OrderType{engine.TypeLimit, engine.TypeLimit, engine.TypeLimit, engine.TypeMarket}).Draw(t, fmt.Sprintf("type%d", i)),
		priceTick: rapid.IntRange(90, 110).Draw(t, fmt.Sprintf("price%d", i)),
		qty:       rapid.Int64Range(0, 20).Draw(t, fmt.Sprintf("qty%d", i)),
	}
}

// runSteps drives a random mix of placements and cancels and returns the
// engine with every submitted order.
func runSteps(t *rapid.T, check func(e *engine.MatchingEngine, o *engine.Order, before map[string]int64, result *engine.MatchResult)) {
	e := engine.NewMatchingEngine(engine.DefaultConfig())
	var ids []string

	n := rapid.IntRange(1, 80).Draw(t, "steps")
	for i := 0; i < n; i++ {
		s := drawStep(t, i)
		if s.cancel && len(ids) > 0 {
			e.CancelOrder(ids[s.cancelIdx%len(ids)])
			continue
		}

		id := fmt.Sprintf("o%d", i)
		order, err := engine.NewOrder(id, "agent"+id, s.side, s.orderType, float64(s.priceTick), s.qty, float64(i))
		if err != nil {
			t.Fatalf("NewOrder: %v", err)
		}

		before := make(map[string]int64, len(ids))
		for _, known := range ids {
			o, _ := e.Order(known)
			before[known] = o.Quantity
		}

		result, err := e.AddOrder(order)
		if err != nil {
			t.Fatalf("AddOrder: %v", err)
		}
		ids = append(ids, id)
		check(e, order, before, result)
	}
}

func TestProperty_NoCrossedBook(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		runSteps(t, func(e *engine.MatchingEngine, _ *engine.Order, _ map[string]int64, _ *engine.MatchResult) {
			snap := e.Snapshot()
			if snap.HasBid && snap.HasAsk && snap.BestBid > snap.BestAsk {
				t.Fatalf("book is crossed: best bid %f > best ask %f", snap.BestBid, snap.BestAsk)
			}
			if err := e.CheckInvariants(); err != nil {
				t.Fatalf("invariants: %v", err)
			}
		})
	})
}

func TestProperty_QuantityConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		executed := map[string]int64{}

		runSteps(t, func(e *engine.MatchingEngine, incoming *engine.Order, before map[string]int64, result *engine.MatchResult) {
			remaining := incoming.OriginalQuantity
			for _, trade := range result.Trades {
				if trade.Quantity <= 0 {
					t.Fatalf("non-positive trade quantity %d", trade.Quantity)
				}
				if trade.Quantity > remaining {
					t.Fatalf("trade %d exceeds incoming remaining %d", trade.Quantity, remaining)
				}
				remaining -= trade.Quantity

				restingID := trade.SellOrderID
				if incoming.Side == engine.SideSell {
					restingID = trade.BuyOrderID
				}
				if trade.Quantity > before[restingID] {
					t.Fatalf("trade %d exceeds resting %s remaining %d", trade.Quantity, restingID, before[restingID])
				}
				before[restingID] -= trade.Quantity

				executed[trade.BuyOrderID] += trade.Quantity
				executed[trade.SellOrderID] += trade.Quantity
			}

			for id, qty := range executed {
				o, ok := e.Order(id)
				if !ok {
					t.Fatalf("trade references unknown order %s", id)
				}
				if qty > o.OriginalQuantity {
					t.Fatalf("order %s executed %d of %d", id, qty, o.OriginalQuantity)
				}
				if qty != o.FilledQuantity() {
					t.Fatalf("order %s filled %d but trades say %d", id, o.FilledQuantity(), qty)
				}
			}
		})
	})
}

func TestProperty_MarketOrdersNeverRest(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		runSteps(t, func(e *engine.MatchingEngine, incoming *engine.Order, _ map[string]int64, result *engine.MatchResult) {
			if !incoming.IsMarket() {
				return
			}
			if !result.Status.IsTerminal() && incoming.OriginalQuantity > 0 {
				t.Fatalf("market order %s left in status %s", incoming.ID, result.Status)
			}
			for _, side := range []engine.OrderSide{engine.SideBuy, engine.SideSell} {
				for _, o := range e.RestingOrders(side) {
					if o.IsMarket() {
						t.Fatalf("market order %s found resting", o.ID)
					}
				}
			}
		})
	})
}

package engine_test

import (
	"errors"
	"math"
	"testing"

	"marketsim/src/engine"
)

func mustOrder(t testing.TB, id, agentID string, side engine.OrderSide, orderType engine.OrderType, price float64, qty int64, ts float64) *engine.Order {
	t.Helper()
	order, err := engine.NewOrder(id, agentID, side, orderType, price, qty, ts)
	if err != nil {
		t.Fatalf("NewOrder(%s) failed: %v", id, err)
	}
	return order
}

// TestNewOrderDefaults tests that a freshly built order is OPEN with its
// original quantity recorded
func TestNewOrderDefaults(t *testing.T) {
	order := mustOrder(t, "o1", "agent", engine.SideBuy, engine.TypeLimit, 101.5, 10, 3.25)

	if order.Status != engine.StatusOpen {
		t.Errorf("Expected status OPEN, got: %s", order.Status)
	}
	if order.OriginalQuantity != 10 || order.Quantity != 10 {
		t.Errorf("Expected quantity 10/10, got: %d/%d", order.Quantity, order.OriginalQuantity)
	}
	if order.Timestamp != 3.25 {
		t.Errorf("Expected timestamp 3.25, got: %f", order.Timestamp)
	}
	if order.FilledQuantity() != 0 {
		t.Errorf("Expected filled quantity 0, got: %d", order.FilledQuantity())
	}
}

// TestNewOrderRejectsInvalidInput tests that construction errors are
// reported, never coerced
func TestNewOrderRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		side      engine.OrderSide
		orderType engine.OrderType
		qty       int64
		want      error
	}{
		{"negative quantity", engine.SideBuy, engine.TypeLimit, -1, engine.ErrNegativeQuantity},
		{"empty side", "", engine.TypeLimit, 5, engine.ErrInvalidSide},
		{"unknown side", "HOLD", engine.TypeLimit, 5, engine.ErrInvalidSide},
		{"unknown type", engine.SideSell, "STOP", 5, engine.ErrInvalidOrderType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := engine.NewOrder("bad", "agent", tt.side, tt.orderType, 100, tt.qty, 0)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected error %v, got: %v", tt.want, err)
			}
			if order != nil {
				t.Errorf("Expected nil order on error, got: %+v", order)
			}
		})
	}
}

// TestNewOrderRejectsNonFinitePrice tests that NaN and infinite limit prices
// are rejected while a market order ignores its price
func TestNewOrderRejectsNonFinitePrice(t *testing.T) {
	for _, price := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		order, err := engine.NewOrder("bad", "agent", engine.SideBuy, engine.TypeLimit, price, 5, 0)
		if !errors.Is(err, engine.ErrInvalidPrice) {
			t.Errorf("Expected ErrInvalidPrice for price %v, got: %v", price, err)
		}
		if order != nil {
			t.Errorf("Expected nil order for price %v, got: %+v", price, order)
		}
	}

	market := mustOrder(t, "m1", "agent", engine.SideBuy, engine.TypeMarket, math.NaN(), 5, 0)
	if market.Price != 0 {
		t.Errorf("Expected market price 0, got: %f", market.Price)
	}
}

// TestNewOrderClampsNegativePrice tests that price noise below zero lands on
// the minimum tick
func TestNewOrderClampsNegativePrice(t *testing.T) {
	order := mustOrder(t, "o1", "agent", engine.SideSell, engine.TypeLimit, -3.7, 1, 0)
	if order.Price != engine.MinTick {
		t.Errorf("Expected price %f, got: %f", engine.MinTick, order.Price)
	}

	zero := mustOrder(t, "o2", "agent", engine.SideSell, engine.TypeLimit, 0, 1, 0)
	if zero.Price != 0 {
		t.Errorf("Expected zero price to be kept, got: %f", zero.Price)
	}
}

// TestNewMarketOrderDropsPrice tests that a market order carries no price
func TestNewMarketOrderDropsPrice(t *testing.T) {
	order := mustOrder(t, "m1", "agent", engine.SideBuy, engine.TypeMarket, 250, 4, 0)
	if !order.IsMarket() {
		t.Fatal("Expected market order")
	}
	if order.Price != 0 {
		t.Errorf("Expected price 0 for market order, got: %f", order.Price)
	}
}

func TestParseSideAndType(t *testing.T) {
	for input, want := range map[string]engine.OrderSide{"buy": engine.SideBuy, " SELL ": engine.SideSell, "Buy": engine.SideBuy} {
		got, err := engine.ParseSide(input)
		if err != nil || got != want {
			t.Errorf("ParseSide(%q) = %s, %v; want %s", input, got, err, want)
		}
	}
	if _, err := engine.ParseSide("short"); !errors.Is(err, engine.ErrInvalidSide) {
		t.Errorf("Expected ErrInvalidSide, got: %v", err)
	}

	for input, want := range map[string]engine.OrderType{"limit": engine.TypeLimit, "MARKET": engine.TypeMarket} {
		got, err := engine.ParseOrderType(input)
		if err != nil || got != want {
			t.Errorf("ParseOrderType(%q) = %s, %v; want %s", input, got, err, want)
		}
	}
	if _, err := engine.ParseOrderType("ioc"); !errors.Is(err, engine.ErrInvalidOrderType) {
		t.Errorf("Expected ErrInvalidOrderType, got: %v", err)
	}
}

// TestStatusTransitions tests the lifecycle table, terminal states have no exits
func TestStatusTransitions(t *testing.T) {
	all := []engine.OrderStatus{engine.StatusOpen, engine.StatusPartial, engine.StatusFilled, engine.StatusCancelled}
	allowed := map[engine.OrderStatus]map[engine.OrderStatus]bool{
		engine.StatusOpen:      {engine.StatusPartial: true, engine.StatusFilled: true, engine.StatusCancelled: true},
		engine.StatusPartial:   {engine.StatusPartial: true, engine.StatusFilled: true, engine.StatusCancelled: true},
		engine.StatusFilled:    {},
		engine.StatusCancelled: {},
	}

	for _, from := range all {
		for _, to := range all {
			if got := from.CanTransition(to); got != allowed[from][to] {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", from, to, got, allowed[from][to])
			}
		}
	}

	if !engine.StatusFilled.IsTerminal() || !engine.StatusCancelled.IsTerminal() {
		t.Error("FILLED and CANCELLED must be terminal")
	}
	if engine.StatusOpen.IsTerminal() || engine.StatusPartial.IsTerminal() {
		t.Error("OPEN and PARTIAL must not be terminal")
	}
}

func TestSideOpposite(t *testing.T) {
	if engine.SideBuy.Opposite() != engine.SideSell || engine.SideSell.Opposite() != engine.SideBuy {
		t.Error("Opposite should swap BUY and SELL")
	}
}

func TestIDGeneratorDeterministic(t *testing.T) {
	a := engine.NewIDGenerator(42)
	b := engine.NewIDGenerator(42)
	c := engine.NewIDGenerator(7)

	first := a.Next("order")
	if first != b.Next("order") {
		t.Error("Expected identical ids for identical seeds")
	}
	if first == c.Next("order") {
		t.Error("Expected different ids for different seeds")
	}
	if first == a.Next("order") {
		t.Error("Expected successive ids to differ")
	}
}

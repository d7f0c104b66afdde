// Package agents holds the trading strategies that drive a simulation. Agents
// never touch the engine directly: they read a snapshot, return intents and
// are told about their fills afterwards.
package agents

import (
	"github.com/shopspring/decimal"

	"marketsim/src/engine"
)

// Agent is a trading strategy participating in a simulation.
type Agent interface {
	ID() string
	// Act returns the intents for one turn. fairValue is only meaningful to
	// strategies that trade around it.
	Act(snap engine.Snapshot, fairValue float64) []engine.Intent
	OnFill(trade engine.Trade)
}

// Account tracks an agent's inventory and cash. Strategies embed it to get
// ID and OnFill.
type Account struct {
	id        string
	inventory int64
	balance   decimal.Decimal
}

func newAccount(id string) Account {
	return Account{id: id, balance: decimal.Zero}
}

func (a *Account) ID() string {
	return a.id
}

// OnFill books a trade against the account. A self-trade touches both legs
// and nets to zero.
func (a *Account) OnFill(trade engine.Trade) {
	notional := decimal.NewFromFloat(trade.Price).Mul(decimal.NewFromInt(trade.Quantity))
	if trade.BuyerID == a.id {
		a.inventory += trade.Quantity
		a.balance = a.balance.Sub(notional)
	}
	if trade.SellerID == a.id {
		a.inventory -= trade.Quantity
		a.balance = a.balance.Add(notional)
	}
}

func (a *Account) Inventory() int64 {
	return a.inventory
}

func (a *Account) Balance() decimal.Decimal {
	return a.balance
}

// roundCents rounds a price to the nearest cent.
func roundCents(price float64) float64 {
	v, _ := decimal.NewFromFloat(price).Round(2).Float64()
	return v
}

// floorPrice keeps a quoted price at or above one tick.
func floorPrice(price float64) float64 {
	return max(engine.MinTick, roundCents(price))
}

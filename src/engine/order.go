package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

type OrderType string

const (
	TypeLimit  OrderType = "LIMIT"
	TypeMarket OrderType = "MARKET"
)

type OrderStatus string

const (
	StatusOpen      OrderStatus = "OPEN"
	StatusPartial   OrderStatus = "PARTIAL"
	StatusFilled    OrderStatus = "FILLED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// MinTick is the smallest positive price. Negative submitted prices are
// clamped to it.
const MinTick = 0.01

var (
	ErrNegativeQuantity = errors.New("order quantity must not be negative")
	ErrInvalidSide      = errors.New("order side must be BUY or SELL")
	ErrInvalidOrderType = errors.New("order type must be LIMIT or MARKET")
	ErrInvalidPrice     = errors.New("limit price must be finite")
)

func ParseSide(s string) (OrderSide, error) {
	switch OrderSide(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
}

func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeLimit:
		return TypeLimit, nil
	case TypeMarket:
		return TypeMarket, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrderType, s)
}

func (s OrderSide) Opposite() OrderSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func (s OrderSide) valid() bool {
	return s == SideBuy || s == SideSell
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusFilled || s == StatusCancelled
}

// CanTransition encodes the order lifecycle:
// OPEN -> PARTIAL | FILLED | CANCELLED, PARTIAL -> PARTIAL | FILLED | CANCELLED.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	switch s {
	case StatusOpen:
		return to == StatusPartial || to == StatusFilled || to == StatusCancelled
	case StatusPartial:
		return to == StatusPartial || to == StatusFilled || to == StatusCancelled
	}
	return false
}

// Order is a request to trade. Quantity is the remaining quantity and only
// ever decreases; OriginalQuantity keeps the submitted amount.
type Order struct {
	ID               string
	AgentID          string
	Side             OrderSide
	Type             OrderType
	Price            float64 // ignored for MARKET
	Quantity         int64
	OriginalQuantity int64
	Timestamp        float64 // simulation seconds
	Status           OrderStatus
}

// NewOrder validates and builds an order. Invalid quantity, side or type are
// caller bugs and are rejected, as is a NaN or infinite limit price. A negative
// price is clamped to MinTick.
func NewOrder(id, agentID string, side OrderSide, orderType OrderType, price float64, quantity int64, timestamp float64) (*Order, error) {
	if err := validateOrder(id, side, orderType, price, quantity); err != nil {
		return nil, err
	}

	if orderType == TypeMarket {
		price = 0
	} else if price < 0 {
		price = MinTick
	}

	return &Order{
		ID:               id,
		AgentID:          agentID,
		Side:             side,
		Type:             orderType,
		Price:            price,
		Quantity:         quantity,
		OriginalQuantity: quantity,
		Timestamp:        timestamp,
		Status:           StatusOpen,
	}, nil
}

func validateOrder(id string, side OrderSide, orderType OrderType, price float64, quantity int64) error {
	if quantity < 0 {
		return fmt.Errorf("%w: %d for order %q", ErrNegativeQuantity, quantity, id)
	}
	if !side.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}
	if orderType != TypeLimit && orderType != TypeMarket {
		return fmt.Errorf("%w: %q", ErrInvalidOrderType, orderType)
	}
	if orderType == TypeLimit && !finite(price) {
		return fmt.Errorf("%w: %v for order %q", ErrInvalidPrice, price, id)
	}
	return nil
}

func (o *Order) IsMarket() bool {
	return o.Type == TypeMarket
}

func (o *Order) FilledQuantity() int64 {
	return o.OriginalQuantity - o.Quantity
}

// IsLive reports whether the order can still trade.
func (o *Order) IsLive() bool {
	return !o.Status.IsTerminal() && o.Quantity > 0
}

// fill removes executed quantity and moves the status to PARTIAL or FILLED.
func (o *Order) fill(quantity int64) {
	o.Quantity -= quantity
	if o.Quantity == 0 {
		o.setStatus(StatusFilled)
	} else {
		o.setStatus(StatusPartial)
	}
}

func (o *Order) setStatus(status OrderStatus) bool {
	if !o.Status.CanTransition(status) {
		return false
	}
	o.Status = status
	return true
}

// Trade is an execution between an incoming (aggressor) order and a resting one.
type Trade struct {
	ID            string
	Timestamp     float64
	Price         float64
	Quantity      int64
	BuyerID       string
	SellerID      string
	BuyOrderID    string
	SellOrderID   string
	AggressorSide OrderSide
}

// Notional is price times quantity.
func (t Trade) Notional() float64 {
	return t.Price * float64(t.Quantity)
}

func finite(price float64) bool {
	return !math.IsNaN(price) && !math.IsInf(price, 0)
}

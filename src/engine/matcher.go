package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

var (
	ErrDuplicateOrderID   = errors.New("order id already registered")
	ErrCrossedBook        = errors.New("book is crossed")
	ErrMarketOrderResting = errors.New("market order found resting in the book")
	ErrQuantityInvariant  = errors.New("order quantity out of range")
)

type Config struct {
	// DefaultMid and DefaultSpread seed the snapshot fallbacks used while the
	// book is empty or one-sided.
	DefaultMid    float64
	DefaultSpread float64
	// Seed namespaces the engine-generated order and trade ids.
	Seed   int64
	Logger *zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		DefaultMid:    100.0,
		DefaultSpread: 0.05,
	}
}

// Snapshot is a top-of-book read. A missing bid is reported as 0 and a
// missing ask as +Inf so consumers can use them as bounds.
type Snapshot struct {
	BestBid  float64
	BestAsk  float64
	MidPrice float64
	Spread   float64
	HasBid   bool
	HasAsk   bool
}

type MatchResult struct {
	OrderID           string
	Status            OrderStatus
	FilledQuantity    int64
	RemainingQuantity int64
	Trades            []Trade
	// Accepted is false only for a CANCEL intent that found nothing to cancel.
	Accepted bool
}

// MatchingEngine owns the order book, the order index and the tape. It is not
// safe for concurrent use; the scheduler drives it from a single goroutine.
type MatchingEngine struct {
	book       *OrderBook
	orders     map[string]*Order
	tape       *Tape
	ids        *IDGenerator
	lastMid    float64
	lastSpread float64
	log        zerolog.Logger
}

func NewMatchingEngine(cfg Config) *MatchingEngine {
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "engine").Logger()
	}

	return &MatchingEngine{
		book:       NewOrderBook(),
		orders:     make(map[string]*Order),
		tape:       NewTape(),
		ids:        NewIDGenerator(cfg.Seed),
		lastMid:    cfg.DefaultMid,
		lastSpread: cfg.DefaultSpread,
		log:        log,
	}
}

// AddOrder registers order, matches it against the opposite side and rests
// any limit remainder. A market remainder is withdrawn.
func (e *MatchingEngine) AddOrder(order *Order) (*MatchResult, error) {
	if order == nil {
		return nil, ErrNilOrder
	}
	if err := validateOrder(order.ID, order.Side, order.Type, order.Price, order.Quantity); err != nil {
		return nil, err
	}
	if order.ID == "" {
		order.ID = e.ids.Next("order")
	}
	if _, exists := e.orders[order.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateOrderID, order.ID)
	}
	if order.OriginalQuantity < order.Quantity {
		order.OriginalQuantity = order.Quantity
	}
	if !order.IsMarket() && order.Price < 0 {
		order.Price = MinTick
	}

	order.Status = StatusOpen
	e.orders[order.ID] = order

	result := &MatchResult{OrderID: order.ID, Accepted: true}

	// edge case: zero quantity is registered but never matched or rested
	if order.Quantity > 0 {
		result.Trades = e.match(order)

		if order.Quantity > 0 {
			if order.IsMarket() {
				order.setStatus(StatusCancelled)
				e.log.Debug().
					Str("order_id", order.ID).
					Int64("unfilled", order.Quantity).
					Msg("Market order remainder withdrawn")
			} else if err := e.book.Insert(order); err != nil {
				return nil, err
			}
		}
	}

	result.Status = order.Status
	result.FilledQuantity = order.FilledQuantity()
	result.RemainingQuantity = order.Quantity
	return result, nil
}

func (e *MatchingEngine) match(incoming *Order) []Trade {
	opposite := incoming.Side.Opposite()
	var trades []Trade

	for incoming.Quantity > 0 {
		resting, ok := e.book.PeekBest(opposite)
		if !ok {
			break
		}

		// the resting order always sets the price
		matchPrice := resting.Price
		if !incoming.IsMarket() && !acceptable(incoming, matchPrice) {
			break
		}

		executed := min(incoming.Quantity, resting.Quantity)
		incoming.fill(executed)
		resting.fill(executed)

		if resting.Status == StatusFilled {
			e.book.PopBest(opposite)
		}

		trade := e.newTrade(incoming, resting, matchPrice, executed)
		e.tape.record(trade)
		trades = append(trades, trade)

		e.log.Debug().
			Str("trade_id", trade.ID).
			Float64("price", trade.Price).
			Int64("quantity", trade.Quantity).
			Str("buyer", trade.BuyerID).
			Str("seller", trade.SellerID).
			Str("aggressor", string(trade.AggressorSide)).
			Msg("Trade executed")
	}

	return trades
}

func acceptable(incoming *Order, restingPrice float64) bool {
	if incoming.Side == SideBuy {
		return restingPrice <= incoming.Price
	}
	return restingPrice >= incoming.Price
}

func (e *MatchingEngine) newTrade(incoming, resting *Order, price float64, quantity int64) Trade {
	buy, sell := incoming, resting
	if incoming.Side == SideSell {
		buy, sell = resting, incoming
	}

	return Trade{
		ID:            e.ids.Next("trade"),
		Timestamp:     incoming.Timestamp,
		Price:         price,
		Quantity:      quantity,
		BuyerID:       buy.AgentID,
		SellerID:      sell.AgentID,
		BuyOrderID:    buy.ID,
		SellOrderID:   sell.ID,
		AggressorSide: incoming.Side,
	}
}

// CancelOrder marks a live order cancelled. The book entry is left in place
// and discarded once it reaches the front of its side.
func (e *MatchingEngine) CancelOrder(orderID string) bool {
	order, exists := e.orders[orderID]
	if !exists {
		e.log.Debug().Str("order_id", orderID).Msg("Cancel order: order not found")
		return false
	}

	if !order.setStatus(StatusCancelled) {
		e.log.Debug().
			Str("order_id", orderID).
			Str("status", string(order.Status)).
			Msg("Cancel order: order already terminal")
		return false
	}
	return true
}

// Snapshot purges stale entries from both sides and reads the top of book.
func (e *MatchingEngine) Snapshot() Snapshot {
	bid, hasBid := e.book.PeekBest(SideBuy)
	ask, hasAsk := e.book.PeekBest(SideSell)

	snap := Snapshot{
		BestBid: 0,
		BestAsk: math.Inf(1),
		HasBid:  hasBid,
		HasAsk:  hasAsk,
	}
	if hasBid {
		snap.BestBid = bid.Price
	}
	if hasAsk {
		snap.BestAsk = ask.Price
	}

	switch {
	case hasBid && hasAsk:
		snap.MidPrice = (snap.BestBid + snap.BestAsk) / 2
		snap.Spread = snap.BestAsk - snap.BestBid
		e.lastSpread = snap.Spread
	case hasBid:
		snap.MidPrice = snap.BestBid
		snap.Spread = e.lastSpread
	case hasAsk:
		snap.MidPrice = snap.BestAsk
		snap.Spread = e.lastSpread
	default:
		// edge case: empty book keeps the last known mid and spread
		snap.MidPrice = e.lastMid
		snap.Spread = e.lastSpread
	}

	e.lastMid = snap.MidPrice
	return snap
}

// Depth returns up to n live resting orders per side in priority order.
func (e *MatchingEngine) Depth(n int) (bids []Level, asks []Level) {
	return e.book.Depth(SideBuy, n), e.book.Depth(SideSell, n)
}

func (e *MatchingEngine) Order(orderID string) (*Order, bool) {
	order, exists := e.orders[orderID]
	return order, exists
}

func (e *MatchingEngine) OrderCount() int {
	return len(e.orders)
}

func (e *MatchingEngine) Tape() *Tape {
	return e.tape
}

// RestingOrders lists every entry of side in priority order, including stale
// ones still awaiting lazy cleanup.
func (e *MatchingEngine) RestingOrders(side OrderSide) []*Order {
	orders := make([]*Order, 0, e.book.Len(side))
	e.book.Each(side, func(o *Order) bool {
		orders = append(orders, o)
		return true
	})
	return orders
}

// CheckInvariants verifies the book is not crossed, no market order rests,
// and every registered order's remaining quantity is within bounds.
func (e *MatchingEngine) CheckInvariants() error {
	e.book.Clean()

	bid, hasBid := e.book.PeekBest(SideBuy)
	ask, hasAsk := e.book.PeekBest(SideSell)
	if hasBid && hasAsk && bid.Price > ask.Price {
		return fmt.Errorf("%w: best bid %.4f > best ask %.4f", ErrCrossedBook, bid.Price, ask.Price)
	}

	for _, side := range []OrderSide{SideBuy, SideSell} {
		var err error
		e.book.Each(side, func(o *Order) bool {
			if o.IsMarket() {
				err = fmt.Errorf("%w: %s", ErrMarketOrderResting, o.ID)
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
	}

	for id, o := range e.orders {
		if o.Quantity < 0 || o.Quantity > o.OriginalQuantity {
			return fmt.Errorf("%w: order %s remaining %d of %d", ErrQuantityInvariant, id, o.Quantity, o.OriginalQuantity)
		}
	}
	return nil
}

package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/btree"
)

var (
	ErrNilOrder               = errors.New("order is nil")
	ErrMarketOrderNotRestable = errors.New("market orders cannot rest in the book")
	ErrBookEntryCollision     = errors.New("book entry collided with a resting order")
)

// bookEntry is the priority handle stored in a side. The key fields are
// copied at insertion so the ordering never changes while the order's
// quantity and status are mutated by matching or cancellation.
type bookEntry struct {
	price     float64
	timestamp float64
	seq       uint64
	order     *Order
}

// bids: highest price first, then earliest timestamp, then insertion order
func bidLess(a, b *bookEntry) bool {
	if a.price != b.price {
		return a.price > b.price
	}
	if a.timestamp != b.timestamp {
		return a.timestamp < b.timestamp
	}
	return a.seq < b.seq
}

// asks: lowest price first, then earliest timestamp, then insertion order
func askLess(a, b *bookEntry) bool {
	if a.price != b.price {
		return a.price < b.price
	}
	if a.timestamp != b.timestamp {
		return a.timestamp < b.timestamp
	}
	return a.seq < b.seq
}

type Level struct {
	Price    float64
	Quantity int64
}

// OrderBook holds the resting limit orders of a single instrument. Filled and
// cancelled orders are removed lazily: they stay in their side until they
// reach the front and PeekBest discards them.
type OrderBook struct {
	bids *btree.BTreeG[*bookEntry] // sorted descending (highest first)
	asks *btree.BTreeG[*bookEntry] // sorted ascending (lowest first)
	seq  uint64
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids: btree.NewG(32, bidLess),
		asks: btree.NewG(32, askLess),
	}
}

func (ob *OrderBook) tree(side OrderSide) *btree.BTreeG[*bookEntry] {
	if side == SideBuy {
		return ob.bids
	}
	return ob.asks
}

// Insert rests a limit order on its own side.
func (ob *OrderBook) Insert(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}
	if order.IsMarket() {
		return ErrMarketOrderNotRestable
	}
	// edge case: NaN compares neither less nor greater, the tree would treat
	// it as equal to an existing entry and replace it
	if !finite(order.Price) || math.IsNaN(order.Timestamp) {
		return fmt.Errorf("%w: order %s price %v timestamp %v", ErrInvalidPrice, order.ID, order.Price, order.Timestamp)
	}

	ob.seq++
	entry := &bookEntry{
		price:     order.Price,
		timestamp: order.Timestamp,
		seq:       ob.seq,
		order:     order,
	}
	tree := ob.tree(order.Side)
	if replaced, ok := tree.ReplaceOrInsert(entry); ok {
		// put the evicted order back before reporting
		tree.ReplaceOrInsert(replaced)
		return fmt.Errorf("%w: %s displaced %s", ErrBookEntryCollision, order.ID, replaced.order.ID)
	}
	return nil
}

// PeekBest discards stale entries at the front of side and returns the first
// live order.
func (ob *OrderBook) PeekBest(side OrderSide) (*Order, bool) {
	tree := ob.tree(side)
	for {
		entry, ok := tree.Min()
		if !ok {
			return nil, false
		}
		if entry.order.Status.IsTerminal() {
			tree.DeleteMin()
			continue
		}
		return entry.order, true
	}
}

// PopBest removes the front entry of side, live or not.
func (ob *OrderBook) PopBest(side OrderSide) (*Order, bool) {
	entry, ok := ob.tree(side).DeleteMin()
	if !ok {
		return nil, false
	}
	return entry.order, true
}

// Clean purges stale entries from the front of both sides.
func (ob *OrderBook) Clean() {
	ob.PeekBest(SideBuy)
	ob.PeekBest(SideSell)
}

// Depth returns up to n live resting orders of side in priority order. Stale
// entries are skipped, not purged.
func (ob *OrderBook) Depth(side OrderSide, n int) []Level {
	levels := make([]Level, 0, max(n, 0))
	if n <= 0 {
		return levels
	}
	ob.tree(side).Ascend(func(entry *bookEntry) bool {
		if entry.order.Status.IsTerminal() {
			return true
		}
		levels = append(levels, Level{Price: entry.price, Quantity: entry.order.Quantity})
		return len(levels) < n
	})
	return levels
}

// Len is the structural size of side, stale entries included.
func (ob *OrderBook) Len(side OrderSide) int {
	return ob.tree(side).Len()
}

// Each visits every entry of side in priority order until fn returns false.
func (ob *OrderBook) Each(side OrderSide, fn func(*Order) bool) {
	ob.tree(side).Ascend(func(entry *bookEntry) bool {
		return fn(entry.order)
	})
}

package engine

import (
	"errors"
	"fmt"
)

type IntentType string

const (
	IntentPlaceLimit  IntentType = "PLACE_LIMIT"
	IntentPlaceMarket IntentType = "PLACE_MARKET"
	IntentCancel      IntentType = "CANCEL"
)

var ErrInvalidIntent = errors.New("invalid order intent")

// Intent is what an agent asks the engine to do. A CANCEL only carries
// OrderID; a placement without OrderID gets an engine-generated one.
type Intent struct {
	Type     IntentType
	Side     OrderSide
	Price    float64
	Quantity int64
	AgentID  string
	OrderID  string
}

// Submit applies intent at simulation time now. For a CANCEL the result only
// carries OrderID, the order's status and whether the cancel was accepted.
func (e *MatchingEngine) Submit(intent Intent, now float64) (*MatchResult, error) {
	var orderType OrderType
	switch intent.Type {
	case IntentCancel:
		ok := e.CancelOrder(intent.OrderID)
		result := &MatchResult{OrderID: intent.OrderID, Accepted: ok}
		if order, exists := e.orders[intent.OrderID]; exists {
			result.Status = order.Status
			result.FilledQuantity = order.FilledQuantity()
			result.RemainingQuantity = order.Quantity
		}
		return result, nil
	case IntentPlaceLimit:
		orderType = TypeLimit
	case IntentPlaceMarket:
		orderType = TypeMarket
	default:
		return nil, fmt.Errorf("%w: type %q", ErrInvalidIntent, intent.Type)
	}

	id := intent.OrderID
	if id == "" {
		id = e.ids.Next("order")
	}

	order, err := NewOrder(id, intent.AgentID, intent.Side, orderType, intent.Price, intent.Quantity, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIntent, err)
	}
	return e.AddOrder(order)
}

package event

import (
	"math/big"
)

// OrderPlaced is emitted when the contract accepts a resting order.
// The order id is contract-assigned, not derived from the log position.
type OrderPlaced struct {
	Meta
	OrderID string
	Trader  string
	IsBuy   bool
	Price   *big.Int // limit price, 18-decimal fixed point
	Amount  *big.Int // base amount, 18-decimal fixed point
}

func (e *OrderPlaced) EventType() EventType {
	return EventTypeOrderPlaced
}

// OrderRemoved is emitted when an order leaves the book, whether it was
// filled completely or cancelled. The log does not say which; the
// indexer decides from the order's remaining amount.
type OrderRemoved struct {
	Meta
	OrderID string
}

func (e *OrderRemoved) EventType() EventType {
	return EventTypeOrderRemoved
}

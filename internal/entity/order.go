package entity

import (
	"math/big"
)

// OrderStatus tracks where an order is in its lifecycle
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "OPEN"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order mirrors a resting order on the contract book. ID is the
// contract-assigned order id, not a log-derived key.
type Order struct {
	ID            string
	Trader        string
	IsBuy         bool
	Price         *big.Int // limit price, 18-decimal fixed point
	InitialAmount *big.Int // amount at placement, never mutated
	Amount        *big.Int // remaining unfilled amount
	Status        OrderStatus
	Timestamp     int64
}

// CanTransitionTo validates status transitions. FILLED and CANCELLED
// are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	validTransitions := map[OrderStatus][]OrderStatus{
		OrderStatusOpen: {
			OrderStatusFilled,
			OrderStatusCancelled,
		},
	}

	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}

	for _, allowedStatus := range allowed {
		if next == allowedStatus {
			return true
		}
	}

	return false
}

// IsTerminal reports whether the order can no longer change.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled
}

// OrderFill records that a trade's amount has been applied against an
// order. Its presence makes the decrement idempotent: a redelivered
// trade finds the record and leaves the order alone. ID is
// "{orderID}:{tradeID}".
type OrderFill struct {
	ID      string
	OrderID string
	TradeID string
	Amount  *big.Int
}

// OrderFillID builds the composite guard key for one (order, trade)
// pairing.
func OrderFillID(orderID, tradeID string) string {
	return orderID + ":" + tradeID
}

package event

import (
	"math/big"
)

// TradeExecuted is emitted once per match between two resting orders.
// Idempotency key: "{txHash}-{logIndex}".
type TradeExecuted struct {
	Meta
	Buyer       string
	Seller      string
	Price       *big.Int // 18-decimal fixed point
	Amount      *big.Int // base amount, 18-decimal fixed point
	BuyOrderID  string
	SellOrderID string
}

func (e *TradeExecuted) EventType() EventType {
	return EventTypeTradeExecuted
}

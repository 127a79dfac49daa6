package event

import (
	"math/big"
)

// Liquidated is emitted when a keeper forcibly closes part of an
// underwater position. Reward is the keeper's incentive payment.
type Liquidated struct {
	Meta
	Trader     string
	Liquidator string
	Amount     *big.Int // base amount closed, always positive
	Reward     *big.Int // keeper reward, 18-decimal fixed point
	Price      *big.Int // execution price, 18-decimal fixed point
}

func (e *Liquidated) EventType() EventType {
	return EventTypeLiquidated
}

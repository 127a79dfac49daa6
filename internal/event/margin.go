package event

import (
	"math/big"
)

// MarginDeposited is emitted when a trader tops up collateral.
type MarginDeposited struct {
	Meta
	Trader string
	Amount *big.Int // 18-decimal fixed point
}

func (e *MarginDeposited) EventType() EventType {
	return EventTypeMarginDeposited
}

// MarginWithdrawn is emitted when a trader pulls collateral out.
type MarginWithdrawn struct {
	Meta
	Trader string
	Amount *big.Int // 18-decimal fixed point
}

func (e *MarginWithdrawn) EventType() EventType {
	return EventTypeMarginWithdrawn
}

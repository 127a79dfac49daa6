package event

import (
	"math/big"
)

// FundingUpdated is emitted when the contract rolls the global
// cumulative funding rate forward. No trader context.
type FundingUpdated struct {
	Meta
	CumulativeFundingRate *big.Int // 18-decimal fixed point
}

func (e *FundingUpdated) EventType() EventType {
	return EventTypeFundingUpdated
}

// FundingPaid is emitted when funding settles against a single trader.
// Payment is signed: positive means the trader received funding.
type FundingPaid struct {
	Meta
	Trader string
	Amount *big.Int // signed, 18-decimal fixed point
}

func (e *FundingPaid) EventType() EventType {
	return EventTypeFundingPaid
}

package event

import (
	"math/big"
)

// PositionUpdated carries the contract's own post-change view of a
// trader's position. It is the authoritative source for size and entry
// price: handlers overwrite, never compute.
type PositionUpdated struct {
	Meta
	Trader     string
	Size       *big.Int // signed: positive long, negative short
	EntryPrice *big.Int // 18-decimal fixed point
}

func (e *PositionUpdated) EventType() EventType {
	return EventTypePositionUpdated
}

package entity

import (
	"math/big"
)

// Position is the current exposure of one trader. ID equals the trader
// address: one position per trader, no per-market dimension.
type Position struct {
	ID         string
	Trader     string
	Size       *big.Int // signed: positive long, negative short, zero flat
	EntryPrice *big.Int // 18-decimal fixed point
}

// IsFlat reports whether the position has no exposure.
func (p *Position) IsFlat() bool {
	return p.Size == nil || p.Size.Sign() == 0
}

// SideSign returns +1 for long, -1 for short, 0 for flat.
func (p *Position) SideSign() int {
	if p.Size == nil {
		return 0
	}
	return p.Size.Sign()
}

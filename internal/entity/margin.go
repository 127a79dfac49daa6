package entity

import (
	"math/big"
)

// MarginKind discriminates deposit vs withdrawal audit rows
type MarginKind string

const (
	MarginDeposit  MarginKind = "DEPOSIT"
	MarginWithdraw MarginKind = "WITHDRAW"
)

// MarginEvent is an append-only audit row for a collateral movement.
// ID is the emitting log's "{txHash}-{logIndex}".
type MarginEvent struct {
	ID        string
	Kind      MarginKind
	Trader    string
	Amount    *big.Int // 18-decimal fixed point, always positive
	Timestamp int64
	TxHash    string
}

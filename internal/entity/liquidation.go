package entity

import (
	"math/big"
)

// Liquidation is an append-only audit row for one forced close. ID is
// the emitting log's "{txHash}-{logIndex}". Fee is the keeper reward
// paid out of the closed position.
type Liquidation struct {
	ID         string
	Trader     string
	Liquidator string
	Amount     *big.Int // base amount closed, always positive
	Fee        *big.Int
	Price      *big.Int
	Timestamp  int64
	TxHash     string
}

package entity

import (
	"math/big"
)

// Trade is an append-only audit row for one executed match. ID is the
// emitting log's "{txHash}-{logIndex}".
type Trade struct {
	ID          string
	Buyer       string
	Seller      string
	Price       *big.Int // 18-decimal fixed point
	Amount      *big.Int // base amount, 18-decimal fixed point
	Timestamp   int64
	TxHash      string
	BuyOrderID  string
	SellOrderID string
}

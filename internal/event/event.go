package event

import (
	"fmt"
)

// EventType discriminator for chain log payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeMarginDeposited
	EventTypeMarginWithdrawn
	EventTypeOrderPlaced
	EventTypeOrderRemoved
	EventTypeTradeExecuted
	EventTypePositionUpdated
	EventTypeFundingUpdated
	EventTypeFundingPaid
	EventTypeLiquidated
)

// Meta carries the chain coordinates shared by every log: the emitting
// transaction, the log's index within it, and the block timestamp.
type Meta struct {
	TxHash         string
	LogIndex       uint32
	BlockTimestamp int64 // Unix seconds from the block header (NOT wall-clock)
}

// Ref returns the synthetic key "{txHash}-{logIndex}". It is unique per
// log and stable across redeliveries, which makes it the dedup key.
func (m Meta) Ref() string {
	return fmt.Sprintf("%s-%d", m.TxHash, m.LogIndex)
}

func (m Meta) IdempotencyKey() string {
	return m.Ref()
}

func (m Meta) Timestamp() int64 {
	return m.BlockTimestamp
}

func (m Meta) Transaction() string {
	return m.TxHash
}

// Event is the interface all chain log payloads must implement. The set
// of implementations is closed; the indexer dispatches over it with an
// explicit type switch and rejects anything else.
type Event interface {
	// IdempotencyKey returns the stable dedup key "{txHash}-{logIndex}"
	IdempotencyKey() string

	// EventType returns the discriminator
	EventType() EventType

	// Timestamp returns the block timestamp in Unix seconds
	Timestamp() int64

	// Transaction returns the emitting transaction hash
	Transaction() string
}

func (et EventType) String() string {
	switch et {
	case EventTypeMarginDeposited:
		return "MarginDeposited"
	case EventTypeMarginWithdrawn:
		return "MarginWithdrawn"
	case EventTypeOrderPlaced:
		return "OrderPlaced"
	case EventTypeOrderRemoved:
		return "OrderRemoved"
	case EventTypeTradeExecuted:
		return "TradeExecuted"
	case EventTypePositionUpdated:
		return "PositionUpdated"
	case EventTypeFundingUpdated:
		return "FundingUpdated"
	case EventTypeFundingPaid:
		return "FundingPaid"
	case EventTypeLiquidated:
		return "Liquidated"
	default:
		return "Unknown"
	}
}

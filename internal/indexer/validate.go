package indexer

import (
	"errors"
	"fmt"
	"math/big"

	"PerpScan/internal/event"
)

// ErrMalformed marks an event that can never apply cleanly, no matter
// how often it is redelivered. Callers should drop it instead of
// retrying.
var ErrMalformed = errors.New("malformed event")

// validate rejects structurally broken events before dispatch. The
// parser already enforces the wire shape; this is the last line of
// defense for events constructed in-process.
func validate(evt event.Event) error {
	if evt.Transaction() == "" {
		return fmt.Errorf("%w: empty tx hash", ErrMalformed)
	}

	switch e := evt.(type) {
	case *event.MarginDeposited:
		return requireFields(map[string]bool{
			"trader": e.Trader != "",
			"amount": nonNegative(e.Amount),
		})
	case *event.MarginWithdrawn:
		return requireFields(map[string]bool{
			"trader": e.Trader != "",
			"amount": nonNegative(e.Amount),
		})
	case *event.OrderPlaced:
		return requireFields(map[string]bool{
			"order_id": e.OrderID != "",
			"trader":   e.Trader != "",
			"price":    e.Price != nil,
			"amount":   e.Amount != nil,
		})
	case *event.OrderRemoved:
		return requireFields(map[string]bool{
			"order_id": e.OrderID != "",
		})
	case *event.TradeExecuted:
		return requireFields(map[string]bool{
			"buyer":         e.Buyer != "",
			"seller":        e.Seller != "",
			"price":         e.Price != nil,
			"amount":        positive(e.Amount),
			"buy_order_id":  e.BuyOrderID != "",
			"sell_order_id": e.SellOrderID != "",
		})
	case *event.PositionUpdated:
		return requireFields(map[string]bool{
			"trader":      e.Trader != "",
			"size":        e.Size != nil,
			"entry_price": e.EntryPrice != nil,
		})
	case *event.FundingUpdated:
		return requireFields(map[string]bool{
			"cumulative_funding_rate": e.CumulativeFundingRate != nil,
		})
	case *event.FundingPaid:
		return requireFields(map[string]bool{
			"trader": e.Trader != "",
			"amount": e.Amount != nil,
		})
	case *event.Liquidated:
		return requireFields(map[string]bool{
			"trader":     e.Trader != "",
			"liquidator": e.Liquidator != "",
			"amount":     positive(e.Amount),
			"reward":     e.Reward != nil,
			"price":      e.Price != nil,
		})
	default:
		return fmt.Errorf("%w: unknown event type %T", ErrMalformed, evt)
	}
}

func requireFields(fields map[string]bool) error {
	for name, ok := range fields {
		if !ok {
			return fmt.Errorf("%w: missing or invalid field %s", ErrMalformed, name)
		}
	}
	return nil
}

func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

// Margin amounts are unsigned on chain; a negative value here means a
// corrupt payload, not a withdrawal direction.
func nonNegative(v *big.Int) bool {
	return v != nil && v.Sign() >= 0
}

package ingestion

import (
	"encoding/json"
	"fmt"
	"math/big"

	"PerpScan/internal/event"
	"PerpScan/internal/fixed"
)

// rawEnvelope is the wire shape the chain scanner publishes: one
// envelope per contract log, params encoded per event type.
// Field names use snake_case to match the upstream producer.
type rawEnvelope struct {
	EventType      string          `json:"event_type"`
	TxHash         string          `json:"tx_hash"`
	LogIndex       uint32          `json:"log_index"`
	BlockTimestamp int64           `json:"block_timestamp"`
	Params         json.RawMessage `json:"params"`
}

// ParseRawEvent converts one raw message into a typed event.Event.
// A parse failure is a malformed event: the caller drops the message
// to the log instead of feeding it to the indexer.
func ParseRawEvent(data []byte) (event.Event, error) {
	var env rawEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	if env.TxHash == "" {
		return nil, fmt.Errorf("parse envelope: empty tx_hash")
	}
	if len(env.Params) == 0 {
		return nil, fmt.Errorf("parse envelope: empty params")
	}

	meta := event.Meta{
		TxHash:         env.TxHash,
		LogIndex:       env.LogIndex,
		BlockTimestamp: env.BlockTimestamp,
	}

	switch env.EventType {
	case "MarginDeposited":
		return parseMarginDeposited(meta, env.Params)
	case "MarginWithdrawn":
		return parseMarginWithdrawn(meta, env.Params)
	case "OrderPlaced":
		return parseOrderPlaced(meta, env.Params)
	case "OrderRemoved":
		return parseOrderRemoved(meta, env.Params)
	case "TradeExecuted":
		return parseTradeExecuted(meta, env.Params)
	case "PositionUpdated":
		return parsePositionUpdated(meta, env.Params)
	case "FundingUpdated":
		return parseFundingUpdated(meta, env.Params)
	case "FundingPaid":
		return parseFundingPaid(meta, env.Params)
	case "Liquidated":
		return parseLiquidated(meta, env.Params)
	default:
		return nil, fmt.Errorf("unknown event type: %s", env.EventType)
	}
}

// EventTypeOf peeks at the envelope's discriminator without a full
// parse, for metrics labels on messages that fail to decode.
func EventTypeOf(data []byte) string {
	var env struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(data, &env); err != nil || env.EventType == "" {
		return "unknown"
	}
	return env.EventType
}

// --- JSON wire formats ---
// Fixed-point values travel as base-10 integer strings; JSON numbers
// cannot carry 18-decimal amounts without loss.

type marginJSON struct {
	Trader string `json:"trader"`
	Amount string `json:"amount"`
}

func parseMarginDeposited(meta event.Meta, params []byte) (*event.MarginDeposited, error) {
	var j marginJSON
	if err := json.Unmarshal(params, &j); err != nil {
		return nil, fmt.Errorf("parse MarginDeposited: %w", err)
	}
	amount, err := parseAmount("amount", j.Amount)
	if err != nil {
		return nil, err
	}
	return &event.MarginDeposited{
		Meta:   meta,
		Trader: j.Trader,
		Amount: amount,
	}, nil
}

func parseMarginWithdrawn(meta event.Meta, params []byte) (*event.MarginWithdrawn, error) {
	var j marginJSON
	if err := json.Unmarshal(params, &j); err != nil {
		return nil, fmt.Errorf("parse MarginWithdrawn: %w", err)
	}
	amount, err := parseAmount("amount", j.Amount)
	if err != nil {
		return nil, err
	}
	return &event.MarginWithdrawn{
		Meta:   meta,
		Trader: j.Trader,
		Amount: amount,
	}, nil
}

type orderPlacedJSON struct {
	ID     string `json:"id"`
	Trader string `json:"trader"`
	IsBuy  bool   `json:"is_buy"`
	Price  string `json:"price"`
	Amount string `json:"amount"`
}

func parseOrderPlaced(meta event.Meta, params []byte) (*event.OrderPlaced, error) {
	var j orderPlacedJSON
	if err := json.Unmarshal(params, &j); err != nil {
		return nil, fmt.Errorf("parse OrderPlaced: %w", err)
	}
	price, err := parseAmount("price", j.Price)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", j.Amount)
	if err != nil {
		return nil, err
	}
	return &event.OrderPlaced{
		Meta:    meta,
		OrderID: j.ID,
		Trader:  j.Trader,
		IsBuy:   j.IsBuy,
		Price:   price,
		Amount:  amount,
	}, nil
}

type orderRemovedJSON struct {
	ID string `json:"id"`
}

func parseOrderRemoved(meta event.Meta, params []byte) (*event.OrderRemoved, error) {
	var j orderRemovedJSON
	if err := json.Unmarshal(params, &j); err != nil {
		return nil, fmt.Errorf("parse OrderRemoved: %w", err)
	}
	return &event.OrderRemoved{
		Meta:    meta,
		OrderID: j.ID,
	}, nil
}

type tradeExecutedJSON struct {
	Buyer       string `json:"buyer"`
	Seller      string `json:"seller"`
	Price       string `json:"price"`
	Amount      string `json:"amount"`
	BuyOrderID  string `json:"buy_order_id"`
	SellOrderID string `json:"sell_order_id"`
}

func parseTradeExecuted(meta event.Meta, params []byte) (*event.TradeExecuted, error) {
	var j tradeExecutedJSON
	if err := json.Unmarshal(params, &j); err != nil {
		return nil, fmt.Errorf("parse TradeExecuted: %w", err)
	}
	price, err := parseAmount("price", j.Price)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", j.Amount)
	if err != nil {
		return nil, err
	}
	return &event.TradeExecuted{
		Meta:        meta,
		Buyer:       j.Buyer,
		Seller:      j.Seller,
		Price:       price,
		Amount:      amount,
		BuyOrderID:  j.BuyOrderID,
		SellOrderID: j.SellOrderID,
	}, nil
}

type positionUpdatedJSON struct {
	Trader     string `json:"trader"`
	Size       string `json:"size"`
	EntryPrice string `json:"entry_price"`
}

func parsePositionUpdated(meta event.Meta, params []byte) (*event.PositionUpdated, error) {
	var j positionUpdatedJSON
	if err := json.Unmarshal(params, &j); err != nil {
		return nil, fmt.Errorf("parse PositionUpdated: %w", err)
	}
	size, err := parseAmount("size", j.Size)
	if err != nil {
		return nil, err
	}
	entryPrice, err := parseAmount("entry_price", j.EntryPrice)
	if err != nil {
		return nil, err
	}
	return &event.PositionUpdated{
		Meta:       meta,
		Trader:     j.Trader,
		Size:       size,
		EntryPrice: entryPrice,
	}, nil
}

type fundingUpdatedJSON struct {
	CumulativeFundingRate string `json:"cumulative_funding_rate"`
}

func parseFundingUpdated(meta event.Meta, params []byte) (*event.FundingUpdated, error) {
	var j fundingUpdatedJSON
	if err := json.Unmarshal(params, &j); err != nil {
		return nil, fmt.Errorf("parse FundingUpdated: %w", err)
	}
	rate, err := parseAmount("cumulative_funding_rate", j.CumulativeFundingRate)
	if err != nil {
		return nil, err
	}
	return &event.FundingUpdated{
		Meta:                  meta,
		CumulativeFundingRate: rate,
	}, nil
}

type fundingPaidJSON struct {
	Trader string `json:"trader"`
	Amount string `json:"amount"`
}

func parseFundingPaid(meta event.Meta, params []byte) (*event.FundingPaid, error) {
	var j fundingPaidJSON
	if err := json.Unmarshal(params, &j); err != nil {
		return nil, fmt.Errorf("parse FundingPaid: %w", err)
	}
	amount, err := parseAmount("amount", j.Amount)
	if err != nil {
		return nil, err
	}
	return &event.FundingPaid{
		Meta:   meta,
		Trader: j.Trader,
		Amount: amount,
	}, nil
}

type liquidatedJSON struct {
	Trader     string `json:"trader"`
	Liquidator string `json:"liquidator"`
	Amount     string `json:"amount"`
	Reward     string `json:"reward"`
	Price      string `json:"price"`
}

func parseLiquidated(meta event.Meta, params []byte) (*event.Liquidated, error) {
	var j liquidatedJSON
	if err := json.Unmarshal(params, &j); err != nil {
		return nil, fmt.Errorf("parse Liquidated: %w", err)
	}
	amount, err := parseAmount("amount", j.Amount)
	if err != nil {
		return nil, err
	}
	reward, err := parseAmount("reward", j.Reward)
	if err != nil {
		return nil, err
	}
	price, err := parseAmount("price", j.Price)
	if err != nil {
		return nil, err
	}
	return &event.Liquidated{
		Meta:       meta,
		Trader:     j.Trader,
		Liquidator: j.Liquidator,
		Amount:     amount,
		Reward:     reward,
		Price:      price,
	}, nil
}

func parseAmount(field, s string) (*big.Int, error) {
	v, err := fixed.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", field, err)
	}
	return v, nil
}

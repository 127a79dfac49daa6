package server

import (
	"PerpScan/internal/entity"
	"PerpScan/internal/fixed"
)

// Response DTOs. Fixed-point values render as base-10 integer strings;
// JSON numbers cannot carry 18-decimal amounts without loss.

type ErrorResponse struct {
	Message string `json:"message"`
}

type CandleResponse struct {
	ID          string `json:"id"`
	Resolution  string `json:"resolution"`
	BucketStart int64  `json:"bucket_start"`
	OpenPrice   string `json:"open_price"`
	HighPrice   string `json:"high_price"`
	LowPrice    string `json:"low_price"`
	ClosePrice  string `json:"close_price"`
	Volume      string `json:"volume"`
}

func toCandleResponse(c *entity.Candle) CandleResponse {
	return CandleResponse{
		ID:          c.ID,
		Resolution:  c.Resolution,
		BucketStart: c.BucketStart,
		OpenPrice:   fixed.String(c.OpenPrice),
		HighPrice:   fixed.String(c.HighPrice),
		LowPrice:    fixed.String(c.LowPrice),
		ClosePrice:  fixed.String(c.ClosePrice),
		Volume:      fixed.String(c.Volume),
	}
}

type LatestCandleResponse struct {
	ClosePrice string `json:"close_price"`
	Timestamp  int64  `json:"timestamp"`
}

type PositionResponse struct {
	Trader     string `json:"trader"`
	Size       string `json:"size"`
	EntryPrice string `json:"entry_price"`
}

func toPositionResponse(p *entity.Position) PositionResponse {
	return PositionResponse{
		Trader:     p.Trader,
		Size:       fixed.String(p.Size),
		EntryPrice: fixed.String(p.EntryPrice),
	}
}

type OrderResponse struct {
	ID            string `json:"id"`
	Trader        string `json:"trader"`
	IsBuy         bool   `json:"is_buy"`
	Price         string `json:"price"`
	InitialAmount string `json:"initial_amount"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	Timestamp     int64  `json:"timestamp"`
}

func toOrderResponse(o *entity.Order) OrderResponse {
	return OrderResponse{
		ID:            o.ID,
		Trader:        o.Trader,
		IsBuy:         o.IsBuy,
		Price:         fixed.String(o.Price),
		InitialAmount: fixed.String(o.InitialAmount),
		Amount:        fixed.String(o.Amount),
		Status:        string(o.Status),
		Timestamp:     o.Timestamp,
	}
}

type TradeResponse struct {
	ID          string `json:"id"`
	Buyer       string `json:"buyer"`
	Seller      string `json:"seller"`
	Price       string `json:"price"`
	Amount      string `json:"amount"`
	Timestamp   int64  `json:"timestamp"`
	TxHash      string `json:"tx_hash"`
	BuyOrderID  string `json:"buy_order_id"`
	SellOrderID string `json:"sell_order_id"`
}

func toTradeResponse(t *entity.Trade) TradeResponse {
	return TradeResponse{
		ID:          t.ID,
		Buyer:       t.Buyer,
		Seller:      t.Seller,
		Price:       fixed.String(t.Price),
		Amount:      fixed.String(t.Amount),
		Timestamp:   t.Timestamp,
		TxHash:      t.TxHash,
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
	}
}

type MarginEventResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Trader    string `json:"trader"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	TxHash    string `json:"tx_hash"`
}

func toMarginEventResponse(m *entity.MarginEvent) MarginEventResponse {
	return MarginEventResponse{
		ID:        m.ID,
		Kind:      string(m.Kind),
		Trader:    m.Trader,
		Amount:    fixed.String(m.Amount),
		Timestamp: m.Timestamp,
		TxHash:    m.TxHash,
	}
}

// FundingEventResponse renders the tagged variant: kind plus exactly
// the fields that variant carries.
type FundingEventResponse struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	Trader         string `json:"trader,omitempty"`
	CumulativeRate string `json:"cumulative_rate,omitempty"`
	Payment        string `json:"payment,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

func toFundingEventResponse(f *entity.FundingEvent) FundingEventResponse {
	resp := FundingEventResponse{
		ID:        f.ID,
		Kind:      string(f.Kind()),
		Timestamp: f.Timestamp,
	}
	switch d := f.Detail.(type) {
	case entity.GlobalFundingUpdate:
		resp.CumulativeRate = fixed.String(d.CumulativeRate)
	case entity.UserFundingPayment:
		resp.Trader = d.Trader
		resp.Payment = fixed.String(d.Payment)
	}
	return resp
}

type LiquidationResponse struct {
	ID         string `json:"id"`
	Trader     string `json:"trader"`
	Liquidator string `json:"liquidator"`
	Amount     string `json:"amount"`
	Fee        string `json:"fee"`
	Price      string `json:"price"`
	Timestamp  int64  `json:"timestamp"`
	TxHash     string `json:"tx_hash"`
}

func toLiquidationResponse(l *entity.Liquidation) LiquidationResponse {
	return LiquidationResponse{
		ID:         l.ID,
		Trader:     l.Trader,
		Liquidator: l.Liquidator,
		Amount:     fixed.String(l.Amount),
		Fee:        fixed.String(l.Fee),
		Price:      fixed.String(l.Price),
		Timestamp:  l.Timestamp,
		TxHash:     l.TxHash,
	}
}

type StatusResponse struct {
	TxHash         string `json:"tx_hash"`
	LogIndex       uint32 `json:"log_index"`
	BlockTimestamp int64  `json:"block_timestamp"`
	EventsApplied  int64  `json:"events_applied"`
	Synced         bool   `json:"synced"`
}

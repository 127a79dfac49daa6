package store

import (
	"context"
	"sort"
	"sync"

	"PerpScan/internal/entity"
	"PerpScan/internal/fixed"
)

// MemoryStore is the in-process EntityStore used by tests and by
// replay tooling. Entities are copied on the way in and out so callers
// never share big.Int pointers with stored state.
type MemoryStore struct {
	mu sync.RWMutex

	marginEvents  map[string]*entity.MarginEvent
	orders        map[string]*entity.Order
	trades        map[string]*entity.Trade
	candles       map[string]*entity.Candle
	latestCandle  *entity.LatestCandle
	positions     map[string]*entity.Position
	fundingEvents map[string]*entity.FundingEvent
	liquidations  map[string]*entity.Liquidation
	orderFills    map[string]*entity.OrderFill
	processed     map[string]int64
	checkpoint    *entity.Checkpoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		marginEvents:  make(map[string]*entity.MarginEvent),
		orders:        make(map[string]*entity.Order),
		trades:        make(map[string]*entity.Trade),
		candles:       make(map[string]*entity.Candle),
		positions:     make(map[string]*entity.Position),
		fundingEvents: make(map[string]*entity.FundingEvent),
		liquidations:  make(map[string]*entity.Liquidation),
		orderFills:    make(map[string]*entity.OrderFill),
		processed:     make(map[string]int64),
	}
}

func (s *MemoryStore) PutMarginEvent(_ context.Context, m *entity.MarginEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marginEvents[m.ID] = cloneMarginEvent(m)
	return nil
}

func (s *MemoryStore) GetMarginEvent(_ context.Context, id string) (*entity.MarginEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.marginEvents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneMarginEvent(m), nil
}

func (s *MemoryStore) PutOrder(_ context.Context, o *entity.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemoryStore) PutTrade(_ context.Context, t *entity.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades[t.ID] = cloneTrade(t)
	return nil
}

func (s *MemoryStore) GetTrade(_ context.Context, id string) (*entity.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trades[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTrade(t), nil
}

func (s *MemoryStore) PutCandle(_ context.Context, c *entity.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candles[c.ID] = cloneCandle(c)
	return nil
}

func (s *MemoryStore) GetCandle(_ context.Context, id string) (*entity.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCandle(c), nil
}

func (s *MemoryStore) ListCandles(_ context.Context, resolution string, limit int) ([]*entity.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.Candle
	for _, c := range s.candles {
		if c.Resolution == resolution {
			out = append(out, cloneCandle(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].BucketStart > out[j].BucketStart
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) PutLatestCandle(_ context.Context, lc *entity.LatestCandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestCandle = cloneLatestCandle(lc)
	return nil
}

func (s *MemoryStore) GetLatestCandle(_ context.Context) (*entity.LatestCandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latestCandle == nil {
		return nil, ErrNotFound
	}
	return cloneLatestCandle(s.latestCandle), nil
}

func (s *MemoryStore) PutPosition(_ context.Context, p *entity.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[p.ID] = clonePosition(p)
	return nil
}

func (s *MemoryStore) GetPosition(_ context.Context, id string) (*entity.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePosition(p), nil
}

func (s *MemoryStore) ListOpenPositions(_ context.Context) ([]*entity.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.Position
	for _, p := range s.positions {
		if !p.IsFlat() {
			out = append(out, clonePosition(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Trader < out[j].Trader
	})
	return out, nil
}

func (s *MemoryStore) PutFundingEvent(_ context.Context, f *entity.FundingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fundingEvents[f.ID] = cloneFundingEvent(f)
	return nil
}

func (s *MemoryStore) GetFundingEvent(_ context.Context, id string) (*entity.FundingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fundingEvents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneFundingEvent(f), nil
}

func (s *MemoryStore) PutLiquidation(_ context.Context, l *entity.Liquidation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liquidations[l.ID] = cloneLiquidation(l)
	return nil
}

func (s *MemoryStore) GetLiquidation(_ context.Context, id string) (*entity.Liquidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.liquidations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneLiquidation(l), nil
}

func (s *MemoryStore) PutOrderFill(_ context.Context, f *entity.OrderFill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderFills[f.ID] = &entity.OrderFill{
		ID:      f.ID,
		OrderID: f.OrderID,
		TradeID: f.TradeID,
		Amount:  fixed.Clone(f.Amount),
	}
	return nil
}

func (s *MemoryStore) HasOrderFill(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.orderFills[id]
	return ok, nil
}

func (s *MemoryStore) ListOrderFills(_ context.Context, orderID string) ([]*entity.OrderFill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.OrderFill
	for _, f := range s.orderFills {
		if f.OrderID == orderID {
			out = append(out, &entity.OrderFill{
				ID:      f.ID,
				OrderID: f.OrderID,
				TradeID: f.TradeID,
				Amount:  fixed.Clone(f.Amount),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) MarkProcessed(_ context.Context, key string, ts int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[key] = ts
	return nil
}

func (s *MemoryStore) HasProcessed(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.processed[key]
	return ok, nil
}

func (s *MemoryStore) PutCheckpoint(_ context.Context, cp *entity.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cp
	s.checkpoint = &c
	return nil
}

func (s *MemoryStore) GetCheckpoint(_ context.Context) (*entity.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.checkpoint == nil {
		return nil, ErrNotFound
	}
	c := *s.checkpoint
	return &c, nil
}

func cloneMarginEvent(m *entity.MarginEvent) *entity.MarginEvent {
	c := *m
	c.Amount = fixed.Clone(m.Amount)
	return &c
}

func cloneOrder(o *entity.Order) *entity.Order {
	c := *o
	c.Price = fixed.Clone(o.Price)
	c.InitialAmount = fixed.Clone(o.InitialAmount)
	c.Amount = fixed.Clone(o.Amount)
	return &c
}

func cloneTrade(t *entity.Trade) *entity.Trade {
	c := *t
	c.Price = fixed.Clone(t.Price)
	c.Amount = fixed.Clone(t.Amount)
	return &c
}

func cloneCandle(cd *entity.Candle) *entity.Candle {
	c := *cd
	c.OpenPrice = fixed.Clone(cd.OpenPrice)
	c.HighPrice = fixed.Clone(cd.HighPrice)
	c.LowPrice = fixed.Clone(cd.LowPrice)
	c.ClosePrice = fixed.Clone(cd.ClosePrice)
	c.Volume = fixed.Clone(cd.Volume)
	return &c
}

func cloneLatestCandle(lc *entity.LatestCandle) *entity.LatestCandle {
	c := *lc
	c.ClosePrice = fixed.Clone(lc.ClosePrice)
	return &c
}

func clonePosition(p *entity.Position) *entity.Position {
	c := *p
	c.Size = fixed.Clone(p.Size)
	c.EntryPrice = fixed.Clone(p.EntryPrice)
	return &c
}

func cloneFundingEvent(f *entity.FundingEvent) *entity.FundingEvent {
	c := *f
	switch d := f.Detail.(type) {
	case entity.GlobalFundingUpdate:
		c.Detail = entity.GlobalFundingUpdate{CumulativeRate: fixed.Clone(d.CumulativeRate)}
	case entity.UserFundingPayment:
		c.Detail = entity.UserFundingPayment{Trader: d.Trader, Payment: fixed.Clone(d.Payment)}
	}
	return &c
}

func cloneLiquidation(l *entity.Liquidation) *entity.Liquidation {
	c := *l
	c.Amount = fixed.Clone(l.Amount)
	c.Fee = fixed.Clone(l.Fee)
	c.Price = fixed.Clone(l.Price)
	return &c
}

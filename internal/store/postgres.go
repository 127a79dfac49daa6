package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	"PerpScan/internal/entity"
	"PerpScan/internal/fixed"
)

// PostgresStore is the durable EntityStore. NUMERIC(78,0) columns hold
// the 18-decimal fixed-point values; they travel as strings through
// database/sql so nothing ever rounds.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// DB exposes the underlying handle for migrations and health pings.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) PutMarginEvent(ctx context.Context, m *entity.MarginEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO perpscan.margin_events (id, kind, trader, amount, ts, tx_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			trader = EXCLUDED.trader,
			amount = EXCLUDED.amount,
			ts = EXCLUDED.ts,
			tx_hash = EXCLUDED.tx_hash
	`, m.ID, string(m.Kind), m.Trader, fixed.String(m.Amount), m.Timestamp, m.TxHash)
	if err != nil {
		return fmt.Errorf("upsert margin_event %s: %w", m.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetMarginEvent(ctx context.Context, id string) (*entity.MarginEvent, error) {
	var (
		m      entity.MarginEvent
		kind   string
		amount string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, trader, amount, ts, tx_hash
		FROM perpscan.margin_events WHERE id = $1
	`, id).Scan(&m.ID, &kind, &m.Trader, &amount, &m.Timestamp, &m.TxHash)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get margin_event %s: %w", id, err)
	}
	m.Kind = entity.MarginKind(kind)
	if m.Amount, err = scanBig(amount); err != nil {
		return nil, fmt.Errorf("margin_event %s amount: %w", id, err)
	}
	return &m, nil
}

func (s *PostgresStore) PutOrder(ctx context.Context, o *entity.Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO perpscan.orders (id, trader, is_buy, price, initial_amount, amount, status, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			trader = EXCLUDED.trader,
			is_buy = EXCLUDED.is_buy,
			price = EXCLUDED.price,
			initial_amount = EXCLUDED.initial_amount,
			amount = EXCLUDED.amount,
			status = EXCLUDED.status,
			ts = EXCLUDED.ts
	`, o.ID, o.Trader, o.IsBuy, fixed.String(o.Price), fixed.String(o.InitialAmount),
		fixed.String(o.Amount), string(o.Status), o.Timestamp)
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", o.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	var (
		o                      entity.Order
		status                 string
		price, initial, amount string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, trader, is_buy, price, initial_amount, amount, status, ts
		FROM perpscan.orders WHERE id = $1
	`, id).Scan(&o.ID, &o.Trader, &o.IsBuy, &price, &initial, &amount, &status, &o.Timestamp)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	o.Status = entity.OrderStatus(status)
	if o.Price, err = scanBig(price); err != nil {
		return nil, fmt.Errorf("order %s price: %w", id, err)
	}
	if o.InitialAmount, err = scanBig(initial); err != nil {
		return nil, fmt.Errorf("order %s initial_amount: %w", id, err)
	}
	if o.Amount, err = scanBig(amount); err != nil {
		return nil, fmt.Errorf("order %s amount: %w", id, err)
	}
	return &o, nil
}

func (s *PostgresStore) PutTrade(ctx context.Context, t *entity.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO perpscan.trades (id, buyer, seller, price, amount, ts, tx_hash, buy_order_id, sell_order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			buyer = EXCLUDED.buyer,
			seller = EXCLUDED.seller,
			price = EXCLUDED.price,
			amount = EXCLUDED.amount,
			ts = EXCLUDED.ts,
			tx_hash = EXCLUDED.tx_hash,
			buy_order_id = EXCLUDED.buy_order_id,
			sell_order_id = EXCLUDED.sell_order_id
	`, t.ID, t.Buyer, t.Seller, fixed.String(t.Price), fixed.String(t.Amount),
		t.Timestamp, t.TxHash, t.BuyOrderID, t.SellOrderID)
	if err != nil {
		return fmt.Errorf("upsert trade %s: %w", t.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetTrade(ctx context.Context, id string) (*entity.Trade, error) {
	var (
		t             entity.Trade
		price, amount string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, buyer, seller, price, amount, ts, tx_hash, buy_order_id, sell_order_id
		FROM perpscan.trades WHERE id = $1
	`, id).Scan(&t.ID, &t.Buyer, &t.Seller, &price, &amount, &t.Timestamp,
		&t.TxHash, &t.BuyOrderID, &t.SellOrderID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trade %s: %w", id, err)
	}
	if t.Price, err = scanBig(price); err != nil {
		return nil, fmt.Errorf("trade %s price: %w", id, err)
	}
	if t.Amount, err = scanBig(amount); err != nil {
		return nil, fmt.Errorf("trade %s amount: %w", id, err)
	}
	return &t, nil
}

func (s *PostgresStore) PutCandle(ctx context.Context, c *entity.Candle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO perpscan.candles (id, resolution, bucket_start, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume
	`, c.ID, c.Resolution, c.BucketStart, fixed.String(c.OpenPrice), fixed.String(c.HighPrice),
		fixed.String(c.LowPrice), fixed.String(c.ClosePrice), fixed.String(c.Volume))
	if err != nil {
		return fmt.Errorf("upsert candle %s: %w", c.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetCandle(ctx context.Context, id string) (*entity.Candle, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, resolution, bucket_start, open_price, high_price, low_price, close_price, volume
		FROM perpscan.candles WHERE id = $1
	`, id)
	c, err := scanCandle(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get candle %s: %w", id, err)
	}
	return c, nil
}

func (s *PostgresStore) ListCandles(ctx context.Context, resolution string, limit int) ([]*entity.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, resolution, bucket_start, open_price, high_price, low_price, close_price, volume
		FROM perpscan.candles
		WHERE resolution = $1
		ORDER BY bucket_start DESC
		LIMIT $2
	`, resolution, limit)
	if err != nil {
		return nil, fmt.Errorf("list candles: %w", err)
	}
	defer rows.Close()

	var out []*entity.Candle
	for rows.Next() {
		c, err := scanCandle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PutLatestCandle(ctx context.Context, lc *entity.LatestCandle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO perpscan.latest_candle (id, close_price, ts)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			close_price = EXCLUDED.close_price,
			ts = EXCLUDED.ts
	`, lc.ID, fixed.String(lc.ClosePrice), lc.Timestamp)
	if err != nil {
		return fmt.Errorf("upsert latest_candle: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLatestCandle(ctx context.Context) (*entity.LatestCandle, error) {
	var (
		lc     entity.LatestCandle
		closeP string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, close_price, ts FROM perpscan.latest_candle WHERE id = $1
	`, entity.LatestCandleID).Scan(&lc.ID, &closeP, &lc.Timestamp)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest_candle: %w", err)
	}
	if lc.ClosePrice, err = scanBig(closeP); err != nil {
		return nil, fmt.Errorf("latest_candle close_price: %w", err)
	}
	return &lc, nil
}

func (s *PostgresStore) PutPosition(ctx context.Context, p *entity.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO perpscan.positions (id, trader, size, entry_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			trader = EXCLUDED.trader,
			size = EXCLUDED.size,
			entry_price = EXCLUDED.entry_price
	`, p.ID, p.Trader, fixed.String(p.Size), fixed.String(p.EntryPrice))
	if err != nil {
		return fmt.Errorf("upsert position %s: %w", p.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetPosition(ctx context.Context, id string) (*entity.Position, error) {
	var (
		p           entity.Position
		size, entry string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, trader, size, entry_price FROM perpscan.positions WHERE id = $1
	`, id).Scan(&p.ID, &p.Trader, &size, &entry)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s: %w", id, err)
	}
	if p.Size, err = scanBig(size); err != nil {
		return nil, fmt.Errorf("position %s size: %w", id, err)
	}
	if p.EntryPrice, err = scanBig(entry); err != nil {
		return nil, fmt.Errorf("position %s entry_price: %w", id, err)
	}
	return &p, nil
}

func (s *PostgresStore) ListOpenPositions(ctx context.Context) ([]*entity.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trader, size, entry_price
		FROM perpscan.positions
		WHERE size <> 0
		ORDER BY trader
	`)
	if err != nil {
		return nil, fmt.Errorf("list open positions: %w", err)
	}
	defer rows.Close()

	var out []*entity.Position
	for rows.Next() {
		var (
			p           entity.Position
			size, entry string
		)
		if err := rows.Scan(&p.ID, &p.Trader, &size, &entry); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		if p.Size, err = scanBig(size); err != nil {
			return nil, fmt.Errorf("position %s size: %w", p.ID, err)
		}
		if p.EntryPrice, err = scanBig(entry); err != nil {
			return nil, fmt.Errorf("position %s entry_price: %w", p.ID, err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PutFundingEvent(ctx context.Context, f *entity.FundingEvent) error {
	var (
		trader, rate, payment sql.NullString
	)
	switch d := f.Detail.(type) {
	case entity.GlobalFundingUpdate:
		rate = sql.NullString{String: fixed.String(d.CumulativeRate), Valid: true}
	case entity.UserFundingPayment:
		trader = sql.NullString{String: d.Trader, Valid: true}
		payment = sql.NullString{String: fixed.String(d.Payment), Valid: true}
	default:
		return fmt.Errorf("funding_event %s: unknown detail %T", f.ID, f.Detail)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO perpscan.funding_events (id, kind, trader, cumulative_rate, payment, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			trader = EXCLUDED.trader,
			cumulative_rate = EXCLUDED.cumulative_rate,
			payment = EXCLUDED.payment,
			ts = EXCLUDED.ts
	`, f.ID, string(f.Kind()), trader, rate, payment, f.Timestamp)
	if err != nil {
		return fmt.Errorf("upsert funding_event %s: %w", f.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetFundingEvent(ctx context.Context, id string) (*entity.FundingEvent, error) {
	var (
		f                     entity.FundingEvent
		kind                  string
		trader, rate, payment sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, trader, cumulative_rate, payment, ts
		FROM perpscan.funding_events WHERE id = $1
	`, id).Scan(&f.ID, &kind, &trader, &rate, &payment, &f.Timestamp)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get funding_event %s: %w", id, err)
	}

	switch entity.FundingKind(kind) {
	case entity.FundingGlobalUpdate:
		r, err := scanBig(rate.String)
		if err != nil {
			return nil, fmt.Errorf("funding_event %s cumulative_rate: %w", id, err)
		}
		f.Detail = entity.GlobalFundingUpdate{CumulativeRate: r}
	case entity.FundingUserPaid:
		p, err := scanBig(payment.String)
		if err != nil {
			return nil, fmt.Errorf("funding_event %s payment: %w", id, err)
		}
		f.Detail = entity.UserFundingPayment{Trader: trader.String, Payment: p}
	default:
		return nil, fmt.Errorf("funding_event %s: unknown kind %q", id, kind)
	}
	return &f, nil
}

func (s *PostgresStore) PutLiquidation(ctx context.Context, l *entity.Liquidation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO perpscan.liquidations (id, trader, liquidator, amount, fee, price, ts, tx_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			trader = EXCLUDED.trader,
			liquidator = EXCLUDED.liquidator,
			amount = EXCLUDED.amount,
			fee = EXCLUDED.fee,
			price = EXCLUDED.price,
			ts = EXCLUDED.ts,
			tx_hash = EXCLUDED.tx_hash
	`, l.ID, l.Trader, l.Liquidator, fixed.String(l.Amount), fixed.String(l.Fee),
		fixed.String(l.Price), l.Timestamp, l.TxHash)
	if err != nil {
		return fmt.Errorf("upsert liquidation %s: %w", l.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetLiquidation(ctx context.Context, id string) (*entity.Liquidation, error) {
	var (
		l                  entity.Liquidation
		amount, fee, price string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, trader, liquidator, amount, fee, price, ts, tx_hash
		FROM perpscan.liquidations WHERE id = $1
	`, id).Scan(&l.ID, &l.Trader, &l.Liquidator, &amount, &fee, &price, &l.Timestamp, &l.TxHash)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get liquidation %s: %w", id, err)
	}
	if l.Amount, err = scanBig(amount); err != nil {
		return nil, fmt.Errorf("liquidation %s amount: %w", id, err)
	}
	if l.Fee, err = scanBig(fee); err != nil {
		return nil, fmt.Errorf("liquidation %s fee: %w", id, err)
	}
	if l.Price, err = scanBig(price); err != nil {
		return nil, fmt.Errorf("liquidation %s price: %w", id, err)
	}
	return &l, nil
}

func (s *PostgresStore) PutOrderFill(ctx context.Context, f *entity.OrderFill) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO perpscan.order_fills (id, order_id, trade_id, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, f.ID, f.OrderID, f.TradeID, fixed.String(f.Amount))
	if err != nil {
		return fmt.Errorf("insert order_fill %s: %w", f.ID, err)
	}
	return nil
}

func (s *PostgresStore) HasOrderFill(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM perpscan.order_fills WHERE id = $1`, id,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check order_fill %s: %w", id, err)
	}
	return true, nil
}

func (s *PostgresStore) ListOrderFills(ctx context.Context, orderID string) ([]*entity.OrderFill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, trade_id, amount
		FROM perpscan.order_fills
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order_fills %s: %w", orderID, err)
	}
	defer rows.Close()

	var out []*entity.OrderFill
	for rows.Next() {
		var (
			f      entity.OrderFill
			amount string
		)
		if err := rows.Scan(&f.ID, &f.OrderID, &f.TradeID, &amount); err != nil {
			return nil, fmt.Errorf("scan order_fill: %w", err)
		}
		if f.Amount, err = scanBig(amount); err != nil {
			return nil, fmt.Errorf("order_fill %s amount: %w", f.ID, err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, key string, ts int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO perpscan.processed_events (key, ts)
		VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, key, ts)
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) HasProcessed(ctx context.Context, key string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM perpscan.processed_events WHERE key = $1`, key,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check processed %s: %w", key, err)
	}
	return true, nil
}

func (s *PostgresStore) PutCheckpoint(ctx context.Context, cp *entity.Checkpoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO perpscan.checkpoint (id, tx_hash, log_index, block_ts, events_applied)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			tx_hash = EXCLUDED.tx_hash,
			log_index = EXCLUDED.log_index,
			block_ts = EXCLUDED.block_ts,
			events_applied = EXCLUDED.events_applied
	`, cp.TxHash, cp.LogIndex, cp.BlockTimestamp, cp.EventsApplied)
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCheckpoint(ctx context.Context) (*entity.Checkpoint, error) {
	var (
		cp       entity.Checkpoint
		logIndex int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT tx_hash, log_index, block_ts, events_applied
		FROM perpscan.checkpoint WHERE id = 1
	`).Scan(&cp.TxHash, &logIndex, &cp.BlockTimestamp, &cp.EventsApplied)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	cp.LogIndex = uint32(logIndex)
	return &cp, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandle(row rowScanner) (*entity.Candle, error) {
	var c entity.Candle
	var open, high, low, closeP, volume string
	if err := row.Scan(&c.ID, &c.Resolution, &c.BucketStart, &open, &high, &low, &closeP, &volume); err != nil {
		return nil, err
	}
	var err error
	if c.OpenPrice, err = scanBig(open); err != nil {
		return nil, err
	}
	if c.HighPrice, err = scanBig(high); err != nil {
		return nil, err
	}
	if c.LowPrice, err = scanBig(low); err != nil {
		return nil, err
	}
	if c.ClosePrice, err = scanBig(closeP); err != nil {
		return nil, err
	}
	if c.Volume, err = scanBig(volume); err != nil {
		return nil, err
	}
	return &c, nil
}

// scanBig converts a NUMERIC column's text form back to big.Int.
func scanBig(s string) (*big.Int, error) {
	return fixed.Parse(s)
}

package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"edge-tradesim/internal/apperr"
	"edge-tradesim/internal/clock"
	"edge-tradesim/internal/db"
	"edge-tradesim/internal/model"
	"edge-tradesim/internal/money"
	"edge-tradesim/internal/types"

	"github.com/shopspring/decimal"
)

// Store reads and writes trade orders. It is stateless; callers pass the
// transaction or database handle to use.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

type querier interface {
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

const orderColumns = `id, account_id, pair, side, amount, stop_loss, take_profit, duration_minutes, seq, placed_at, settle_at, status, result, payout, closed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (model.TradeOrder, error) {
	var (
		o                      model.TradeOrder
		side, status, result   string
		amount, placed, settle int64
		stopLoss, takeProfit   sql.NullString
		payout, closed         sql.NullInt64
	)
	err := row.Scan(&o.ID, &o.AccountID, &o.Pair, &side, &amount, &stopLoss, &takeProfit,
		&o.DurationMinutes, &o.Seq, &placed, &settle, &status, &result, &payout, &closed)
	if err != nil {
		return o, err
	}
	o.Side = types.TradeSide(side)
	o.Status = types.TradeStatus(status)
	o.Result = types.TradeResult(result)
	o.Amount = money.FromCents(amount)
	o.PlacedAt = clock.FromMillis(placed)
	o.SettleAt = clock.FromMillis(settle)
	if o.StopLoss, err = parsePrice(stopLoss); err != nil {
		return o, err
	}
	if o.TakeProfit, err = parsePrice(takeProfit); err != nil {
		return o, err
	}
	if payout.Valid {
		p := money.FromCents(payout.Int64)
		o.Payout = &p
	}
	if closed.Valid {
		c := clock.FromMillis(closed.Int64)
		o.ClosedAt = &c
	}
	return o, nil
}

func parsePrice(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, fmt.Errorf("stored price %q: %w", v.String, err)
	}
	return &d, nil
}

func priceString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func (s *Store) CreateOrder(ctx context.Context, tx *db.Tx, o model.TradeOrder) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO trades (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL)`,
		o.ID, o.AccountID, o.Pair, string(o.Side), o.Amount.Cents(),
		db.NullString(priceString(o.StopLoss)), db.NullString(priceString(o.TakeProfit)),
		o.DurationMinutes, o.Seq, clock.Millis(o.PlacedAt), clock.Millis(o.SettleAt),
		string(o.Status), string(o.Result))
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, q querier, orderID string) (model.TradeOrder, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM trades WHERE id = ?`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return o, fmt.Errorf("trade %s: %w", orderID, apperr.ErrNotFound)
	}
	return o, err
}

// ListByAccount returns an account's orders newest first. An empty side
// lists both sides.
func (s *Store) ListByAccount(ctx context.Context, q querier, accountID string, side types.TradeSide) ([]model.TradeOrder, error) {
	if side == "" {
		return s.list(ctx, q, `SELECT `+orderColumns+` FROM trades WHERE account_id = ? ORDER BY placed_at DESC, seq DESC`, accountID)
	}
	return s.list(ctx, q, `SELECT `+orderColumns+` FROM trades WHERE account_id = ? AND side = ? ORDER BY placed_at DESC, seq DESC`, accountID, string(side))
}

// Due identifies an open order whose settlement time has passed.
type Due struct {
	ID        string
	AccountID string
}

// ListDue returns due open orders, oldest deadline first. Only ids are
// read here so one unreadable row cannot hold up the rest; the full order
// is loaded per settlement.
func (s *Store) ListDue(ctx context.Context, q querier, nowMs int64) ([]Due, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, account_id FROM trades WHERE status = ? AND settle_at <= ? ORDER BY settle_at, id`,
		string(types.TradeStatusOpen), nowMs)
	if err != nil {
		return nil, fmt.Errorf("list due trades: %w", err)
	}
	defer rows.Close()
	out := []Due{}
	for rows.Next() {
		var d Due
		if err := rows.Scan(&d.ID, &d.AccountID); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) list(ctx context.Context, q querier, query string, args ...any) ([]model.TradeOrder, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()
	out := []model.TradeOrder{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CloseOrder flips an open order to closed. It reports false when the
// order was not open, so a settlement can only ever happen once.
func (s *Store) CloseOrder(ctx context.Context, tx *db.Tx, orderID string, payout money.Money, closedMs int64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE trades SET status = ?, payout = ?, closed_at = ? WHERE id = ? AND status = ?`,
		string(types.TradeStatusClosed), payout.Cents(), closedMs, orderID, string(types.TradeStatusOpen))
	if err != nil {
		return false, fmt.Errorf("close trade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

package requests

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
)

type querier interface {
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	depositColumns    = `id, account_id, asset, amount, address, created_at, expires_at, status, decided_at`
	withdrawalColumns = `id, account_id, asset, destination, amount, created_at, status, decided_at`
)

func scanDeposit(row rowScanner) (model.DepositRequest, error) {
	var (
		d                        model.DepositRequest
		amount, created, expires int64
		status                   string
		decided                  sql.NullInt64
	)
	if err := row.Scan(&d.ID, &d.AccountID, &d.Asset, &amount, &d.Address, &created, &expires, &status, &decided); err != nil {
		return d, err
	}
	d.Amount = money.FromCents(amount)
	d.CreatedAt = clock.FromMillis(created)
	d.ExpiresAt = clock.FromMillis(expires)
	d.Status = types.RequestStatus(status)
	if decided.Valid {
		at := clock.FromMillis(decided.Int64)
		d.DecidedAt = &at
	}
	return d, nil
}

func scanWithdrawal(row rowScanner) (model.WithdrawalRequest, error) {
	var (
		wr              model.WithdrawalRequest
		amount, created int64
		status          string
		decided         sql.NullInt64
	)
	if err := row.Scan(&wr.ID, &wr.AccountID, &wr.Asset, &wr.Destination, &amount, &created, &status, &decided); err != nil {
		return wr, err
	}
	wr.Amount = money.FromCents(amount)
	wr.CreatedAt = clock.FromMillis(created)
	wr.Status = types.RequestStatus(status)
	if decided.Valid {
		at := clock.FromMillis(decided.Int64)
		wr.DecidedAt = &at
	}
	return wr, nil
}

func insertDeposit(ctx context.Context, tx *db.Tx, d model.DepositRequest) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO deposit_requests (`+depositColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		d.ID, d.AccountID, d.Asset, d.Amount.Cents(), d.Address,
		clock.Millis(d.CreatedAt), clock.Millis(d.ExpiresAt), string(d.Status))
	if err != nil {
		return fmt.Errorf("insert deposit request: %w", err)
	}
	return nil
}

func insertWithdrawal(ctx context.Context, tx *db.Tx, wr model.WithdrawalRequest) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO withdrawal_requests (`+withdrawalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		wr.ID, wr.AccountID, wr.Asset, wr.Destination, wr.Amount.Cents(),
		clock.Millis(wr.CreatedAt), string(wr.Status))
	if err != nil {
		return fmt.Errorf("insert withdrawal request: %w", err)
	}
	return nil
}

func getDeposit(ctx context.Context, q querier, requestID string) (model.DepositRequest, error) {
	d, err := scanDeposit(q.QueryRowContext(ctx, `SELECT `+depositColumns+` FROM deposit_requests WHERE id = ?`, requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return d, fmt.Errorf("deposit request %s: %w", requestID, apperr.ErrNotFound)
	}
	return d, err
}

func getWithdrawal(ctx context.Context, q querier, requestID string) (model.WithdrawalRequest, error) {
	wr, err := scanWithdrawal(q.QueryRowContext(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = ?`, requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return wr, fmt.Errorf("withdrawal request %s: %w", requestID, apperr.ErrNotFound)
	}
	return wr, err
}

// decide moves a pending request to status. Anything not pending is
// ErrInvalidState, which keeps each transition single-shot.
func decide(ctx context.Context, tx *db.Tx, table, requestID string, status types.RequestStatus, atMs int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE `+table+` SET status = ?, decided_at = ? WHERE id = ? AND status = ?`,
		string(status), atMs, requestID, string(types.RequestStatusPending))
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("request %s is not pending: %w", requestID, apperr.ErrInvalidState)
	}
	return nil
}

func listDeposits(ctx context.Context, q querier, query string, args ...any) ([]model.DepositRequest, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deposit requests: %w", err)
	}
	defer rows.Close()
	out := []model.DepositRequest{}
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func listWithdrawals(ctx context.Context, q querier, query string, args ...any) ([]model.WithdrawalRequest, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list withdrawal requests: %w", err)
	}
	defer rows.Close()
	out := []model.WithdrawalRequest{}
	for rows.Next() {
		wr, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wr)
	}
	return out, rows.Err()
}

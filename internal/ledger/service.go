// Package ledger owns the per-account balance buckets and the trade
// counter. Every mutation keeps total == deposit + trading and leaves no
// bucket negative; mutations on one account are serialized by a keyed lock
// held around a single transaction.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"edge-tradesim/internal/apperr"
	"edge-tradesim/internal/clock"
	"edge-tradesim/internal/db"
	"edge-tradesim/internal/events"
	"edge-tradesim/internal/locks"
	"edge-tradesim/internal/model"
	"edge-tradesim/internal/money"
	"edge-tradesim/internal/types"
)

type Options struct {
	DemoDeposit money.Money
	DemoTrading money.Money
}

type Service struct {
	db    *db.DB
	locks *locks.Keyed
	clock clock.Clock
	bus   *events.Bus
	opts  Options
}

func NewService(store *db.DB, keyed *locks.Keyed, clk clock.Clock, bus *events.Bus, opts Options) *Service {
	return &Service{db: store, locks: keyed, clock: clk, bus: bus, opts: opts}
}

func (s *Service) Clock() clock.Clock { return s.clock }

func (s *Service) DB() *db.DB { return s.db }

// WithAccount holds accountID's lock for the length of one transaction.
// Every component that mutates account state goes through here.
func (s *Service) WithAccount(ctx context.Context, accountID string, fn func(tx *db.Tx) error) error {
	unlock := s.locks.Lock(accountID)
	defer unlock()
	return s.db.WithTx(ctx, fn)
}

// PublishBalance announces a committed balance.
func (s *Service) PublishBalance(b model.Balance) {
	s.bus.Publish(events.Event{Type: events.TypeBalance, AccountID: b.AccountID, Data: b})
}

const balanceColumns = `account_id, deposit, trading, locked, total, trade_count, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (model.Balance, error) {
	var (
		b                               model.Balance
		deposit, trading, locked, total int64
		updated                         int64
	)
	if err := row.Scan(&b.AccountID, &deposit, &trading, &locked, &total, &b.TradeCount, &updated); err != nil {
		return model.Balance{}, err
	}
	b.Deposit = money.FromCents(deposit)
	b.Trading = money.FromCents(trading)
	b.Locked = money.FromCents(locked)
	b.Total = money.FromCents(total)
	b.UpdatedAt = clock.FromMillis(updated)
	return b, nil
}

// LoadTx reads the balance inside tx. Unknown accounts are ErrNotFound.
func (s *Service) LoadTx(ctx context.Context, tx *db.Tx, accountID string) (model.Balance, error) {
	b, err := scanBalance(tx.QueryRowContext(ctx, `SELECT `+balanceColumns+` FROM balances WHERE account_id = ?`, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Balance{}, fmt.Errorf("account %s: %w", accountID, apperr.ErrNotFound)
	}
	if err != nil {
		return model.Balance{}, fmt.Errorf("load balance: %w", err)
	}
	return b, nil
}

// saveTx validates the buckets and writes them back. The counter is
// written separately by NextTradeCountTx.
func (s *Service) saveTx(ctx context.Context, tx *db.Tx, b model.Balance) (model.Balance, error) {
	if b.Deposit.IsNegative() || b.Trading.IsNegative() {
		return model.Balance{}, apperr.ErrInsufficientFunds
	}
	if b.Locked.IsNegative() {
		return model.Balance{}, apperr.ErrInvalidState
	}
	b.Total = b.Deposit + b.Trading
	b.UpdatedAt = s.clock.Now()
	_, err := tx.ExecContext(ctx,
		`UPDATE balances SET deposit = ?, trading = ?, locked = ?, total = ?, updated_at = ? WHERE account_id = ?`,
		b.Deposit.Cents(), b.Trading.Cents(), b.Locked.Cents(), b.Total.Cents(), clock.Millis(b.UpdatedAt), b.AccountID)
	if err != nil {
		return model.Balance{}, fmt.Errorf("save balance: %w", err)
	}
	return b, nil
}

// GetBalance returns the current buckets, or all zeros for an account that
// has no record yet.
func (s *Service) GetBalance(ctx context.Context, accountID string) (model.Balance, error) {
	b, err := scanBalance(s.db.QueryRowContext(ctx, `SELECT `+balanceColumns+` FROM balances WHERE account_id = ?`, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Balance{AccountID: accountID}, nil
	}
	if err != nil {
		return model.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]model.Balance, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+balanceColumns+` FROM balances ORDER BY created_at, account_id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	out := []model.Balance{}
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// OpenAccount creates the balance record and a zeroed trade counter.
func (s *Service) OpenAccount(ctx context.Context, accountID string, deposit, trading money.Money) (model.Balance, error) {
	if accountID == "" {
		return model.Balance{}, fmt.Errorf("%w: account id required", apperr.ErrInvalidInput)
	}
	if deposit.IsNegative() || trading.IsNegative() {
		return model.Balance{}, apperr.ErrInvalidAmount
	}
	var out model.Balance
	err := s.WithAccount(ctx, accountID, func(tx *db.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM balances WHERE account_id = ?`, accountID).Scan(&exists)
		if err == nil {
			return fmt.Errorf("account %s already open: %w", accountID, apperr.ErrInvalidState)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		now := s.clock.Now()
		out = model.Balance{
			AccountID: accountID,
			Deposit:   deposit,
			Trading:   trading,
			Total:     deposit + trading,
			UpdatedAt: now,
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO balances (account_id, deposit, trading, locked, total, trade_count, created_at, updated_at) VALUES (?, ?, ?, 0, ?, 0, ?, ?)`,
			accountID, deposit.Cents(), trading.Cents(), out.Total.Cents(), clock.Millis(now), clock.Millis(now))
		return err
	})
	if err != nil {
		return model.Balance{}, err
	}
	s.PublishBalance(out)
	return out, nil
}

// OpenDemo seeds an account with the configured demo balances.
func (s *Service) OpenDemo(ctx context.Context, accountID string) (model.Balance, error) {
	return s.OpenAccount(ctx, accountID, s.opts.DemoDeposit, s.opts.DemoTrading)
}

// ApplyDeltaTx adds the deltas to deposit and trading inside tx.
func (s *Service) ApplyDeltaTx(ctx context.Context, tx *db.Tx, accountID string, depositDelta, tradingDelta money.Money) (model.Balance, error) {
	b, err := s.LoadTx(ctx, tx, accountID)
	if err != nil {
		return model.Balance{}, err
	}
	b.Deposit += depositDelta
	b.Trading += tradingDelta
	return s.saveTx(ctx, tx, b)
}

func (s *Service) ApplyDelta(ctx context.Context, accountID string, depositDelta, tradingDelta money.Money) (model.Balance, error) {
	return s.mutate(ctx, accountID, func(tx *db.Tx) (model.Balance, error) {
		return s.ApplyDeltaTx(ctx, tx, accountID, depositDelta, tradingDelta)
	})
}

// LockTx moves amount from deposit into locked.
func (s *Service) LockTx(ctx context.Context, tx *db.Tx, accountID string, amount money.Money) (model.Balance, error) {
	if amount <= 0 {
		return model.Balance{}, apperr.ErrInvalidAmount
	}
	b, err := s.LoadTx(ctx, tx, accountID)
	if err != nil {
		return model.Balance{}, err
	}
	if b.Deposit < amount {
		return model.Balance{}, apperr.ErrInsufficientFunds
	}
	b.Deposit -= amount
	b.Locked += amount
	return s.saveTx(ctx, tx, b)
}

func (s *Service) Lock(ctx context.Context, accountID string, amount money.Money) (model.Balance, error) {
	return s.mutate(ctx, accountID, func(tx *db.Tx) (model.Balance, error) {
		return s.LockTx(ctx, tx, accountID, amount)
	})
}

// UnlockTx releases amount from locked. Nothing is credited back; a
// refund is a separate ApplyDeltaTx.
func (s *Service) UnlockTx(ctx context.Context, tx *db.Tx, accountID string, amount money.Money) (model.Balance, error) {
	if amount <= 0 {
		return model.Balance{}, apperr.ErrInvalidAmount
	}
	b, err := s.LoadTx(ctx, tx, accountID)
	if err != nil {
		return model.Balance{}, err
	}
	if b.Locked < amount {
		return model.Balance{}, apperr.ErrInvalidState
	}
	b.Locked -= amount
	return s.saveTx(ctx, tx, b)
}

func (s *Service) Unlock(ctx context.Context, accountID string, amount money.Money) (model.Balance, error) {
	return s.mutate(ctx, accountID, func(tx *db.Tx) (model.Balance, error) {
		return s.UnlockTx(ctx, tx, accountID, amount)
	})
}

// NextTradeCountTx advances the account's trade counter and returns the
// new count.
func (s *Service) NextTradeCountTx(ctx context.Context, tx *db.Tx, accountID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE balances SET trade_count = trade_count + 1 WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, fmt.Errorf("advance trade counter: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return 0, fmt.Errorf("account %s: %w", accountID, apperr.ErrNotFound)
	}
	var count int64
	if err := tx.QueryRowContext(ctx, `SELECT trade_count FROM balances WHERE account_id = ?`, accountID).Scan(&count); err != nil {
		return 0, fmt.Errorf("read trade counter: %w", err)
	}
	return count, nil
}

// Convert moves amount between the deposit and trading buckets. Total is
// unchanged.
func (s *Service) Convert(ctx context.Context, accountID string, dir types.ConvertDirection, amount money.Money) (model.Balance, error) {
	if !dir.Valid() {
		return model.Balance{}, fmt.Errorf("%w: direction %q", apperr.ErrInvalidInput, dir)
	}
	if amount <= 0 {
		return model.Balance{}, apperr.ErrInvalidAmount
	}
	return s.mutate(ctx, accountID, func(tx *db.Tx) (model.Balance, error) {
		b, err := s.LoadTx(ctx, tx, accountID)
		if err != nil {
			return model.Balance{}, err
		}
		switch dir {
		case types.ConvertDepositToTrading:
			if b.Deposit < amount {
				return model.Balance{}, apperr.ErrInsufficientFunds
			}
			b.Deposit -= amount
			b.Trading += amount
		case types.ConvertTradingToDeposit:
			if b.Trading < amount {
				return model.Balance{}, apperr.ErrInsufficientFunds
			}
			b.Trading -= amount
			b.Deposit += amount
		}
		return s.saveTx(ctx, tx, b)
	})
}

// Adjust credits or debits one bucket by a signed amount, clamping the
// bucket at zero.
func (s *Service) Adjust(ctx context.Context, accountID string, bucket types.Bucket, delta money.Money) (model.Balance, error) {
	if !bucket.Valid() {
		return model.Balance{}, fmt.Errorf("%w: bucket %q", apperr.ErrInvalidInput, bucket)
	}
	if delta == 0 {
		return model.Balance{}, apperr.ErrInvalidAmount
	}
	return s.mutate(ctx, accountID, func(tx *db.Tx) (model.Balance, error) {
		b, err := s.LoadTx(ctx, tx, accountID)
		if err != nil {
			return model.Balance{}, err
		}
		switch bucket {
		case types.BucketDeposit:
			b.Deposit = money.Max(0, b.Deposit+delta)
		case types.BucketTrading:
			b.Trading = money.Max(0, b.Trading+delta)
		}
		return s.saveTx(ctx, tx, b)
	})
}

// ResetDemo restores the demo deposit and trading balances. Locked funds
// and the trade counter are left alone.
func (s *Service) ResetDemo(ctx context.Context, accountID string) (model.Balance, error) {
	return s.mutate(ctx, accountID, func(tx *db.Tx) (model.Balance, error) {
		b, err := s.LoadTx(ctx, tx, accountID)
		if err != nil {
			return model.Balance{}, err
		}
		b.Deposit = s.opts.DemoDeposit
		b.Trading = s.opts.DemoTrading
		return s.saveTx(ctx, tx, b)
	})
}

func (s *Service) mutate(ctx context.Context, accountID string, fn func(tx *db.Tx) (model.Balance, error)) (model.Balance, error) {
	var out model.Balance
	err := s.WithAccount(ctx, accountID, func(tx *db.Tx) error {
		b, err := fn(tx)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return model.Balance{}, err
	}
	s.PublishBalance(out)
	return out, nil
}

// Package requests runs the deposit and withdrawal review workflow. A
// deposit credits the deposit bucket only on approval. A withdrawal
// escrows its amount in the locked bucket on creation; approval releases
// the escrow and rejection releases it and refunds the deposit bucket.
package requests

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"edge-tradesim/internal/apperr"
	"edge-tradesim/internal/clock"
	"edge-tradesim/internal/db"
	"edge-tradesim/internal/depositmethods"
	"edge-tradesim/internal/events"
	"edge-tradesim/internal/id"
	"edge-tradesim/internal/ledger"
	"edge-tradesim/internal/model"
	"edge-tradesim/internal/money"
	"edge-tradesim/internal/types"
)

const (
	tableDeposits    = "deposit_requests"
	tableWithdrawals = "withdrawal_requests"
)

type Options struct {
	MinAmount money.Money
	// DepositTTL sets ExpiresAt for display; pending deposits are never
	// expired automatically.
	DepositTTL time.Duration
}

type Service struct {
	ledger *ledger.Service
	bus    *events.Bus
	opts   Options
}

func NewService(ledgerSvc *ledger.Service, bus *events.Bus, opts Options) *Service {
	if opts.DepositTTL <= 0 {
		opts.DepositTTL = 10 * time.Minute
	}
	return &Service{ledger: ledgerSvc, bus: bus, opts: opts}
}

func (s *Service) checkAmount(amount money.Money) error {
	if amount <= 0 || amount < s.opts.MinAmount {
		return fmt.Errorf("minimum is %s: %w", s.opts.MinAmount, apperr.ErrInvalidAmount)
	}
	return nil
}

func (s *Service) CreateDeposit(ctx context.Context, accountID, asset string, amount money.Money) (model.DepositRequest, error) {
	asset = depositmethods.Normalize(asset)
	if accountID == "" || asset == "" {
		return model.DepositRequest{}, fmt.Errorf("%w: account and asset are required", apperr.ErrInvalidInput)
	}
	if err := s.checkAmount(amount); err != nil {
		return model.DepositRequest{}, err
	}
	var d model.DepositRequest
	err := s.ledger.WithAccount(ctx, accountID, func(tx *db.Tx) error {
		if _, err := s.ledger.LoadTx(ctx, tx, accountID); err != nil {
			return err
		}
		now := s.ledger.Clock().Now()
		d = model.DepositRequest{
			ID:        id.New(),
			AccountID: accountID,
			Asset:     asset,
			Amount:    amount,
			Address:   depositmethods.Address(asset),
			CreatedAt: now,
			ExpiresAt: now.Add(s.opts.DepositTTL),
			Status:    types.RequestStatusPending,
		}
		return insertDeposit(ctx, tx, d)
	})
	if err != nil {
		return model.DepositRequest{}, err
	}
	s.publish(events.TypeDeposit, accountID, d)
	return d, nil
}

func (s *Service) ApproveDeposit(ctx context.Context, requestID string) (model.DepositRequest, error) {
	return s.decideDeposit(ctx, requestID, types.RequestStatusApproved)
}

func (s *Service) RejectDeposit(ctx context.Context, requestID string) (model.DepositRequest, error) {
	return s.decideDeposit(ctx, requestID, types.RequestStatusRejected)
}

func (s *Service) decideDeposit(ctx context.Context, requestID string, status types.RequestStatus) (model.DepositRequest, error) {
	d, err := getDeposit(ctx, s.ledger.DB(), requestID)
	if err != nil {
		return model.DepositRequest{}, err
	}
	var (
		bal      model.Balance
		credited bool
	)
	err = s.ledger.WithAccount(ctx, d.AccountID, func(tx *db.Tx) error {
		now := s.ledger.Clock().Now()
		if err := decide(ctx, tx, tableDeposits, requestID, status, clock.Millis(now)); err != nil {
			return err
		}
		d.Status = status
		d.DecidedAt = &now
		if status != types.RequestStatusApproved {
			return nil
		}
		var err error
		bal, err = s.ledger.ApplyDeltaTx(ctx, tx, d.AccountID, d.Amount, 0)
		credited = err == nil
		return err
	})
	if err != nil {
		return model.DepositRequest{}, err
	}
	log.Printf("[requests] deposit %s %s account=%s amount=%s", d.ID, status, d.AccountID, d.Amount)
	s.publish(events.TypeDeposit, d.AccountID, d)
	if credited {
		s.ledger.PublishBalance(bal)
	}
	return d, nil
}

func (s *Service) CreateWithdrawal(ctx context.Context, accountID, asset, destination string, amount money.Money) (model.WithdrawalRequest, error) {
	asset = depositmethods.Normalize(asset)
	destination = strings.TrimSpace(destination)
	if accountID == "" || asset == "" || destination == "" {
		return model.WithdrawalRequest{}, fmt.Errorf("%w: account, asset and destination are required", apperr.ErrInvalidInput)
	}
	if err := s.checkAmount(amount); err != nil {
		return model.WithdrawalRequest{}, err
	}
	var (
		wr  model.WithdrawalRequest
		bal model.Balance
	)
	err := s.ledger.WithAccount(ctx, accountID, func(tx *db.Tx) error {
		var err error
		bal, err = s.ledger.LockTx(ctx, tx, accountID, amount)
		if err != nil {
			return err
		}
		wr = model.WithdrawalRequest{
			ID:          id.New(),
			AccountID:   accountID,
			Asset:       asset,
			Destination: destination,
			Amount:      amount,
			CreatedAt:   s.ledger.Clock().Now(),
			Status:      types.RequestStatusPending,
		}
		return insertWithdrawal(ctx, tx, wr)
	})
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	s.publish(events.TypeWithdrawal, accountID, wr)
	s.ledger.PublishBalance(bal)
	return wr, nil
}

func (s *Service) ApproveWithdrawal(ctx context.Context, requestID string) (model.WithdrawalRequest, error) {
	return s.decideWithdrawal(ctx, requestID, types.RequestStatusApproved)
}

func (s *Service) RejectWithdrawal(ctx context.Context, requestID string) (model.WithdrawalRequest, error) {
	return s.decideWithdrawal(ctx, requestID, types.RequestStatusRejected)
}

func (s *Service) decideWithdrawal(ctx context.Context, requestID string, status types.RequestStatus) (model.WithdrawalRequest, error) {
	wr, err := getWithdrawal(ctx, s.ledger.DB(), requestID)
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	var bal model.Balance
	err = s.ledger.WithAccount(ctx, wr.AccountID, func(tx *db.Tx) error {
		now := s.ledger.Clock().Now()
		if err := decide(ctx, tx, tableWithdrawals, requestID, status, clock.Millis(now)); err != nil {
			return err
		}
		wr.Status = status
		wr.DecidedAt = &now
		var err error
		if bal, err = s.ledger.UnlockTx(ctx, tx, wr.AccountID, wr.Amount); err != nil {
			return err
		}
		if status == types.RequestStatusRejected {
			bal, err = s.ledger.ApplyDeltaTx(ctx, tx, wr.AccountID, wr.Amount, 0)
		}
		return err
	})
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	log.Printf("[requests] withdrawal %s %s account=%s amount=%s", wr.ID, status, wr.AccountID, wr.Amount)
	s.publish(events.TypeWithdrawal, wr.AccountID, wr)
	s.ledger.PublishBalance(bal)
	return wr, nil
}

// ListDeposits returns an account's deposit requests newest first.
func (s *Service) ListDeposits(ctx context.Context, accountID string) ([]model.DepositRequest, error) {
	return listDeposits(ctx, s.ledger.DB(),
		`SELECT `+depositColumns+` FROM deposit_requests WHERE account_id = ? ORDER BY created_at DESC, id DESC`, accountID)
}

// ListAllDeposits is the review queue across accounts, oldest first.
func (s *Service) ListAllDeposits(ctx context.Context) ([]model.DepositRequest, error) {
	return listDeposits(ctx, s.ledger.DB(),
		`SELECT `+depositColumns+` FROM deposit_requests ORDER BY created_at, id`)
}

func (s *Service) ListWithdrawals(ctx context.Context, accountID string) ([]model.WithdrawalRequest, error) {
	return listWithdrawals(ctx, s.ledger.DB(),
		`SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE account_id = ? ORDER BY created_at DESC, id DESC`, accountID)
}

func (s *Service) ListAllWithdrawals(ctx context.Context) ([]model.WithdrawalRequest, error) {
	return listWithdrawals(ctx, s.ledger.DB(),
		`SELECT `+withdrawalColumns+` FROM withdrawal_requests ORDER BY created_at, id`)
}

func (s *Service) GetDeposit(ctx context.Context, requestID string) (model.DepositRequest, error) {
	return getDeposit(ctx, s.ledger.DB(), requestID)
}

func (s *Service) GetWithdrawal(ctx context.Context, requestID string) (model.WithdrawalRequest, error) {
	return getWithdrawal(ctx, s.ledger.DB(), requestID)
}

func (s *Service) publish(kind, accountID string, data any) {
	s.bus.Publish(events.Event{Type: kind, AccountID: accountID, Data: data})
}

// Package orders is the trade book: placement with a predetermined
// outcome, and newest-first history. Placement only checks the trading
// balance; funds move when the settlement sweep closes the order.
package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"edge-tradesim/internal/apperr"
	"edge-tradesim/internal/db"
	"edge-tradesim/internal/events"
	"edge-tradesim/internal/id"
	"edge-tradesim/internal/ledger"
	"edge-tradesim/internal/model"
	"edge-tradesim/internal/money"
	"edge-tradesim/internal/types"

	"github.com/shopspring/decimal"
)

const (
	MinDurationMinutes = 1
	MaxDurationMinutes = 60
)

type Options struct {
	MinAmount money.Money
	// WinEvery makes every Nth lifetime trade of an account a win.
	WinEvery int64
}

type Service struct {
	store  *Store
	ledger *ledger.Service
	bus    *events.Bus
	opts   Options
}

func NewService(store *Store, ledgerSvc *ledger.Service, bus *events.Bus, opts Options) *Service {
	if opts.WinEvery <= 0 {
		opts.WinEvery = 4
	}
	return &Service{store: store, ledger: ledgerSvc, bus: bus, opts: opts}
}

type PlaceTradeRequest struct {
	AccountID       string
	Pair            string
	Side            types.TradeSide
	Amount          money.Money
	DurationMinutes int
	StopLoss        *decimal.Decimal
	TakeProfit      *decimal.Decimal
}

// Outcome is the result of the count-th trade an account places.
func Outcome(count, every int64) types.TradeResult {
	if every > 0 && count > 0 && count%every == 0 {
		return types.TradeResultWin
	}
	return types.TradeResultLoss
}

func (s *Service) PlaceTrade(ctx context.Context, req PlaceTradeRequest) (model.TradeOrder, error) {
	pair := strings.ToUpper(strings.TrimSpace(req.Pair))
	if req.AccountID == "" || pair == "" {
		return model.TradeOrder{}, fmt.Errorf("%w: account and pair are required", apperr.ErrInvalidInput)
	}
	if !req.Side.Valid() {
		return model.TradeOrder{}, fmt.Errorf("%w: side %q", apperr.ErrInvalidInput, req.Side)
	}
	if req.DurationMinutes < MinDurationMinutes || req.DurationMinutes > MaxDurationMinutes {
		return model.TradeOrder{}, fmt.Errorf("%w: duration must be %d-%d minutes", apperr.ErrInvalidInput, MinDurationMinutes, MaxDurationMinutes)
	}
	if req.Amount < s.opts.MinAmount || req.Amount <= 0 {
		return model.TradeOrder{}, fmt.Errorf("minimum trade is %s: %w", s.opts.MinAmount, apperr.ErrInvalidAmount)
	}

	var order model.TradeOrder
	err := s.ledger.WithAccount(ctx, req.AccountID, func(tx *db.Tx) error {
		bal, err := s.ledger.LoadTx(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if req.Amount > bal.Trading {
			return apperr.ErrInsufficientFunds
		}
		if req.StopLoss != nil && req.TakeProfit != nil && !req.StopLoss.LessThan(*req.TakeProfit) {
			return apperr.ErrInvalidBounds
		}
		count, err := s.ledger.NextTradeCountTx(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		now := s.ledger.Clock().Now()
		order = model.TradeOrder{
			ID:              id.New(),
			AccountID:       req.AccountID,
			Pair:            pair,
			Side:            req.Side,
			Amount:          req.Amount,
			StopLoss:        req.StopLoss,
			TakeProfit:      req.TakeProfit,
			DurationMinutes: req.DurationMinutes,
			Seq:             count,
			PlacedAt:        now,
			SettleAt:        now.Add(time.Duration(req.DurationMinutes) * time.Minute),
			Status:          types.TradeStatusOpen,
			Result:          Outcome(count, s.opts.WinEvery),
		}
		return s.store.CreateOrder(ctx, tx, order)
	})
	if err != nil {
		return model.TradeOrder{}, err
	}
	s.bus.Publish(events.Event{Type: events.TypeTrade, AccountID: order.AccountID, Data: order})
	return order, nil
}

// ListTrades returns an account's trade history newest first, filtered
// to one side unless side is empty or "all".
func (s *Service) ListTrades(ctx context.Context, accountID string, side types.TradeSide) ([]model.TradeOrder, error) {
	side = types.TradeSide(strings.ToLower(strings.TrimSpace(string(side))))
	if side == "all" {
		side = ""
	}
	if side != "" && !side.Valid() {
		return nil, fmt.Errorf("%w: side %q", apperr.ErrInvalidInput, side)
	}
	return s.store.ListByAccount(ctx, s.ledger.DB(), accountID, side)
}

func (s *Service) GetTrade(ctx context.Context, orderID string) (model.TradeOrder, error) {
	return s.store.GetOrder(ctx, s.ledger.DB(), orderID)
}

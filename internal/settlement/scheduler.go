// Package settlement closes trades whose duration has elapsed and books
// their payout into the trading bucket.
package settlement

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"edge-tradesim/internal/clock"
	"edge-tradesim/internal/db"
	"edge-tradesim/internal/events"
	"edge-tradesim/internal/ledger"
	"edge-tradesim/internal/model"
	"edge-tradesim/internal/money"
	"edge-tradesim/internal/orders"
	"edge-tradesim/internal/types"

	"github.com/shopspring/decimal"
)

type Config struct {
	Interval   time.Duration   // e.g. 1*time.Second
	PayoutRate decimal.Decimal // e.g. 0.8
}

type Scheduler struct {
	ledger *ledger.Service
	store  *orders.Store
	bus    *events.Bus
	cfg    Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

func NewScheduler(ledgerSvc *ledger.Service, store *orders.Store, bus *events.Bus, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.PayoutRate.IsZero() {
		cfg.PayoutRate = decimal.RequireFromString("0.8")
	}
	return &Scheduler{ledger: ledgerSvc, store: store, bus: bus, cfg: cfg}
}

// Payout is the signed trading-bucket change for a settled order.
func Payout(o model.TradeOrder, rate decimal.Decimal) money.Money {
	if o.Result == types.TradeResultWin {
		return o.Amount.MulRate(rate)
	}
	return o.Amount.Neg()
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Printf("[settlement] already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if _, err := s.Sweep(ctx); err != nil {
					log.Printf("[settlement] sweep failed: %v", err)
				}
				cancel()
			}
		}
	}()
	log.Printf("[settlement] started (every %s)", s.cfg.Interval)
}

// Stop halts the ticker and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	done := s.done
	s.mu.Unlock()
	<-done
	log.Printf("[settlement] stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Sweep settles every due open order and returns the accounts whose state
// changed. Orders are settled independently; one failure does not stop
// the rest and is only logged.
func (s *Scheduler) Sweep(ctx context.Context) ([]string, error) {
	now := s.ledger.Clock().Now()
	due, err := s.store.ListDue(ctx, s.ledger.DB(), clock.Millis(now))
	if err != nil {
		return nil, err
	}
	changed := map[string]struct{}{}
	for _, o := range due {
		ok, err := s.settle(ctx, o.ID, o.AccountID)
		if err != nil {
			log.Printf("[settlement] trade %s: %v", o.ID, err)
			continue
		}
		if ok {
			changed[o.AccountID] = struct{}{}
		}
	}
	out := make([]string, 0, len(changed))
	for acct := range changed {
		out = append(out, acct)
	}
	sort.Strings(out)
	for _, acct := range out {
		s.bus.Publish(events.Event{Type: events.TypeSettled, AccountID: acct})
	}
	return out, nil
}

func (s *Scheduler) settle(ctx context.Context, orderID, accountID string) (bool, error) {
	var (
		settled bool
		order   model.TradeOrder
		bal     model.Balance
	)
	err := s.ledger.WithAccount(ctx, accountID, func(tx *db.Tx) error {
		o, err := s.store.GetOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		now := s.ledger.Clock().Now()
		if o.Status != types.TradeStatusOpen || now.Before(o.SettleAt) {
			return nil
		}
		cur, err := s.ledger.LoadTx(ctx, tx, accountID)
		if err != nil {
			return err
		}
		delta := money.Max(Payout(o, s.cfg.PayoutRate), cur.Trading.Neg())
		ok, err := s.store.CloseOrder(ctx, tx, o.ID, delta, clock.Millis(now))
		if err != nil || !ok {
			return err
		}
		bal, err = s.ledger.ApplyDeltaTx(ctx, tx, accountID, 0, delta)
		if err != nil {
			return err
		}
		o.Status = types.TradeStatusClosed
		o.Payout = &delta
		o.ClosedAt = &now
		order = o
		settled = true
		return nil
	})
	if err != nil || !settled {
		return false, err
	}
	log.Printf("[settlement] trade %s %s account=%s payout=%s", order.ID, order.Result, accountID, order.Payout)
	s.bus.Publish(events.Event{Type: events.TypeTrade, AccountID: accountID, Data: order})
	s.ledger.PublishBalance(bal)
	return true, nil
}

// Package app builds the service graph shared by the API server and edgectl.
package app

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"edge-tradesim/internal/clock"
	"edge-tradesim/internal/config"
	"edge-tradesim/internal/db"
	"edge-tradesim/internal/events"
	"edge-tradesim/internal/health"
	"edge-tradesim/internal/httpserver"
	"edge-tradesim/internal/httputil"
	"edge-tradesim/internal/ledger"
	"edge-tradesim/internal/locks"
	"edge-tradesim/internal/marketdata"
	"edge-tradesim/internal/mirror"
	"edge-tradesim/internal/orders"
	"edge-tradesim/internal/requests"
	"edge-tradesim/internal/settlement"
)

type App struct {
	Config    config.Config
	DB        *db.DB
	Bus       *events.Bus
	Clock     clock.Clock
	StartedAt time.Time

	Locks       *locks.Keyed
	Ledger      *ledger.Service
	OrderStore  *orders.Store
	Orders      *orders.Service
	Requests    *requests.Service
	Scheduler   *settlement.Scheduler
	Quotes      *marketdata.Table
	Forwarder   *mirror.Forwarder
	RateLimiter *httpserver.RateLimiter

	wg sync.WaitGroup
}

// New opens and migrates the store and wires every service. A nil clk
// means the system clock.
func New(ctx context.Context, cfg config.Config, clk clock.Clock) (*App, error) {
	store, err := db.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return NewWithDB(cfg, store, clk), nil
}

func NewWithDB(cfg config.Config, store *db.DB, clk clock.Clock) *App {
	if clk == nil {
		clk = clock.System{}
	}
	bus := events.NewBus()
	keyed := locks.NewKeyed()
	ledgerSvc := ledger.NewService(store, keyed, clk, bus, ledger.Options{
		DemoDeposit: cfg.DemoDeposit,
		DemoTrading: cfg.DemoTrading,
	})
	orderStore := orders.NewStore()
	orderSvc := orders.NewService(orderStore, ledgerSvc, bus, orders.Options{
		MinAmount: cfg.MinAmount,
		WinEvery:  cfg.WinEvery,
	})
	requestSvc := requests.NewService(ledgerSvc, bus, requests.Options{
		MinAmount:  cfg.MinAmount,
		DepositTTL: cfg.DepositTTL,
	})
	sched := settlement.NewScheduler(ledgerSvc, orderStore, bus, settlement.Config{
		Interval:   cfg.SettleInterval,
		PayoutRate: cfg.WinPayoutRate,
	})
	seed := uint64(clk.Now().UnixNano())
	quotes := marketdata.NewTable(rand.New(rand.NewPCG(seed, seed>>7)), clk.Now)

	var sink mirror.Sink = mirror.NewDisabled()
	if cfg.MirrorURL != "" {
		sink = mirror.NewWebhook(cfg.MirrorURL, httputil.DefaultRetry)
	}

	return &App{
		Config:      cfg,
		DB:          store,
		Bus:         bus,
		Clock:       clk,
		StartedAt:   clk.Now(),
		Locks:       keyed,
		Ledger:      ledgerSvc,
		OrderStore:  orderStore,
		Orders:      orderSvc,
		Requests:    requestSvc,
		Scheduler:   sched,
		Quotes:      quotes,
		Forwarder:   mirror.NewForwarder(bus, sink, cfg.MirrorQueue),
		RateLimiter: httpserver.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
	}
}

func (a *App) gauges() map[string]int64 {
	st := a.Forwarder.Stats()
	return map[string]int64{
		"bus_subscribers": int64(a.Bus.Subscribers()),
		"account_locks":   int64(a.Locks.Len()),
		"mirror_sent":     st.Sent,
		"mirror_dropped":  st.Dropped,
		"mirror_failed":   st.Failed,
	}
}

func (a *App) Router() http.Handler {
	return httpserver.NewRouter(httpserver.RouterDeps{
		HealthHandler:     health.NewHandler(a.DB, a.StartedAt, a.Config.HTTPAddr, a.Config.DBDriver, a.gauges),
		LedgerHandler:     ledger.NewHandler(a.Ledger),
		OrderHandler:      orders.NewHandler(a.Orders),
		RequestHandler:    requests.NewHandler(a.Requests),
		MarketHandler:     marketdata.NewHandler(a.Quotes),
		SettlementHandler: settlement.NewHandler(a.Scheduler),
		InternalToken:     a.Config.InternalToken,
		WSHandler:         httpserver.NewWSHandler(a.Bus, a.Config.WebSocketOrigin),
		RateLimiter:       a.RateLimiter,
	})
}

// Start launches the background workers. They stop when ctx is cancelled
// and Close is called.
func (a *App) Start(ctx context.Context) {
	a.Scheduler.Start()
	a.goRun(func() { marketdata.RunPublisher(ctx, a.Quotes, a.Bus, a.Config.QuoteInterval) })
	a.goRun(func() { a.Forwarder.Run(ctx) })
	a.goRun(func() { a.RateLimiter.RunPruner(ctx) })
}

func (a *App) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

// Close stops the scheduler, waits for workers started by Start and closes
// the store.
func (a *App) Close() error {
	a.Scheduler.Stop()
	a.wg.Wait()
	if err := a.DB.Close(); err != nil {
		log.Printf("[app] close db: %v", err)
		return err
	}
	return nil
}

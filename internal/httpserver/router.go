package httpserver

import (
	"net/http"

	"edge-tradesim/internal/health"
	"edge-tradesim/internal/ledger"
	"edge-tradesim/internal/marketdata"
	"edge-tradesim/internal/orders"
	"edge-tradesim/internal/requests"
	"edge-tradesim/internal/settlement"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	HealthHandler     *health.Handler
	LedgerHandler     *ledger.Handler
	OrderHandler      *orders.Handler
	RequestHandler    *requests.Handler
	MarketHandler     *marketdata.Handler
	SettlementHandler *settlement.Handler
	InternalToken     string
	WSHandler         http.Handler
	RateLimiter       *RateLimiter
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(SecurityHeaders)
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Middleware)
	}

	r.Get("/health", d.HealthHandler.Ready)
	r.Get("/health/live", d.HealthHandler.Live)
	r.With(InternalAuth(d.InternalToken)).Get("/health/metrics", d.HealthHandler.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/accounts/{accountID}", func(r chi.Router) {
			r.Get("/balance", d.LedgerHandler.Balance)
			r.Post("/convert", d.LedgerHandler.Convert)
			r.Get("/trades", d.OrderHandler.List)
			r.Post("/trades", d.OrderHandler.Place)
			r.Get("/deposits", d.RequestHandler.ListDeposits)
			r.Post("/deposits", d.RequestHandler.CreateDeposit)
			r.Get("/withdrawals", d.RequestHandler.ListWithdrawals)
			r.Post("/withdrawals", d.RequestHandler.CreateWithdrawal)
		})
		r.Get("/market/quotes", d.MarketHandler.Quotes)
		r.Get("/deposit-methods", d.RequestHandler.Methods)
		if d.WSHandler != nil {
			r.Get("/ws", d.WSHandler.ServeHTTP)
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(InternalAuth(d.InternalToken))
			r.Get("/accounts", d.LedgerHandler.ListAccounts)
			r.Post("/accounts", d.LedgerHandler.OpenAccount)
			r.Post("/accounts/{accountID}/reset", d.LedgerHandler.ResetDemo)
			r.Post("/accounts/{accountID}/adjust", d.LedgerHandler.Adjust)
			r.Get("/deposits", d.RequestHandler.ListAllDeposits)
			r.Post("/deposits/{requestID}/approve", d.RequestHandler.ApproveDeposit)
			r.Post("/deposits/{requestID}/reject", d.RequestHandler.RejectDeposit)
			r.Get("/withdrawals", d.RequestHandler.ListAllWithdrawals)
			r.Post("/withdrawals/{requestID}/approve", d.RequestHandler.ApproveWithdrawal)
			r.Post("/withdrawals/{requestID}/reject", d.RequestHandler.RejectWithdrawal)
			r.Post("/settlement/sweep", d.SettlementHandler.Sweep)
		})
	})
	return r
}

package orders

import (
	"net/http"

	"edge-tradesim/internal/httputil"
	"edge-tradesim/internal/money"
	"edge-tradesim/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type placeTradeRequest struct {
	Pair            string           `json:"pair" validate:"required,max=32"`
	Side            types.TradeSide  `json:"side" validate:"required,oneof=buy sell"`
	Amount          money.Money      `json:"amount"`
	DurationMinutes int              `json:"duration_minutes" validate:"min=1,max=60"`
	StopLoss        *decimal.Decimal `json:"stop_loss"`
	TakeProfit      *decimal.Decimal `json:"take_profit"`
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	var req placeTradeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	order, err := h.svc.PlaceTrade(r.Context(), PlaceTradeRequest{
		AccountID:       chi.URLParam(r, "accountID"),
		Pair:            req.Pair,
		Side:            req.Side,
		Amount:          req.Amount,
		DurationMinutes: req.DurationMinutes,
		StopLoss:        req.StopLoss,
		TakeProfit:      req.TakeProfit,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, order)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	side := types.TradeSide(r.URL.Query().Get("side"))
	trades, err := h.svc.ListTrades(r.Context(), chi.URLParam(r, "accountID"), side)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trades)
}

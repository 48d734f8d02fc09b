package ledger

import (
	"net/http"

	"edge-tradesim/internal/httputil"
	"edge-tradesim/internal/money"
	"edge-tradesim/internal/types"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type convertRequest struct {
	Direction types.ConvertDirection `json:"direction" validate:"required,oneof=dep-to-trade trade-to-dep"`
	Amount    money.Money            `json:"amount"`
}

type openAccountRequest struct {
	AccountID string       `json:"account_id" validate:"required,max=64"`
	Deposit   *money.Money `json:"deposit"`
	Trading   *money.Money `json:"trading"`
}

type adjustRequest struct {
	Bucket types.Bucket `json:"bucket" validate:"required,oneof=deposit trading"`
	Amount money.Money  `json:"amount"`
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetBalance(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	b, err := h.svc.Convert(r.Context(), chi.URLParam(r, "accountID"), req.Direction, req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

// OpenAccount seeds demo balances unless explicit amounts are given.
func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	deposit, trading := h.svc.opts.DemoDeposit, h.svc.opts.DemoTrading
	if req.Deposit != nil {
		deposit = *req.Deposit
	}
	if req.Trading != nil {
		trading = *req.Trading
	}
	b, err := h.svc.OpenAccount(r.Context(), req.AccountID, deposit, trading)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) ResetDemo(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.ResetDemo(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	b, err := h.svc.Adjust(r.Context(), chi.URLParam(r, "accountID"), req.Bucket, req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.ListAccounts(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, all)
}

package requests

import (
	"net/http"

	"edge-tradesim/internal/depositmethods"
	"edge-tradesim/internal/httputil"
	"edge-tradesim/internal/model"
	"edge-tradesim/internal/money"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createDepositRequest struct {
	Asset  string      `json:"asset" validate:"required,max=32"`
	Amount money.Money `json:"amount"`
}

type createWithdrawalRequest struct {
	Asset       string      `json:"asset" validate:"required,max=32"`
	Destination string      `json:"destination" validate:"required,max=128"`
	Amount      money.Money `json:"amount"`
}

type depositView struct {
	model.DepositRequest
	SecondsRemaining int64 `json:"seconds_remaining"`
}

func (h *Handler) depositView(d model.DepositRequest) depositView {
	return depositView{DepositRequest: d, SecondsRemaining: d.SecondsRemaining(h.svc.ledger.Clock().Now())}
}

func (h *Handler) Methods(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, depositmethods.Defaults())
}

func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req createDepositRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.svc.CreateDeposit(r.Context(), chi.URLParam(r, "accountID"), req.Asset, req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, h.depositView(d))
}

func (h *Handler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListDeposits(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]depositView, 0, len(list))
	for _, d := range list {
		out = append(out, h.depositView(d))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) ListAllDeposits(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListAllDeposits(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) ApproveDeposit(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.ApproveDeposit(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) RejectDeposit(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.RejectDeposit(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req createWithdrawalRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	wr, err := h.svc.CreateWithdrawal(r.Context(), chi.URLParam(r, "accountID"), req.Asset, req.Destination, req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, wr)
}

func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListWithdrawals(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) ListAllWithdrawals(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListAllWithdrawals(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	wr, err := h.svc.ApproveWithdrawal(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, wr)
}

func (h *Handler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	wr, err := h.svc.RejectWithdrawal(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, wr)
}

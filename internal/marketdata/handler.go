package marketdata

import (
	"net/http"
	"strings"

	"edge-tradesim/internal/apperr"
	"edge-tradesim/internal/httputil"
)

type Handler struct {
	table *Table
}

func NewHandler(table *Table) *Handler {
	return &Handler{table: table}
}

// Quotes lists the table, or a single pair when ?pair= is given.
func (h *Handler) Quotes(w http.ResponseWriter, r *http.Request) {
	pair := strings.TrimSpace(r.URL.Query().Get("pair"))
	if pair == "" {
		httputil.WriteJSON(w, http.StatusOK, h.table.List())
		return
	}
	q, ok := h.table.Get(pair)
	if !ok {
		httputil.WriteError(w, apperr.ErrNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, q)
}

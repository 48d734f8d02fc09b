package settlement

import (
	"net/http"

	"edge-tradesim/internal/httputil"
)

type Handler struct {
	sched *Scheduler
}

func NewHandler(sched *Scheduler) *Handler {
	return &Handler{sched: sched}
}

type sweepResponse struct {
	Changed []string `json:"changed"`
	Running bool     `json:"running"`
}

// Sweep runs one settlement pass on demand.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	changed, err := h.sched.Sweep(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sweepResponse{Changed: changed, Running: h.sched.Running()})
}

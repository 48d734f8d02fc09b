package health

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"time"

	"edge-tradesim/internal/httputil"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Gauges reports extra process gauges for the metrics endpoint, keyed by
// metric name suffix.
type Gauges func() map[string]int64

type Handler struct {
	db        Pinger
	startedAt time.Time
	httpAddr  string
	dbDriver  string
	gauges    Gauges
}

func NewHandler(db Pinger, startedAt time.Time, httpAddr, dbDriver string, gauges Gauges) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{
		db:        db,
		startedAt: start,
		httpAddr:  strings.TrimSpace(httpAddr),
		dbDriver:  strings.TrimSpace(dbDriver),
		gauges:    gauges,
	}
}

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UptimeSec int64  `json:"uptime_sec"`
	Uptime    string `json:"uptime"`
}

type readinessResponse struct {
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	UptimeSec int64           `json:"uptime_sec"`
	Uptime    string          `json:"uptime"`
	HTTPAddr  string          `json:"http_addr"`
	Database  readinessDBStat `json:"database"`
}

type readinessDBStat struct {
	Driver     string `json:"driver"`
	Reachable  bool   `json:"reachable"`
	PingMs     int64  `json:"ping_ms"`
	Error      string `json:"error,omitempty"`
	CheckedAt  string `json:"checked_at"`
	TimeoutSec int    `json:"timeout_sec"`
}

func (h *Handler) uptime(now time.Time) time.Duration {
	uptime := now.Sub(h.startedAt)
	if uptime < 0 {
		return 0
	}
	return uptime
}

func (h *Handler) collectDB(ctx context.Context) readinessDBStat {
	stat := readinessDBStat{Driver: h.dbDriver, TimeoutSec: 1}
	if h.db == nil {
		stat.Error = "database is not configured"
		stat.CheckedAt = time.Now().UTC().Format(time.RFC3339)
		return stat
	}
	pingStart := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(stat.TimeoutSec)*time.Second)
	err := h.db.Ping(pingCtx)
	cancel()
	stat.PingMs = time.Since(pingStart).Milliseconds()
	stat.CheckedAt = time.Now().UTC().Format(time.RFC3339)
	if err != nil {
		stat.Error = err.Error()
	} else {
		stat.Reachable = true
	}
	return stat
}

// Live does not touch the database.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	uptime := h.uptime(now)
	httputil.WriteJSON(w, http.StatusOK, liveResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Uptime:    uptime.String(),
	})
}

// Ready returns 503 when the record store is unreachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	uptime := h.uptime(now)
	db := h.collectDB(r.Context())
	status, httpStatus := "ok", http.StatusOK
	if !db.Reachable {
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, httpStatus, readinessResponse{
		Status:    status,
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Uptime:    uptime.String(),
		HTTPAddr:  h.httpAddr,
		Database:  db,
	})
}

// Metrics writes Prometheus text-format gauges.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	uptime := h.uptime(time.Now().UTC())
	db := h.collectDB(r.Context())
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	dbUp := 0
	if db.Reachable {
		dbUp = 1
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "# HELP edge_up Service process is running.\n")
	_, _ = fmt.Fprintf(w, "# TYPE edge_up gauge\n")
	_, _ = fmt.Fprintf(w, "edge_up 1\n")
	_, _ = fmt.Fprintf(w, "edge_uptime_seconds %d\n", int64(uptime.Seconds()))
	_, _ = fmt.Fprintf(w, "# HELP edge_db_up Database ping status (1=ok,0=down).\n")
	_, _ = fmt.Fprintf(w, "# TYPE edge_db_up gauge\n")
	_, _ = fmt.Fprintf(w, "edge_db_up %d\n", dbUp)
	_, _ = fmt.Fprintf(w, "edge_db_ping_milliseconds %d\n", db.PingMs)
	_, _ = fmt.Fprintf(w, "edge_go_goroutines %d\n", runtime.NumGoroutine())
	_, _ = fmt.Fprintf(w, "edge_go_mem_heap_alloc_bytes %d\n", mem.HeapAlloc)
	if h.gauges == nil {
		return
	}
	extra := h.gauges()
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "edge_%s %d\n", name, extra[name])
	}
}

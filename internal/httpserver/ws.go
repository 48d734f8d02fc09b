package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"edge-tradesim/internal/events"

	"github.com/gorilla/websocket"
)

const wsWriteWait = 5 * time.Second

// WSHandler streams bus events to a browser. A client sees quotes (unless
// it turns them off) and the events of the one account it subscribed to.
type WSHandler struct {
	bus      *events.Bus
	origin   string
	upgrader websocket.Upgrader
}

func NewWSHandler(bus *events.Bus, origin string) *WSHandler {
	return &WSHandler{
		bus:    bus,
		origin: origin,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

type wsControlMessage struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id,omitempty"`
	Enabled   *bool  `json:"enabled,omitempty"`
}

type wsFilter struct {
	mu        sync.RWMutex
	accountID string
	quotes    bool
}

func (f *wsFilter) wants(evt events.Event) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if evt.AccountID == "" {
		return f.quotes
	}
	return f.accountID != "" && evt.AccountID == f.accountID
}

func (f *wsFilter) apply(ctrl wsControlMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(ctrl.Type)) {
	case "subscribe":
		f.accountID = strings.TrimSpace(ctrl.AccountID)
	case "unsubscribe":
		f.accountID = ""
	case "quotes":
		f.quotes = ctrl.Enabled == nil || *ctrl.Enabled
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "" || origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	if reqOrigin == "" {
		return true
	}
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filter := &wsFilter{
		accountID: strings.TrimSpace(r.URL.Query().Get("account")),
		quotes:    r.URL.Query().Get("quotes") != "off",
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ctrl wsControlMessage
			if err := json.Unmarshal(payload, &ctrl); err != nil {
				continue
			}
			filter.apply(ctrl)
		}
	}()
	for {
		select {
		case evt, ok := <-sub:
			if !ok {
				return
			}
			if !filter.wants(evt) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

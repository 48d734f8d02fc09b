package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"edge-tradesim/internal/events"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noContent = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestInternalAuth(t *testing.T) {
	cases := []struct {
		name       string
		configured string
		sent       string
		want       int
	}{
		{"match", "s3cret", "s3cret", http.StatusNoContent},
		{"mismatch", "s3cret", "guess", http.StatusUnauthorized},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"unconfigured rejects all", "", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/accounts", nil)
			if tc.sent != "" {
				req.Header.Set("X-Internal-Token", tc.sent)
			}
			rec := httptest.NewRecorder()
			InternalAuth(tc.configured)(noContent).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRateLimiterRefills(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(noContent)

	hit := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusNoContent, hit())
	assert.Equal(t, http.StatusNoContent, hit())
	assert.Equal(t, http.StatusTooManyRequests, hit())

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusNoContent, hit())

	now = now.Add(5 * time.Minute)
	rl.Prune(3 * time.Minute)
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()
}

func TestAllowOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/ws", nil)
	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, allowOrigin(req, "*"))
	assert.True(t, allowOrigin(req, "https://APP.example.com"))
	assert.False(t, allowOrigin(req, "https://other.example.com"))

	req.Header.Set("Origin", "http://localhost:5173")
	assert.True(t, allowOrigin(req, "http://localhost:3000"))
}

func TestWSFilter(t *testing.T) {
	f := &wsFilter{quotes: true}
	quote := events.Event{Type: events.TypeQuote}
	mine := events.Event{Type: events.TypeBalance, AccountID: "acc-1"}
	theirs := events.Event{Type: events.TypeBalance, AccountID: "acc-2"}

	assert.True(t, f.wants(quote))
	assert.False(t, f.wants(mine))

	f.apply(wsControlMessage{Type: "subscribe", AccountID: "acc-1"})
	assert.True(t, f.wants(mine))
	assert.False(t, f.wants(theirs))

	off := false
	f.apply(wsControlMessage{Type: "quotes", Enabled: &off})
	assert.False(t, f.wants(quote))

	f.apply(wsControlMessage{Type: "unsubscribe"})
	assert.False(t, f.wants(mine))
}

func TestWSStreamsAccountEvents(t *testing.T) {
	bus := events.NewBus()
	srv := httptest.NewServer(NewWSHandler(bus, "*"))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?account=acc-1&quotes=off"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	bus.Publish(events.Event{Type: events.TypeQuote})
	bus.Publish(events.Event{Type: events.TypeBalance, AccountID: "acc-2"})
	bus.Publish(events.Event{Type: events.TypeDeposit, AccountID: "acc-1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got events.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, events.TypeDeposit, got.Type)
	assert.Equal(t, "acc-1", got.AccountID)
}

package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"edge-tradesim/internal/events"
	"edge-tradesim/internal/httputil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu   sync.Mutex
	got  []Envelope
	fail bool
}

func (s *recordingSink) Enabled() bool { return true }

func (s *recordingSink) Send(ctx context.Context, env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("remote down")
	}
	s.got = append(s.got, env)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func startForwarder(t *testing.T, bus *events.Bus, sink Sink) *Forwarder {
	t.Helper()
	fwd := NewForwarder(bus, sink, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		fwd.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	return fwd
}

func TestForwarderSendsAccountEvents(t *testing.T) {
	bus := events.NewBus()
	sink := &recordingSink{}
	fwd := startForwarder(t, bus, sink)

	bus.Publish(events.Event{Type: events.TypeQuote, Data: "ignored"})
	bus.Publish(events.Event{Type: events.TypeBalance, AccountID: "acct", Data: map[string]string{"total": "1.00"}})

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	sink.mu.Lock()
	env := sink.got[0]
	sink.mu.Unlock()
	assert.Equal(t, events.TypeBalance, env.Type)
	assert.Equal(t, "acct", env.AccountID)
	assert.Len(t, env.ID, 36)
	assert.Equal(t, int64(1), fwd.Stats().Sent)
}

func TestForwarderSwallowsFailures(t *testing.T) {
	bus := events.NewBus()
	sink := &recordingSink{fail: true}
	fwd := startForwarder(t, bus, sink)

	bus.Publish(events.Event{Type: events.TypeTrade, AccountID: "acct"})
	require.Eventually(t, func() bool { return fwd.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(0), fwd.Stats().Sent)
}

func TestDisabledSinkReturnsImmediately(t *testing.T) {
	bus := events.NewBus()
	fwd := NewForwarder(bus, NewDisabled(), 4)
	done := make(chan struct{})
	go func() {
		fwd.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for a disabled sink")
	}
	assert.Equal(t, 0, bus.Subscribers())
}

func TestWebhookPostsEnvelope(t *testing.T) {
	var (
		mu       sync.Mutex
		received Envelope
		key      string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		key = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, httputil.RetryConfig{MaxAttempts: 1})
	require.True(t, hook.Enabled())
	err := hook.Send(context.Background(), Envelope{ID: "evt-1", Type: events.TypeDeposit, AccountID: "acct"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "evt-1", key)
	assert.Equal(t, events.TypeDeposit, received.Type)
	assert.False(t, NewWebhook("", httputil.DefaultRetry).Enabled())
}

func TestWebhookReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, httputil.RetryConfig{MaxAttempts: 1})
	err := hook.Send(context.Background(), Envelope{ID: "evt-2"})
	assert.ErrorContains(t, err, "HTTP 400")
}

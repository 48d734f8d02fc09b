package marketdata

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"edge-tradesim/internal/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

// rounding to 4 places can move a quote by half a tick past the drift bound
var decimalStep = decimal.RequireFromString("0.00005")

func TestTableSeeded(t *testing.T) {
	table := NewTable(rand.New(rand.NewPCG(1, 2)), fixedNow)
	list := table.List()
	require.Len(t, list, 25)
	assert.Equal(t, CategoryCrypto, list[0].Category)
	assert.Equal(t, CategoryStock, list[len(list)-1].Category)

	q, ok := table.Get("eur/usd")
	require.True(t, ok)
	assert.Equal(t, "1.0915", q.Buy.String())
	_, ok = table.Get("NOPE/USD")
	assert.False(t, ok)
}

func TestNudgeStaysWithinVolatility(t *testing.T) {
	table := NewTable(rand.New(rand.NewPCG(7, 7)), fixedNow)
	before := map[string]Quote{}
	for _, q := range table.List() {
		before[q.Pair] = q
	}
	for _, q := range table.Nudge() {
		prev := before[q.Pair]
		move := q.Buy.Sub(prev.Buy).Abs()
		assert.True(t, move.LessThanOrEqual(volatility(prev).Add(decimalStep)), q.Pair)
		assert.True(t, q.Sell.Equal(q.Buy.Sub(spread(prev.Buy)).Round(4)), q.Pair)
		assert.True(t, q.Sell.IsPositive(), q.Pair)
		assert.Contains(t, []string{"up", "down"}, q.Trend)
	}
}

func TestRunPublisherPublishesQuotes(t *testing.T) {
	bus := events.NewBusWithBuffer(200)
	ch := bus.Subscribe()
	table := NewTable(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunPublisher(ctx, table, bus, 5*time.Millisecond)

	select {
	case evt := <-ch:
		assert.Equal(t, events.TypeQuote, evt.Type)
		_, ok := evt.Data.(Quote)
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("no quote published")
	}
}

func TestQuotesHandler(t *testing.T) {
	h := NewHandler(NewTable(nil, fixedNow))
	rec := httptest.NewRecorder()
	h.Quotes(rec, httptest.NewRequest(http.MethodGet, "/v1/market/quotes?pair=BTC/USD", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pair":"BTC/USD"`)

	rec = httptest.NewRecorder()
	h.Quotes(rec, httptest.NewRequest(http.MethodGet, "/v1/market/quotes?pair=ZZZ", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

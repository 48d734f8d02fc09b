package orders

import (
	"context"
	"testing"
	"time"

	"edge-tradesim/internal/apperr"
	"edge-tradesim/internal/clock"
	"edge-tradesim/internal/events"
	"edge-tradesim/internal/ledger"
	"edge-tradesim/internal/locks"
	"edge-tradesim/internal/money"
	"edge-tradesim/internal/testutil"
	"edge-tradesim/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ledger *ledger.Service
	svc    *Service
	clock  *clock.Manual
	bus    *events.Bus
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clk := testutil.Clock()
	bus := events.NewBus()
	led := ledger.NewService(testutil.OpenDB(t), locks.NewKeyed(), clk, bus, ledger.Options{})
	svc := NewService(NewStore(), led, bus, Options{MinAmount: money.FromInt(10), WinEvery: 4})
	return fixture{ledger: led, svc: svc, clock: clk, bus: bus}
}

func (f fixture) open(t *testing.T, accountID string, deposit, trading int64) {
	t.Helper()
	_, err := f.ledger.OpenAccount(context.Background(), accountID, money.FromInt(deposit), money.FromInt(trading))
	require.NoError(t, err)
}

func basicTrade(accountID string, amount int64) PlaceTradeRequest {
	return PlaceTradeRequest{
		AccountID:       accountID,
		Pair:            "btc/usdt",
		Side:            types.TradeSideBuy,
		Amount:          money.FromInt(amount),
		DurationMinutes: 1,
	}
}

func TestOutcome(t *testing.T) {
	var got []types.TradeResult
	for i := int64(1); i <= 8; i++ {
		got = append(got, Outcome(i, 4))
	}
	assert.Equal(t, []types.TradeResult{"loss", "loss", "loss", "win", "loss", "loss", "loss", "win"}, got)
	assert.Equal(t, types.TradeResultLoss, Outcome(0, 4))
}

func TestPlaceTradeWinSequence(t *testing.T) {
	f := newFixture(t)
	f.open(t, "acct", 0, 1000)
	ctx := context.Background()

	var results []types.TradeResult
	for i := 0; i < 5; i++ {
		o, err := f.svc.PlaceTrade(ctx, basicTrade("acct", 10))
		require.NoError(t, err)
		results = append(results, o.Result)
		f.clock.Advance(time.Second)
	}
	assert.Equal(t, []types.TradeResult{"loss", "loss", "loss", "win", "loss"}, results)

	b, err := f.ledger.GetBalance(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(5), b.TradeCount)
	assert.Equal(t, money.FromInt(1000), b.Trading)
}

func TestPlaceTradeRecordsSchedule(t *testing.T) {
	f := newFixture(t)
	f.open(t, "acct", 100, 100)
	ch := f.bus.Subscribe()

	req := basicTrade("acct", 50)
	req.DurationMinutes = 5
	o, err := f.svc.PlaceTrade(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDT", o.Pair)
	assert.Equal(t, types.TradeStatusOpen, o.Status)
	assert.Equal(t, testutil.Epoch, o.PlacedAt)
	assert.Equal(t, testutil.Epoch.Add(5*time.Minute), o.SettleAt)
	assert.Len(t, o.ID, 26)

	evt := <-ch
	assert.Equal(t, events.TypeTrade, evt.Type)

	stored, err := f.svc.GetTrade(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.SettleAt, stored.SettleAt)
	assert.Equal(t, o.Result, stored.Result)
}

func TestPlaceTradeValidation(t *testing.T) {
	f := newFixture(t)
	f.open(t, "acct", 100, 100)
	ctx := context.Background()

	_, err := f.svc.PlaceTrade(ctx, basicTrade("acct", 9))
	assert.ErrorIs(t, err, apperr.ErrInvalidAmount)

	_, err = f.svc.PlaceTrade(ctx, basicTrade("acct", 101))
	assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	sl, tp := decimal.RequireFromString("1.2"), decimal.RequireFromString("1.1")
	req := basicTrade("acct", 20)
	req.StopLoss, req.TakeProfit = &sl, &tp
	_, err = f.svc.PlaceTrade(ctx, req)
	assert.ErrorIs(t, err, apperr.ErrInvalidBounds)

	req.TakeProfit = &sl
	_, err = f.svc.PlaceTrade(ctx, req)
	assert.ErrorIs(t, err, apperr.ErrInvalidBounds)

	req = basicTrade("acct", 20)
	req.Side = "hold"
	_, err = f.svc.PlaceTrade(ctx, req)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	req = basicTrade("acct", 20)
	req.DurationMinutes = 0
	_, err = f.svc.PlaceTrade(ctx, req)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.svc.PlaceTrade(ctx, basicTrade("ghost", 20))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// rejected placements never advance the counter
	b, err := f.ledger.GetBalance(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.TradeCount)
}

func TestPlaceTradeWithBounds(t *testing.T) {
	f := newFixture(t)
	f.open(t, "acct", 0, 100)
	sl, tp := decimal.RequireFromString("1.0850"), decimal.RequireFromString("1.0950")
	req := basicTrade("acct", 10)
	req.StopLoss, req.TakeProfit = &sl, &tp
	o, err := f.svc.PlaceTrade(context.Background(), req)
	require.NoError(t, err)

	stored, err := f.svc.GetTrade(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.StopLoss)
	assert.True(t, stored.StopLoss.Equal(sl))
	assert.True(t, stored.TakeProfit.Equal(tp))
}

func TestListTradesNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.open(t, "acct", 0, 100)
	f.open(t, "other", 0, 100)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		o, err := f.svc.PlaceTrade(ctx, basicTrade("acct", 10))
		require.NoError(t, err)
		ids = append(ids, o.ID)
		f.clock.Advance(time.Second)
	}
	_, err := f.svc.PlaceTrade(ctx, basicTrade("other", 10))
	require.NoError(t, err)

	trades, err := f.svc.ListTrades(ctx, "acct", "")
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, ids[2], trades[0].ID)
	assert.Equal(t, ids[0], trades[2].ID)

	empty, err := f.svc.ListTrades(ctx, "nobody", "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListTradesFiltersBySide(t *testing.T) {
	f := newFixture(t)
	f.open(t, "acct", 0, 100)
	ctx := context.Background()

	buy := basicTrade("acct", 10)
	buy.Side = types.TradeSideBuy
	sell := basicTrade("acct", 10)
	sell.Side = types.TradeSideSell
	for _, req := range []PlaceTradeRequest{buy, sell, sell} {
		_, err := f.svc.PlaceTrade(ctx, req)
		require.NoError(t, err)
	}

	cases := []struct {
		side types.TradeSide
		want int
	}{
		{"", 3},
		{"all", 3},
		{"ALL", 3},
		{types.TradeSideBuy, 1},
		{"Sell", 2},
	}
	for _, tc := range cases {
		trades, err := f.svc.ListTrades(ctx, "acct", tc.side)
		require.NoError(t, err, tc.side)
		assert.Len(t, trades, tc.want, tc.side)
	}

	_, err := f.svc.ListTrades(ctx, "acct", "hold")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

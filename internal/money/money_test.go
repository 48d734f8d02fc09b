package money

import (
	"encoding/json"
	"testing"

	"edge-tradesim/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Money
	}{
		{"10", 1000},
		{"10.5", 1050},
		{"10.50", 1050},
		{"0.01", 1},
		{"0.005", 1},
		{"-3.2", -320},
		{" 7 ", 700},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "1,5"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, apperr.ErrInvalidAmount, in)
	}
}

func TestParseRejectsOutOfRange(t *testing.T) {
	// both wrap around int64 cents if converted unchecked
	for _, in := range []string{"184467440737095526.16", "92233720368547758.08", "-92233720368547758.09", "1000000000000.01"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, apperr.ErrInvalidAmount, in)
	}
	m, err := Parse("1000000000000.00")
	require.NoError(t, err)
	assert.Equal(t, MaxAbs, m)

	var v struct {
		A Money `json:"a"`
	}
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"a":"184467440737095526.16"}`), &v), apperr.ErrInvalidAmount)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"a":1e30}`), &v), apperr.ErrInvalidAmount)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"a":"abc"}`), &v), apperr.ErrInvalidAmount)
	assert.Equal(t, Zero, v.A)
}

func TestMulRateSaturates(t *testing.T) {
	assert.Equal(t, MaxAbs, MaxAbs.MulRate(decimal.RequireFromString("2")))
	assert.Equal(t, -MaxAbs, MaxAbs.MulRate(decimal.RequireFromString("-2")))
}

func TestMulRateRoundsToCents(t *testing.T) {
	rate := decimal.RequireFromString("0.8")
	assert.Equal(t, MustParse("40.00"), MustParse("50").MulRate(rate))
	// 1.01 * 0.8 = 0.808 -> 0.81
	assert.Equal(t, MustParse("0.81"), MustParse("1.01").MulRate(rate))
	// 10.03 * 0.8 = 8.024 -> 8.02
	assert.Equal(t, MustParse("8.02"), MustParse("10.03").MulRate(rate))
}

func TestString(t *testing.T) {
	assert.Equal(t, "0.00", Zero.String())
	assert.Equal(t, "1234.05", Money(123405).String())
	assert.Equal(t, "-0.50", Money(-50).String())
}

func TestJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
	}{A: 1999})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"19.99"}`, string(b))

	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12.5","b":7.25}`), &v))
	assert.Equal(t, Money(1250), v.A)
	assert.Equal(t, Money(725), v.B)
}

func TestMax(t *testing.T) {
	assert.Equal(t, Zero, Max(Zero, -5))
	assert.Equal(t, Money(5), Max(5, Zero))
}

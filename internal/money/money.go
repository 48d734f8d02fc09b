// Package money implements the fixed-point amount type used for every
// balance bucket, trade stake and request amount.
//
// Amounts are held as integer cents so bucket arithmetic never drifts;
// shopspring/decimal is used at the edges for parsing, formatting and
// rate multiplication.
package money

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"edge-tradesim/internal/apperr"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents.
type Money int64

const Zero Money = 0

// MaxAbs bounds every parsed amount (one trillion units) so that bucket
// sums stay far inside int64.
const MaxAbs Money = 1_000_000_000_000_00

var maxAbsCents = decimal.NewFromInt(int64(MaxAbs))

func FromCents(c int64) Money { return Money(c) }

// FromDecimal rounds d half away from zero to 2 decimal places. Values
// beyond MaxAbs are rejected with apperr.ErrInvalidAmount.
func FromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThan(maxAbsCents) {
		return 0, fmt.Errorf("%w: %s exceeds %s", apperr.ErrInvalidAmount, d.String(), MaxAbs)
	}
	return Money(cents.IntPart()), nil
}

func FromInt(units int64) Money { return Money(units * 100) }

// Parse reads a decimal string such as "10", "10.5" or "10.50". Values
// with more than two fractional digits are rounded to cents.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", apperr.ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: parse %q: %v", apperr.ErrInvalidAmount, s, err)
	}
	return FromDecimal(d)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Cents() int64 { return int64(m) }

func (m Money) Decimal() decimal.Decimal { return decimal.New(int64(m), -2) }

func (m Money) String() string { return m.Decimal().StringFixed(2) }

// MulRate returns round2(m * rate), saturating at ±MaxAbs.
func (m Money) MulRate(rate decimal.Decimal) Money {
	v, err := FromDecimal(m.Decimal().Mul(rate))
	if err != nil {
		if m.Decimal().Mul(rate).IsNegative() {
			return -MaxAbs
		}
		return MaxAbs
	}
	return v
}

func (m Money) Neg() Money { return -m }

func (m Money) IsNegative() bool { return m < 0 }

func Max(a, b Money) Money {
	if a > b {
		return a
	}
	return b
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "12.34" and 12.34.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := Parse(s)
		if err != nil {
			return err
		}
		*m = v
		return nil
	}
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m Money) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Money) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Package core provides the domain types shared by every layer.
//
// Money is stored as integer cents. Conversions to and from decimal
// representations go through shopspring/decimal so that no float arithmetic
// touches stored amounts.
package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a non-negative amount in hundredths of the (currency-agnostic) unit.
type Money struct {
	Cents int64
}

var maxMoney = decimal.New(1<<62, -2)

// MoneyFromDecimal rounds d half-up to two places.
//
// Examples:
//
//	MoneyFromDecimal(12.345) -> 1235 cents
//	MoneyFromDecimal(12.344) -> 1234 cents
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, Invalid("amount must not be negative")
	}
	if d.GreaterThan(maxMoney) {
		return Money{}, Invalid("amount is too large")
	}
	return Money{Cents: d.Round(2).Shift(2).IntPart()}, nil
}

// ParseMoney parses a decimal string. A decimal comma is accepted.
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Money{}, Invalid("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, Invalid("amount must be a number")
	}
	return MoneyFromDecimal(d)
}

// Cents builds a Money value; intended for tests and fixtures.
func Cents(c int64) Money { return Money{Cents: c} }

func (m Money) Validate() error {
	if m.Cents < 0 {
		return Invalid("amount must not be negative")
	}
	return nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the amount as a float64 for presentation only.
func (m Money) Float() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// MarshalJSON emits a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return Invalid("amount is required")
	}
	v, err := ParseMoney(string(bytes.Trim(b, `"`)))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

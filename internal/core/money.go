// Package core provides money parsing and handling utilities.
//
// Amounts travel as int64 cents inside the module. Decimal values coming
// from the backend (numbers or quoted strings) are converted with
// half-up rounding on the third decimal place.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to Money.
//
// It accepts dot (12.34) and comma (12,34) decimal separators. When both
// appear, the comma is taken as a thousands separator ("1,500.50"). A lone
// comma is grouping when every group after it has exactly three digits
// ("1,500"), a decimal separator when followed by one or two digits, and
// invalid otherwise. Zero is a valid amount; negative values are rejected.
//
// Examples:
//
//	ParseAmount("12.34")    -> 1234
//	ParseAmount("12,34")    -> 1234
//	ParseAmount("1,500")    -> 150000
//	ParseAmount("1,500.50") -> 150050
//	ParseAmount("12.345")   -> 1235 (half-up)
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		switch {
		case strings.Contains(s, "."), isGrouped(s):
			s = strings.ReplaceAll(s, ",", "")
		case strings.Count(s, ",") == 1 && len(s)-strings.Index(s, ",") <= 3:
			s = strings.Replace(s, ",", ".", 1)
		default:
			return Money{}, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// isGrouped reports whether s is digits split into thousands by commas,
// with a leading group of one to three digits.
func isGrouped(s string) bool {
	groups := strings.Split(s, ",")
	if len(groups[0]) < 1 || len(groups[0]) > 3 {
		return false
	}
	for i, g := range groups {
		if i > 0 && len(g) != 3 {
			return false
		}
		for _, r := range g {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// MoneyFromDecimal rounds d to cents. Negative values are rejected.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(1<<62)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with exactly two decimals and no grouping,
// independent of locale.
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// MarshalJSON emits the amount as a decimal string, the same shape the
// backend accepts.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

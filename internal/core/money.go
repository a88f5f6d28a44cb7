// Package core holds the domain model of the household ledger: bills,
// bill instances, payments, income, expenses and the derived summaries.
//
// This file contains parsing and formatting helpers for monetary amounts.
// Amounts are exact decimals (shopspring/decimal); floats are only produced
// at the edge for display percentages.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-supplied decimal string to an exact amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds to two fractional digits, half up. Returns ErrInvalidAmount for
// empty, malformed, zero or negative input.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil (rounds up)
//	ParseAmount("-3")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with exactly two fractional digits,
// the form used in messages and templates (e.g. "500.00").
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Percentage returns part/whole*100 as a float for display.
// A zero whole yields 0, guarding the divide-by-zero everywhere
// percentages are computed.
func Percentage(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	f, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Float64()
	return f
}

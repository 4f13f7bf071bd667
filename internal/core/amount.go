// Package core defines the transaction entity and its closed-set fields.
//
// Amounts are carried as exact text throughout the system and only parsed
// into decimals at validation and aggregation time, so that what the user
// entered is what the store round-trips.
package core

import (
	"errors"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ValidateAmount checks that s is a non-negative decimal literal with at
// most one fractional separator. The text itself is not normalized.
func ValidateAmount(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 {
		return ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ErrInvalidAmount
	}
	if d.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// FormatAmount renders an amount for display: two decimal places and
// thousands separators, e.g. "1234.5" -> "1,234.50".
func FormatAmount(s string) (string, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", ErrInvalidAmount
	}
	f, _ := d.Round(2).Float64()
	return humanize.FormatFloat("#,###.##", f), nil
}

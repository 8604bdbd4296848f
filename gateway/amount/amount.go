// Package amount converts between human-readable decimal amounts and the raw
// integer units used on chain. Every token has its own decimal count and the
// two representations must never be mixed: a raw amount only has meaning next
// to the decimals that produced it.
package amount

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Common decimal counts on the execution chain.
const (
	// BTCDecimals is the fixed-point precision of the bridged BTC token.
	BTCDecimals = 8
	// NativeDecimals is the precision of the chain's native currency.
	NativeDecimals = 24
	// GasDecimals is the precision of gas units (1 Tgas = 10^12 units).
	GasDecimals = 12
)

// Parse converts a human decimal amount string into raw integer units.
// "0.001" with 8 decimals becomes "100000". Fractional dust beyond the
// token's precision is truncated, never rounded up.
func Parse(amount string, decimals int32) (string, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("negative amount %q", amount)
	}
	return d.Shift(decimals).Truncate(0).String(), nil
}

// Format converts raw integer units back to a human decimal string.
// Trailing zeros are stripped ("0.00099000" renders as "0.00099").
// Invalid input formats as "0" so passive display paths never fail.
func Format(raw string, decimals int32) string {
	if raw == "" {
		return "0"
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "0"
	}
	return d.Shift(-decimals).String()
}

// Gas returns the raw gas units for n Tgas.
func Gas(tgas int64) string {
	return decimal.NewFromInt(tgas).Shift(GasDecimals).String()
}

// Safe parses val into a decimal, falling back to zero on garbage input.
// Used on passive read paths where an error would only cause UI flicker.
func Safe(val string) decimal.Decimal {
	d, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// IsZero reports whether val parses to exactly zero. Unparseable values
// count as zero, matching the idle-state handling of estimators.
func IsZero(val string) bool {
	return Safe(val).IsZero()
}

// Max returns the larger of two decimal strings, treating bad input as zero.
func Max(a, b string) string {
	da, db := Safe(a), Safe(b)
	if da.GreaterThan(db) {
		return da.String()
	}
	return db.String()
}

// Min returns the smaller of two decimal strings, treating bad input as zero.
func Min(a, b string) string {
	da, db := Safe(a), Safe(b)
	if da.LessThan(db) {
		return da.String()
	}
	return db.String()
}

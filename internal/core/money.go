// Package core provides money parsing and handling utilities.
//
// This file contains the numeric coercion applied to every amount read from a
// store or a client, and the display formatting shared by the export adapters.
package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount coerces v to a decimal amount. Missing or non-numeric input is
// treated as zero, never as an error.
//
// Examples:
//
//	ParseAmount("1000")   -> 1000
//	ParseAmount(" 12.5 ") -> 12.5
//	ParseAmount(250.0)    -> 250
//	ParseAmount("1,000")  -> 0 (grouping separators are not numbers)
//	ParseAmount(nil)      -> 0
func ParseAmount(v any) decimal.Decimal {
	switch val := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return val
	case float64:
		return decimal.NewFromFloat(val)
	case float32:
		return decimal.NewFromFloat32(val)
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case int32:
		return decimal.NewFromInt32(val)
	case json.Number:
		return parseAmountString(val.String())
	case string:
		return parseAmountString(val)
	default:
		return decimal.Zero
	}
}

func parseAmountString(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatAmount renders d with comma thousands separators and at most two
// decimals, e.g. 1234567.5 -> "1,234,567.50" and 1000 -> "1,000".
func FormatAmount(d decimal.Decimal) string {
	neg := d.IsNegative()
	if neg {
		d = d.Neg()
	}
	d = d.Round(2)
	intPart := d.Truncate(0).String()
	frac := ""
	if !d.Equal(d.Truncate(0)) {
		frac = "." + d.StringFixed(2)[len(intPart)+1:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + frac
	if neg {
		return "-" + out
	}
	return out
}

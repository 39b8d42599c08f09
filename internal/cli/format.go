// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney formats a dollar amount with cents and comma separators.
// e.g., 87000 -> "$87,000.00", -6.98 -> "-$6.98"
func FormatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")
	return sign + "$" + groupThousands(whole) + "." + frac
}

// FormatPercent formats a value already expressed in percent.
// e.g., 5.7011 -> "5.70%"
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

// FormatYears formats an amortization period; null means never repaid.
func FormatYears(y decimal.NullDecimal) string {
	if !y.Valid {
		return "never"
	}
	return y.Decimal.StringFixed(2) + " yrs"
}

// FormatBool renders a yes/no cell.
func FormatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// groupThousands adds comma separators to a string of digits.
// e.g., "1234567" -> "1,234,567"
func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

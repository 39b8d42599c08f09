// Package property validates caller-supplied property data and parses
// currency amounts typed by users.
package property

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sellerfin/offer-engine/internal/model"
)

var (
	// ErrInvalidInput is wrapped by every validation failure.
	ErrInvalidInput = errors.New("property: invalid input")

	ErrMissingListedPrice = errors.New("listed price must be positive")
	ErrMissingMonthlyRent = errors.New("monthly rent must be positive")
	ErrNegativeExpense    = errors.New("expenses must not be negative")
	ErrAmountTooLarge     = errors.New("amount exceeds the supported maximum")

	ErrInvalidAmount = errors.New("property: invalid amount")
)

// MaxAmount bounds every input so loan math stays finite.
var MaxAmount = decimal.NewFromInt(1_000_000_000)

// amountRegex matches "87000", "$87,000.50", "87k", "1.2M".
var amountRegex = regexp.MustCompile(
	`^\$?((?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?)([kKmM]?)$`,
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
)

// Validate checks p before it reaches the calculator. The returned error
// wraps ErrInvalidInput and one of the specific sentinels.
func Validate(p model.PropertyData) error {
	if !p.ListedPrice.IsPositive() {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrMissingListedPrice)
	}
	if !p.MonthlyRent.IsPositive() {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrMissingMonthlyRent)
	}

	expenses := []struct {
		name string
		v    decimal.Decimal
	}{
		{"monthly_property_tax", p.MonthlyPropertyTax},
		{"monthly_insurance", p.MonthlyInsurance},
		{"monthly_hoa_fee", p.MonthlyHOAFee},
		{"monthly_other_fees", p.MonthlyOtherFees},
	}
	for _, e := range expenses {
		if e.v.IsNegative() {
			return fmt.Errorf("%w: %w: %s", ErrInvalidInput, ErrNegativeExpense, e.name)
		}
	}

	all := append([]decimal.Decimal{p.ListedPrice, p.MonthlyRent},
		p.MonthlyPropertyTax, p.MonthlyInsurance, p.MonthlyHOAFee, p.MonthlyOtherFees)
	for _, v := range all {
		if v.GreaterThan(MaxAmount) {
			return fmt.Errorf("%w: %w", ErrInvalidInput, ErrAmountTooLarge)
		}
	}
	return nil
}

// ParseAmount parses a user-typed dollar amount. Thousands separators, a
// leading "$" and a k/M suffix are accepted; negative amounts are not.
func ParseAmount(s string) (decimal.Decimal, error) {
	matches := amountRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	v, err := decimal.NewFromString(strings.ReplaceAll(matches[1], ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	switch strings.ToLower(matches[2]) {
	case "k":
		v = v.Mul(thousand)
	case "m":
		v = v.Mul(million)
	}
	return v, nil
}

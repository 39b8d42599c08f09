package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sellerfin/offer-engine/internal/model"
)

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("calculator: invalid config")

// MaxTermYears bounds the amortization and balloon terms so month counts
// stay small and positive.
const MaxTermYears = 100

// OfferProfile parameterizes one deal structure.
type OfferProfile struct {
	// AppreciationProfitTarget is the profit the profile aims to capture
	// by the balloon date. It is reported, not enforced.
	AppreciationProfitTarget decimal.Decimal `json:"appreciation_profit_target"`

	// EntryFeeMaxPercent is the share of the listed price taken up front
	// (0.10 = 10%).
	EntryFeeMaxPercent decimal.Decimal `json:"entry_fee_max_percent"`

	// EntryFeeCap bounds the entry fee in dollars. Zero means no cap.
	EntryFeeCap decimal.Decimal `json:"entry_fee_cap"`

	// NetRentalYieldMin and NetRentalYieldMax are the inclusive target
	// yield range in percent.
	NetRentalYieldMin decimal.Decimal `json:"net_rental_yield_min"`
	NetRentalYieldMax decimal.Decimal `json:"net_rental_yield_max"`

	BalloonPeriodYears int `json:"balloon_period_years"`
}

// Config is the read-only financial configuration injected into a
// Calculator. Rates are fractions (0.08 = 8%).
type Config struct {
	AnnualInterestRate        decimal.Decimal `json:"annual_interest_rate"`
	AssignmentFee             decimal.Decimal `json:"assignment_fee"`
	ClosingCostPercentOfOffer decimal.Decimal `json:"closing_cost_percent_of_offer"`
	MonthlyMaintenanceRate    decimal.Decimal `json:"monthly_maintenance_rate"`
	MonthlyPropMgmtRate       decimal.Decimal `json:"monthly_prop_mgmt_rate"`
	AppreciationPerYear       decimal.Decimal `json:"appreciation_per_year"`
	MaxAmortizationYears      int             `json:"max_amortization_years"`
	RehabCost                 decimal.Decimal `json:"rehab_cost"`

	OwnerFavored OfferProfile `json:"owner_favored"`
	Balanced     OfferProfile `json:"balanced"`
	BuyerFavored OfferProfile `json:"buyer_favored"`
}

// Profile returns the profile for an offer type.
func (c Config) Profile(t model.OfferType) OfferProfile {
	switch t {
	case model.OwnerFavored:
		return c.OwnerFavored
	case model.Balanced:
		return c.Balanced
	case model.BuyerFavored:
		return c.BuyerFavored
	}
	panic(fmt.Sprintf("calculator: no profile for %s", t))
}

// DefaultConfig returns the literal defaults used when no configuration
// file overrides them.
func DefaultConfig() Config {
	return Config{
		AnnualInterestRate:        decimal.NewFromFloat(0.08),
		AssignmentFee:             decimal.NewFromInt(2000),
		ClosingCostPercentOfOffer: decimal.NewFromFloat(0.02),
		MonthlyMaintenanceRate:    decimal.NewFromFloat(0.1),
		MonthlyPropMgmtRate:       decimal.NewFromFloat(0.1),
		AppreciationPerYear:       decimal.NewFromFloat(0.03),
		MaxAmortizationYears:      30,
		RehabCost:                 decimal.NewFromInt(6000),

		OwnerFavored: OfferProfile{
			AppreciationProfitTarget: decimal.NewFromInt(30000),
			EntryFeeMaxPercent:       decimal.NewFromFloat(0.10),
			NetRentalYieldMin:        decimal.NewFromInt(8),
			NetRentalYieldMax:        decimal.NewFromInt(15),
			BalloonPeriodYears:       5,
		},
		Balanced: OfferProfile{
			AppreciationProfitTarget: decimal.NewFromInt(25000),
			EntryFeeMaxPercent:       decimal.NewFromFloat(0.08),
			NetRentalYieldMin:        decimal.NewFromInt(10),
			NetRentalYieldMax:        decimal.NewFromInt(18),
			BalloonPeriodYears:       7,
		},
		BuyerFavored: OfferProfile{
			AppreciationProfitTarget: decimal.NewFromInt(20000),
			EntryFeeMaxPercent:       decimal.NewFromFloat(0.05),
			NetRentalYieldMin:        decimal.NewFromInt(12),
			NetRentalYieldMax:        decimal.NewFromInt(25),
			BalloonPeriodYears:       10,
		},
	}
}

// Validate reports the first problem that would make calculations
// meaningless. It does not check anything that only degrades results.
func (c Config) Validate() error {
	nonNegative := []struct {
		name string
		v    decimal.Decimal
	}{
		{"annual_interest_rate", c.AnnualInterestRate},
		{"assignment_fee", c.AssignmentFee},
		{"closing_cost_percent_of_offer", c.ClosingCostPercentOfOffer},
		{"monthly_maintenance_rate", c.MonthlyMaintenanceRate},
		{"monthly_prop_mgmt_rate", c.MonthlyPropMgmtRate},
		{"appreciation_per_year", c.AppreciationPerYear},
		{"rehab_cost", c.RehabCost},
	}
	for _, r := range nonNegative {
		if r.v.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, r.name)
		}
	}

	if c.MaxAmortizationYears <= 0 || c.MaxAmortizationYears > MaxTermYears {
		return fmt.Errorf("%w: max_amortization_years must be in [1, %d]", ErrInvalidConfig, MaxTermYears)
	}

	// Rent-proportional expenses at or above 100% of rent would make cash
	// flow fall as rent rises.
	if c.MonthlyMaintenanceRate.Add(c.MonthlyPropMgmtRate).GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: maintenance and management rates must total less than 1", ErrInvalidConfig)
	}

	for _, t := range model.OfferTypes {
		if err := c.Profile(t).validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, t, err)
		}
	}
	return nil
}

func (p OfferProfile) validate() error {
	if !p.EntryFeeMaxPercent.IsPositive() || p.EntryFeeMaxPercent.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("entry_fee_max_percent must be in (0, 1]")
	}
	if p.EntryFeeCap.IsNegative() {
		return errors.New("entry_fee_cap must not be negative")
	}
	if p.NetRentalYieldMin.GreaterThan(p.NetRentalYieldMax) {
		return errors.New("net rental yield min exceeds max")
	}
	if p.BalloonPeriodYears <= 0 || p.BalloonPeriodYears > MaxTermYears {
		return fmt.Errorf("balloon_period_years must be in [1, %d]", MaxTermYears)
	}
	return nil
}

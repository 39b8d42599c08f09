// Package model defines the core domain types shared across the offer engine.
// Money is shopspring/decimal throughout, never float64.
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PropertyData is the financial input for one calculation. It is never
// mutated by the engine.
type PropertyData struct {
	ListedPrice        decimal.Decimal `json:"listed_price"`
	MonthlyRent        decimal.Decimal `json:"monthly_rent"`
	MonthlyPropertyTax decimal.Decimal `json:"monthly_property_tax"`
	MonthlyInsurance   decimal.Decimal `json:"monthly_insurance"`
	MonthlyHOAFee      decimal.Decimal `json:"monthly_hoa_fee"`
	MonthlyOtherFees   decimal.Decimal `json:"monthly_other_fees"`
}

// FixedExpenses returns the monthly expenses that do not scale with rent.
func (p PropertyData) FixedExpenses() decimal.Decimal {
	return p.MonthlyPropertyTax.
		Add(p.MonthlyInsurance).
		Add(p.MonthlyHOAFee).
		Add(p.MonthlyOtherFees)
}

// OfferType identifies one of the three seller-finance deal structures.
type OfferType int

const (
	OwnerFavored OfferType = iota
	Balanced
	BuyerFavored
)

// OfferTypes lists every offer type in declaration order. Calculations
// always return offers in this order.
var OfferTypes = []OfferType{OwnerFavored, Balanced, BuyerFavored}

func (t OfferType) String() string {
	switch t {
	case OwnerFavored:
		return "owner_favored"
	case Balanced:
		return "balanced"
	case BuyerFavored:
		return "buyer_favored"
	}
	return fmt.Sprintf("OfferType(%d)", int(t))
}

// ParseOfferType converts a wire name back into an OfferType.
func ParseOfferType(s string) (OfferType, error) {
	for _, t := range OfferTypes {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("model: unknown offer type %q", s)
}

func (t OfferType) MarshalText() ([]byte, error) {
	switch t {
	case OwnerFavored, Balanced, BuyerFavored:
		return []byte(t.String()), nil
	}
	return nil, fmt.Errorf("model: cannot marshal %s", t)
}

func (t *OfferType) UnmarshalText(b []byte) error {
	parsed, err := ParseOfferType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Viability is the classification attached to every offer.
type Viability string

const (
	NotViable Viability = "not_viable"
	Marginal  Viability = "marginal"
	Good      Viability = "good"
)

// Rank orders viabilities from worst (0) to best (2). Unknown values rank -1.
func (v Viability) Rank() int {
	switch v {
	case NotViable:
		return 0
	case Marginal:
		return 1
	case Good:
		return 2
	}
	return -1
}

// ParseViability validates a viability string from user input.
func ParseViability(s string) (Viability, error) {
	v := Viability(s)
	if v.Rank() < 0 {
		return "", fmt.Errorf("model: unknown viability %q", s)
	}
	return v, nil
}

// OfferResult is the complete derivation for one offer profile.
type OfferResult struct {
	OfferType       OfferType `json:"offer_type"`
	IsBuyable       bool      `json:"is_buyable"`
	UnbuyableReason string    `json:"unbuyable_reason,omitempty"`

	Viability        Viability `json:"viability"`
	ViabilityReasons []string  `json:"viability_reasons"`

	OfferPrice         decimal.Decimal `json:"offer_price"`
	RehabCost          decimal.Decimal `json:"rehab_cost"`
	EntryFeePercent    decimal.Decimal `json:"entry_fee_percent"` // % of listed price
	EntryFeeAmount     decimal.Decimal `json:"entry_fee_amount"`
	DownPayment        decimal.Decimal `json:"down_payment"`
	DownPaymentPercent decimal.Decimal `json:"down_payment_percent"`
	LoanAmount         decimal.Decimal `json:"loan_amount"`
	MonthlyPayment     decimal.Decimal `json:"monthly_payment"`

	// AmortizationYears is null when the payment never retires the loan.
	AmortizationYears decimal.NullDecimal `json:"amortization_years"`

	MonthlyCashFlow  decimal.Decimal `json:"monthly_cash_flow"`
	CashOnCashReturn decimal.Decimal `json:"cash_on_cash_return"` // percent
	NetRentalYield   decimal.Decimal `json:"net_rental_yield"`    // percent

	BalloonPeriodYears       int             `json:"balloon_period_years"`
	PrincipalPaidAtBalloon   decimal.Decimal `json:"principal_paid_at_balloon"`
	BalloonPayment           decimal.Decimal `json:"balloon_payment"`
	AppreciationProfit       decimal.Decimal `json:"appreciation_profit"`
	AppreciationProfitTarget decimal.Decimal `json:"appreciation_profit_target"`
	MeetsAppreciationTarget  bool            `json:"meets_appreciation_target"`
}

// BestViability returns the most favorable viability across offers.
// An empty slice yields NotViable.
func BestViability(offers []OfferResult) Viability {
	best := NotViable
	for _, o := range offers {
		if o.Viability.Rank() > best.Rank() {
			best = o.Viability
		}
	}
	return best
}

// Analysis is a saved calculation: the input, its three offers and a
// summary used for filtering. Analyses are immutable once written.
type Analysis struct {
	ID            string        `json:"id"`
	Address       string        `json:"address,omitempty"`
	Property      PropertyData  `json:"property"`
	Offers        []OfferResult `json:"offers"`
	BestViability Viability     `json:"best_viability"`
	CreatedAt     time.Time     `json:"created_at"`
}

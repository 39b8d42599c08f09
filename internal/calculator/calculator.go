// Package calculator derives seller-finance offer structures from a
// property's price, rent and expenses.
//
// A Calculator is stateless apart from its injected, read-only Config and
// is safe for concurrent use. Every offer is a pure function of
// (PropertyData, Config, OfferType): offers never share intermediate
// state, and a degenerate profile only marks its own offer unbuyable.
//
// Money is shopspring/decimal throughout, never float64.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sellerfin/offer-engine/internal/amortize"
	"github.com/sellerfin/offer-engine/internal/model"
)

// Viability thresholds. Cash flow is monthly dollars, yields are percent.
var (
	MinMonthlyCashFlow          = decimal.NewFromInt(100)
	HealthyMonthlyCashFlow      = decimal.NewFromInt(200)
	YieldTolerancePoints        = decimal.NewFromInt(5)
	MinDownPaymentPercent       = decimal.NewFromInt(3)
	MaxHealthyAmortizationYears = decimal.NewFromInt(35)
)

// Viability reasons.
const (
	ReasonNegativeDownPayment = "Negative down payment"
	ReasonCashFlowBelowMin    = "Cash flow below $100 minimum"
	ReasonYieldFarBelowMin    = "Net rental yield more than 5 points below minimum"

	ReasonLowDownPayment   = "Down payment below 3% of listed price"
	ReasonThinCashFlow     = "Cash flow between $100 and $200"
	ReasonYieldBelowMin    = "Net rental yield below target minimum"
	ReasonLongAmortization = "Amortization period exceeds 35 years"
	ReasonMeetsAllCriteria = "Meets all viability criteria"
)

// Buyability reasons, checked in this order.
const (
	UnbuyableNegativeDownPayment = "down payment is negative"
	UnbuyableNoPayment           = "monthly payment is not a positive finite amount"
	UnbuyableNoEntryFee          = "entry fee is zero"
)

// CurrencyScale is the number of decimal places on reported amounts.
const CurrencyScale int32 = 2

var (
	hundred       = decimal.NewFromInt(100)
	monthsPerYear = decimal.NewFromInt(12)
)

// Calculator runs the offer derivation pipeline for every profile in its
// Config.
type Calculator struct {
	cfg Config
}

// New validates cfg and returns a Calculator bound to it.
func New(cfg Config) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{cfg: cfg}, nil
}

// Config returns the configuration the calculator was built with.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Calculate derives one offer per profile, in model.OfferTypes order.
// The caller must have validated p (positive listed price and rent).
func (c *Calculator) Calculate(p model.PropertyData) []model.OfferResult {
	offers := make([]model.OfferResult, 0, len(model.OfferTypes))
	for _, t := range model.OfferTypes {
		offers = append(offers, c.Offer(p, t))
	}
	return offers
}

// Offer derives a single offer for profile t.
func (c *Calculator) Offer(p model.PropertyData, t model.OfferType) model.OfferResult {
	prof := c.cfg.Profile(t)
	price := p.ListedPrice
	rent := p.MonthlyRent

	// Entry fee: the profile's maximum share of price, optionally capped.
	entryFee := price.Mul(prof.EntryFeeMaxPercent)
	if prof.EntryFeeCap.IsPositive() && entryFee.GreaterThan(prof.EntryFeeCap) {
		entryFee = prof.EntryFeeCap
	}

	// Down payment is what remains of the entry fee after the assignment
	// fee and closing costs.
	closingCosts := price.Mul(c.cfg.ClosingCostPercentOfOffer)
	downPayment := entryFee.Sub(c.cfg.AssignmentFee).Sub(closingCosts)
	loanAmount := price.Sub(downPayment)

	loan, err := amortize.NewLoan(loanAmount, c.cfg.AnnualInterestRate, c.cfg.MaxAmortizationYears*12)
	if err != nil {
		// Unreachable: New rejects non-positive terms and negative rates.
		panic(fmt.Sprintf("calculator: %v", err))
	}
	payment := loan.Payment()

	nonDebt := p.FixedExpenses().
		Add(rent.Mul(c.cfg.MonthlyMaintenanceRate)).
		Add(rent.Mul(c.cfg.MonthlyPropMgmtRate))
	cashFlow := rent.Sub(payment.Add(nonDebt))
	annualCashFlow := cashFlow.Mul(monthsPerYear)

	amortYears, repaid := amortize.PayoffYears(loanAmount, payment)

	netYield := decimal.Zero
	if entryFee.IsPositive() {
		netYield = annualCashFlow.Div(entryFee).Mul(hundred)
	}
	cashOnCash := decimal.Zero
	if !downPayment.IsZero() {
		cashOnCash = annualCashFlow.Div(downPayment).Mul(hundred)
	}

	balloonMonths := prof.BalloonPeriodYears * 12
	principalPaid := loan.PrincipalPaid(balloonMonths)
	balloonDue := loan.RemainingBalance(balloonMonths)
	appreciated := amortize.Appreciate(price, c.cfg.AppreciationPerYear, prof.BalloonPeriodYears)
	appreciationProfit := appreciated.Sub(price).Sub(principalPaid)

	downPaymentPercent := percentOf(downPayment, price)

	m := derived{
		downPayment:        downPayment,
		downPaymentPercent: downPaymentPercent,
		entryFee:           entryFee,
		payment:            payment,
		cashFlow:           cashFlow,
		netYield:           netYield,
		amortYears:         amortYears,
		repaid:             repaid,
	}
	buyable, unbuyableReason := m.buyability()
	viability, reasons := m.classify(prof)

	result := model.OfferResult{
		OfferType:       t,
		IsBuyable:       buyable,
		UnbuyableReason: unbuyableReason,

		Viability:        viability,
		ViabilityReasons: reasons,

		OfferPrice:         money(price),
		RehabCost:          money(c.cfg.RehabCost),
		EntryFeePercent:    money(percentOf(entryFee, price)),
		EntryFeeAmount:     money(entryFee),
		DownPayment:        money(downPayment),
		DownPaymentPercent: money(downPaymentPercent),
		LoanAmount:         money(loanAmount),
		MonthlyPayment:     money(payment),

		MonthlyCashFlow:  money(cashFlow),
		CashOnCashReturn: money(cashOnCash),
		NetRentalYield:   money(netYield),

		BalloonPeriodYears:       prof.BalloonPeriodYears,
		PrincipalPaidAtBalloon:   money(principalPaid),
		BalloonPayment:           money(balloonDue),
		AppreciationProfit:       money(appreciationProfit),
		AppreciationProfitTarget: money(prof.AppreciationProfitTarget),
		MeetsAppreciationTarget:  appreciationProfit.GreaterThanOrEqual(prof.AppreciationProfitTarget),
	}
	if repaid {
		result.AmortizationYears = decimal.NewNullDecimal(money(amortYears))
	}
	return result
}

// derived holds the unrounded values the buyability and viability rules
// are evaluated against.
type derived struct {
	downPayment        decimal.Decimal
	downPaymentPercent decimal.Decimal
	entryFee           decimal.Decimal
	payment            decimal.Decimal
	cashFlow           decimal.Decimal
	netYield           decimal.Decimal
	amortYears         decimal.Decimal
	repaid             bool
}

func (m derived) buyability() (bool, string) {
	switch {
	case m.downPayment.IsNegative():
		return false, UnbuyableNegativeDownPayment
	case !m.payment.IsPositive():
		return false, UnbuyableNoPayment
	case !m.entryFee.IsPositive():
		return false, UnbuyableNoEntryFee
	}
	return true, ""
}

// classify applies the viability rules. Not-viable rules are ordered and
// the first match wins; marginal rules all run and accumulate.
func (m derived) classify(prof OfferProfile) (model.Viability, []string) {
	yieldFloor := prof.NetRentalYieldMin.Sub(YieldTolerancePoints)

	switch {
	case m.downPayment.IsNegative():
		return model.NotViable, []string{ReasonNegativeDownPayment}
	case m.cashFlow.LessThan(MinMonthlyCashFlow):
		return model.NotViable, []string{ReasonCashFlowBelowMin}
	case m.netYield.LessThan(yieldFloor):
		return model.NotViable, []string{ReasonYieldFarBelowMin}
	}

	var warnings []string
	if m.downPaymentPercent.LessThan(MinDownPaymentPercent) {
		warnings = append(warnings, ReasonLowDownPayment)
	}
	if m.cashFlow.LessThan(HealthyMonthlyCashFlow) {
		warnings = append(warnings, ReasonThinCashFlow)
	}
	if m.netYield.LessThan(prof.NetRentalYieldMin) {
		warnings = append(warnings, ReasonYieldBelowMin)
	}
	if !m.repaid || m.amortYears.GreaterThan(MaxHealthyAmortizationYears) {
		warnings = append(warnings, ReasonLongAmortization)
	}

	if len(warnings) > 0 {
		return model.Marginal, warnings
	}
	return model.Good, []string{ReasonMeetsAllCriteria}
}

// percentOf returns part / whole * 100, or zero when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

func money(v decimal.Decimal) decimal.Decimal {
	return v.Round(CurrencyScale)
}

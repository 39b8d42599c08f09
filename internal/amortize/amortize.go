// Package amortize implements closed-form fixed-rate loan mathematics for
// seller-financed deals: level payments, remaining balances at a balloon
// date, and compound appreciation.
//
// Money is shopspring/decimal throughout, never float64.
// Exponentiation is done in float64 and results are immediately converted
// back to decimal and rounded to Scale places.
package amortize

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidTerm is returned when the loan term is not positive.
	ErrInvalidTerm = errors.New("amortize: term must be at least one month")

	// ErrNegativeRate is returned when the annual interest rate is negative.
	ErrNegativeRate = errors.New("amortize: interest rate must not be negative")

	// Scale is the number of decimal places kept on computed amounts.
	Scale int32 = 8

	monthsPerYear = decimal.NewFromInt(12)
)

// Loan is a fully amortizing fixed-rate loan. It is immutable and holds no
// schedule state; balances are computed on demand.
type Loan struct {
	principal  decimal.Decimal
	annualRate decimal.Decimal
	months     int
}

// NewLoan creates a loan of principal at annualRate (0.08 = 8%) repaid over
// months level payments. A zero or negative principal is allowed and yields
// a zero or negative payment; callers decide whether that is buyable.
func NewLoan(principal, annualRate decimal.Decimal, months int) (*Loan, error) {
	if months <= 0 {
		return nil, ErrInvalidTerm
	}
	if annualRate.IsNegative() {
		return nil, ErrNegativeRate
	}
	return &Loan{principal: principal, annualRate: annualRate, months: months}, nil
}

// Principal returns the original loan amount.
func (l *Loan) Principal() decimal.Decimal { return l.principal }

// Months returns the full amortization term.
func (l *Loan) Months() int { return l.months }

// MonthlyRate returns the periodic rate annualRate / 12.
func (l *Loan) MonthlyRate() decimal.Decimal {
	return l.annualRate.Div(monthsPerYear)
}

// Payment computes the level monthly payment:
//
//	M = P * r / (1 - (1+r)^-n)
//
// With r == 0 the loan is repaid straight-line: M = P / n.
func (l *Loan) Payment() decimal.Decimal {
	return decimal.NewFromFloat(l.paymentFloat()).Round(Scale)
}

func (l *Loan) paymentFloat() float64 {
	p := l.principal.InexactFloat64()
	r := l.MonthlyRate().InexactFloat64()
	n := float64(l.months)

	if r == 0 {
		return p / n
	}
	return p * r / (1 - math.Pow(1+r, -n))
}

// RemainingBalance returns the outstanding principal after k payments:
//
//	B(k) = P * (1+r)^k - M * ((1+r)^k - 1) / r
//
// k is clamped to [0, n]; the balance never goes below zero.
func (l *Loan) RemainingBalance(k int) decimal.Decimal {
	if k < 0 {
		k = 0
	}
	if k >= l.months {
		return decimal.Zero
	}

	p := l.principal.InexactFloat64()
	r := l.MonthlyRate().InexactFloat64()
	m := l.paymentFloat()

	var bal float64
	if r == 0 {
		bal = p - m*float64(k)
	} else {
		growth := math.Pow(1+r, float64(k))
		bal = p*growth - m*(growth-1)/r
	}

	// Rounding noise near the end of the term can dip just below zero.
	if p > 0 && bal < 0 {
		bal = 0
	}
	return decimal.NewFromFloat(bal).Round(Scale)
}

// PrincipalPaid returns the principal retired by the first k payments.
func (l *Loan) PrincipalPaid(k int) decimal.Decimal {
	return l.principal.Sub(l.RemainingBalance(k))
}

// InterestPaid returns the interest portion of the first k payments.
func (l *Loan) InterestPaid(k int) decimal.Decimal {
	if k < 0 {
		k = 0
	}
	if k > l.months {
		k = l.months
	}
	total := l.Payment().Mul(decimal.NewFromInt(int64(k)))
	return total.Sub(l.PrincipalPaid(k))
}

// PrincipalFor is the inverse of Payment: the loan amount that a level
// payment retires over months at annualRate.
//
//	P = M * (1 - (1+r)^-n) / r
func PrincipalFor(payment, annualRate decimal.Decimal, months int) (decimal.Decimal, error) {
	if months <= 0 {
		return decimal.Zero, ErrInvalidTerm
	}
	if annualRate.IsNegative() {
		return decimal.Zero, ErrNegativeRate
	}

	m := payment.InexactFloat64()
	r := annualRate.Div(monthsPerYear).InexactFloat64()
	n := float64(months)

	if r == 0 {
		return decimal.NewFromFloat(m * n).Round(Scale), nil
	}
	return decimal.NewFromFloat(m * (1 - math.Pow(1+r, -n)) / r).Round(Scale), nil
}

// PayoffYears returns how many years payment takes to retire principal
// without interest: principal / (payment * 12). ok is false when payment
// is not positive, in which case the loan is never repaid.
func PayoffYears(principal, payment decimal.Decimal) (years decimal.Decimal, ok bool) {
	if !payment.IsPositive() {
		return decimal.Zero, false
	}
	return principal.Div(payment.Mul(monthsPerYear)).Round(Scale), true
}

// Appreciate compounds value annually for years at annualRate:
//
//	V = value * (1 + rate)^years
func Appreciate(value, annualRate decimal.Decimal, years int) decimal.Decimal {
	if years <= 0 {
		return value
	}
	growth := math.Pow(1+annualRate.InexactFloat64(), float64(years))
	return value.Mul(decimal.NewFromFloat(growth)).Round(Scale)
}

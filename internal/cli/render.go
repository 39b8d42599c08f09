package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sellerfin/offer-engine/internal/calculator"
	"github.com/sellerfin/offer-engine/internal/model"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	viabilityStyles = map[model.Viability]lipgloss.Style{
		model.Good:      lipgloss.NewStyle().Foreground(ColorGreen).Bold(true),
		model.Marginal:  lipgloss.NewStyle().Foreground(ColorOrange),
		model.NotViable: lipgloss.NewStyle().Foreground(ColorRed),
	}
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows. The first
// column is left-aligned; the rest are right-aligned.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = max(widths[i], lipgloss.Width(h))
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder

	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right))
		b.WriteString("\n")
	}

	row := func(cells []string, style lipgloss.Style) {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if i == 0 {
				b.WriteString(style.Render(" " + cell + pad + " "))
			} else {
				b.WriteString(style.Render(" " + pad + cell + " "))
			}
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		row(t.Headers, headerStyle)
		rule("├", "┼", "┤")
	}
	for _, r := range t.Rows {
		if len(r) == 1 && r[0] == "---" {
			rule("├", "┼", "┤")
			continue
		}
		row(r, valueStyle)
	}
	rule("╰", "┴", "╯")

	return b.String()
}

// RenderViability colors a viability label.
func RenderViability(v model.Viability) string {
	style, ok := viabilityStyles[v]
	if !ok {
		return string(v)
	}
	return style.Render(string(v))
}

// OffersTable lays the offers out side by side, one column per profile.
func OffersTable(offers []model.OfferResult) Table {
	headers := []string{"Metric"}
	for _, o := range offers {
		headers = append(headers, o.OfferType.String())
	}

	metric := func(name string, f func(o model.OfferResult) string) []string {
		r := []string{name}
		for _, o := range offers {
			r = append(r, f(o))
		}
		return r
	}

	rows := [][]string{
		metric("Offer price", func(o model.OfferResult) string { return FormatMoney(o.OfferPrice) }),
		metric("Entry fee", func(o model.OfferResult) string {
			return fmt.Sprintf("%s (%s)", FormatMoney(o.EntryFeeAmount), FormatPercent(o.EntryFeePercent))
		}),
		metric("Down payment", func(o model.OfferResult) string {
			return fmt.Sprintf("%s (%s)", FormatMoney(o.DownPayment), FormatPercent(o.DownPaymentPercent))
		}),
		metric("Loan amount", func(o model.OfferResult) string { return FormatMoney(o.LoanAmount) }),
		metric("Monthly payment", func(o model.OfferResult) string { return FormatMoney(o.MonthlyPayment) }),
		metric("Amortization", func(o model.OfferResult) string { return FormatYears(o.AmortizationYears) }),
		{"---"},
		metric("Monthly cash flow", func(o model.OfferResult) string { return FormatMoney(o.MonthlyCashFlow) }),
		metric("Net rental yield", func(o model.OfferResult) string { return FormatPercent(o.NetRentalYield) }),
		metric("Cash on cash", func(o model.OfferResult) string { return FormatPercent(o.CashOnCashReturn) }),
		{"---"},
		metric("Balloon", func(o model.OfferResult) string { return fmt.Sprintf("%d yrs", o.BalloonPeriodYears) }),
		metric("Principal paid", func(o model.OfferResult) string { return FormatMoney(o.PrincipalPaidAtBalloon) }),
		metric("Balloon payment", func(o model.OfferResult) string { return FormatMoney(o.BalloonPayment) }),
		metric("Appreciation profit", func(o model.OfferResult) string { return FormatMoney(o.AppreciationProfit) }),
		metric("Meets target", func(o model.OfferResult) string {
			return fmt.Sprintf("%s (%s)", FormatBool(o.MeetsAppreciationTarget), FormatMoney(o.AppreciationProfitTarget))
		}),
		{"---"},
		metric("Buyable", func(o model.OfferResult) string { return FormatBool(o.IsBuyable) }),
		metric("Viability", func(o model.OfferResult) string { return RenderViability(o.Viability) }),
	}

	return Table{Headers: headers, Rows: rows}
}

// RenderOffers renders the comparison table followed by each offer's
// viability reasons.
func RenderOffers(offers []model.OfferResult) string {
	var b strings.Builder
	b.WriteString(RenderTable(OffersTable(offers)))

	for _, o := range offers {
		b.WriteString("\n  ")
		b.WriteString(headerStyle.Render(o.OfferType.String()))
		b.WriteString(" ")
		b.WriteString(RenderViability(o.Viability))
		b.WriteString("\n")
		if !o.IsBuyable {
			b.WriteString(mutedStyle.Render("    unbuyable: " + o.UnbuyableReason))
			b.WriteString("\n")
		}
		for _, r := range o.ViabilityReasons {
			b.WriteString(mutedStyle.Render("    - " + r))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// HistoryTable lists saved analyses, newest first.
func HistoryTable(analyses []model.Analysis) Table {
	rows := make([][]string, 0, len(analyses))
	for _, a := range analyses {
		address := a.Address
		if address == "" {
			address = "-"
		}
		rows = append(rows, []string{
			a.CreatedAt.Local().Format("2006-01-02 15:04"),
			address,
			FormatMoney(a.Property.ListedPrice),
			FormatMoney(a.Property.MonthlyRent),
			RenderViability(a.BestViability),
			a.ID[:min(8, len(a.ID))],
		})
	}
	return Table{
		Headers: []string{"Saved", "Address", "Price", "Rent", "Best", "ID"},
		Rows:    rows,
	}
}

// ProfilesTable summarizes the configured offer profiles.
func ProfilesTable(cfg calculator.Config) Table {
	rows := make([][]string, 0, len(model.OfferTypes))
	for _, t := range model.OfferTypes {
		p := cfg.Profile(t)
		feeCap := "none"
		if p.EntryFeeCap.IsPositive() {
			feeCap = FormatMoney(p.EntryFeeCap)
		}
		rows = append(rows, []string{
			t.String(),
			FormatPercent(p.EntryFeeMaxPercent.Shift(2)),
			feeCap,
			fmt.Sprintf("%s-%s%%", p.NetRentalYieldMin.String(), p.NetRentalYieldMax.String()),
			fmt.Sprintf("%d yrs", p.BalloonPeriodYears),
			FormatMoney(p.AppreciationProfitTarget),
		})
	}
	return Table{
		Headers: []string{"Profile", "Entry fee", "Fee cap", "Yield target", "Balloon", "Profit target"},
		Rows:    rows,
	}
}

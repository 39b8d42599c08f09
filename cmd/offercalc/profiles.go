package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sellerfin/offer-engine/internal/cli"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Show the active offer profiles and financial assumptions",
	RunE:  runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(_ *cobra.Command, _ []string) error {
	_, calc, err := loadCalculator()
	if err != nil {
		return err
	}
	cfg := calc.Config()

	if flagJSON {
		return printJSON(cfg)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("OFFER PROFILES"))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.ProfilesTable(cfg)))

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Assumptions",
		Headers: []string{"Setting", "Value"},
		Rows: [][]string{
			{"Annual interest rate", cli.FormatPercent(cfg.AnnualInterestRate.Shift(2))},
			{"Amortization term", fmt.Sprintf("%d yrs", cfg.MaxAmortizationYears)},
			{"Assignment fee", cli.FormatMoney(cfg.AssignmentFee)},
			{"Closing costs", cli.FormatPercent(cfg.ClosingCostPercentOfOffer.Shift(2)) + " of price"},
			{"Maintenance", cli.FormatPercent(cfg.MonthlyMaintenanceRate.Shift(2)) + " of rent"},
			{"Property management", cli.FormatPercent(cfg.MonthlyPropMgmtRate.Shift(2)) + " of rent"},
			{"Appreciation", cli.FormatPercent(cfg.AppreciationPerYear.Shift(2)) + " per year"},
			{"Rehab estimate", cli.FormatMoney(cfg.RehabCost)},
		},
	}))
	return nil
}

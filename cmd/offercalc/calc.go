package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sellerfin/offer-engine/internal/cli"
	"github.com/sellerfin/offer-engine/internal/model"
	"github.com/sellerfin/offer-engine/internal/offer"
	"github.com/sellerfin/offer-engine/internal/property"
)

// amountFlags holds the raw property flags; amounts accept "$87,000" or "87k".
type amountFlags struct {
	price, rent, tax, insurance, hoa, other string
}

var (
	calcAmounts amountFlags
	flagSave    bool
	flagAddress string
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Calculate the three offers for a property",
	Example: "  offercalc calc --price 87k --rent 1150 --tax 95 --insurance 80 --other 150\n" +
		"  offercalc calc --price '$250,000' --rent 2100 --save --address '12 Oak Ave'",
	RunE: runCalc,
}

func init() {
	f := calcCmd.Flags()
	f.StringVar(&calcAmounts.price, "price", "", "Listed price")
	f.StringVar(&calcAmounts.rent, "rent", "", "Monthly rent")
	f.StringVar(&calcAmounts.tax, "tax", "0", "Monthly property tax")
	f.StringVar(&calcAmounts.insurance, "insurance", "0", "Monthly insurance")
	f.StringVar(&calcAmounts.hoa, "hoa", "0", "Monthly HOA fee")
	f.StringVar(&calcAmounts.other, "other", "0", "Other monthly fees")
	f.BoolVar(&flagSave, "save", false, "Save the analysis to the local history")
	f.StringVar(&flagAddress, "address", "", "Address label for a saved analysis")
	_ = calcCmd.MarkFlagRequired("price")
	_ = calcCmd.MarkFlagRequired("rent")

	rootCmd.AddCommand(calcCmd)
}

// property parses every flag, naming the first one that fails.
func (a amountFlags) property() (model.PropertyData, error) {
	var p model.PropertyData
	fields := []struct {
		flag string
		raw  string
		dst  *decimal.Decimal
	}{
		{"price", a.price, &p.ListedPrice},
		{"rent", a.rent, &p.MonthlyRent},
		{"tax", a.tax, &p.MonthlyPropertyTax},
		{"insurance", a.insurance, &p.MonthlyInsurance},
		{"hoa", a.hoa, &p.MonthlyHOAFee},
		{"other", a.other, &p.MonthlyOtherFees},
	}
	for _, f := range fields {
		v, err := property.ParseAmount(f.raw)
		if err != nil {
			return model.PropertyData{}, fmt.Errorf("--%s: %w", f.flag, err)
		}
		*f.dst = v
	}
	return p, nil
}

func runCalc(cmd *cobra.Command, _ []string) error {
	cfg, calc, err := loadCalculator()
	if err != nil {
		return err
	}

	p, err := calcAmounts.property()
	if err != nil {
		return err
	}

	var offers []model.OfferResult
	var saved *model.Analysis

	if flagSave {
		st, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		saved, err = offer.NewService(calc, st, nil).Analyze(cmd.Context(), flagAddress, p)
		if err != nil {
			return err
		}
		offers = saved.Offers
	} else {
		if err := property.Validate(p); err != nil {
			return err
		}
		offers = calc.Calculate(p)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if saved != nil {
			return enc.Encode(saved)
		}
		return enc.Encode(offer.CalculateResponse{Offers: offers})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("OFFERS  %s listed, %s/mo rent",
		cli.FormatMoney(p.ListedPrice), cli.FormatMoney(p.MonthlyRent))))
	fmt.Println()
	fmt.Print(cli.RenderOffers(offers))
	if saved != nil {
		fmt.Printf("\n  Saved analysis %s\n", saved.ID)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sellerfin/offer-engine/internal/cli"
	"github.com/sellerfin/offer-engine/internal/model"
	"github.com/sellerfin/offer-engine/internal/store"
)

var (
	flagViability string
	flagLimit     int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved analyses, newest first",
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the offers of a saved analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	historyCmd.Flags().StringVar(&flagViability, "viability", "", "Only analyses whose best offer is not_viable, marginal or good")
	historyCmd.Flags().IntVarP(&flagLimit, "limit", "l", store.DefaultListLimit, "Maximum analyses to list")

	historyCmd.AddCommand(historyShowCmd, historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	f := store.ListFilter{Limit: flagLimit}
	if flagViability != "" {
		v, err := model.ParseViability(flagViability)
		if err != nil {
			return err
		}
		f.Viability = v
	}

	cfg, _, err := loadCalculator()
	if err != nil {
		return err
	}
	st, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	analyses, err := st.ListAnalyses(cmd.Context(), f)
	if err != nil {
		return err
	}

	if flagJSON {
		if analyses == nil {
			analyses = []model.Analysis{}
		}
		return printJSON(analyses)
	}
	if len(analyses) == 0 {
		fmt.Println("\n  No saved analyses.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("SAVED ANALYSES"))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.HistoryTable(analyses)))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadCalculator()
	if err != nil {
		return err
	}
	st, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := st.GetAnalysis(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(a)
	}

	title := a.Address
	if title == "" {
		title = a.ID
	}
	fmt.Println()
	fmt.Println(cli.RenderTitle(title))
	fmt.Println()
	fmt.Print(cli.RenderOffers(a.Offers))
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadCalculator()
	if err != nil {
		return err
	}
	st, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteAnalysis(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("  Deleted analysis %s\n", args[0])
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

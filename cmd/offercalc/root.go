package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sellerfin/offer-engine/internal/calculator"
	"github.com/sellerfin/offer-engine/internal/config"
	"github.com/sellerfin/offer-engine/internal/store"
)

var (
	flagConfig string
	flagDB     string
	flagJSON   bool
)

var rootCmd = &cobra.Command{
	Use:   "offercalc",
	Short: "Seller-finance offer calculator",
	Long: "Derive owner-favored, balanced and buyer-favored seller-finance offers\n" +
		"for a rental property and keep a local history of analyses.",
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (YAML or TOML)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite history database (default: store.sqlite_path or ~/.local/share/sellerfin/analyses.db)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
}

// loadCalculator is the shared config path used by all commands.
func loadCalculator() (*config.Config, *calculator.Calculator, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	calcCfg, err := cfg.Calculator()
	if err != nil {
		return nil, nil, err
	}
	calc, err := calculator.New(calcCfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, calc, nil
}

// openHistory opens the SQLite history, preferring --db, then the
// configured path, then the per-user default.
func openHistory(cfg *config.Config) (*store.SQLiteStore, error) {
	path := flagDB
	if path == "" {
		path = cfg.Store.SQLitePath
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, ".local", "share", "sellerfin", "analyses.db")
	}
	return store.OpenSQLite(path)
}

// Package config loads process configuration for the offer engine.
//
// Precedence (highest to lowest):
//  1. Conventional variables: PORT, DATABASE_URL, REDIS_URL
//  2. Prefixed environment variables (SELLERFIN_SERVER_PORT -> server.port)
//  3. Config file (YAML or TOML, chosen by extension)
//  4. Embedded defaults (defaults.yaml)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerfin/offer-engine/internal/calculator"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Config holds the complete process configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Throttle ThrottleConfig `koanf:"throttle"`
	Log      LogConfig      `koanf:"log"`
	Finance  FinanceConfig  `koanf:"finance"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigin      string        `koanf:"cors_origin"`
}

// StoreConfig selects the persistence backend. PostgreSQL wins when
// DatabaseURL is set, then SQLite, then the in-memory store.
type StoreConfig struct {
	DatabaseURL string        `koanf:"database_url"`
	RedisURL    string        `koanf:"redis_url"`
	CacheTTL    time.Duration `koanf:"cache_ttl"`
	SQLitePath  string        `koanf:"sqlite_path"`
}

// ThrottleConfig holds per-client rate limits for the API.
type ThrottleConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`

	// TrustProxyHeaders keys clients on X-Real-IP / X-Forwarded-For.
	// Leave off unless a proxy in front overwrites those headers.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `koanf:"level"`
}

// FinanceConfig mirrors calculator.Config in file-friendly types.
type FinanceConfig struct {
	AnnualInterestRate        float64 `koanf:"annual_interest_rate"`
	AssignmentFee             float64 `koanf:"assignment_fee"`
	ClosingCostPercentOfOffer float64 `koanf:"closing_cost_percent_of_offer"`
	MonthlyMaintenanceRate    float64 `koanf:"monthly_maintenance_rate"`
	MonthlyPropMgmtRate       float64 `koanf:"monthly_prop_mgmt_rate"`
	AppreciationPerYear       float64 `koanf:"appreciation_per_year"`
	MaxAmortizationYears      int     `koanf:"max_amortization_years"`
	RehabCost                 float64 `koanf:"rehab_cost"`

	OwnerFavored ProfileConfig `koanf:"owner_favored"`
	Balanced     ProfileConfig `koanf:"balanced"`
	BuyerFavored ProfileConfig `koanf:"buyer_favored"`
}

// ProfileConfig mirrors calculator.OfferProfile.
type ProfileConfig struct {
	AppreciationProfitTarget float64 `koanf:"appreciation_profit_target"`
	EntryFeeMaxPercent       float64 `koanf:"entry_fee_max_percent"`
	EntryFeeCap              float64 `koanf:"entry_fee_cap"`
	NetRentalYieldMin        float64 `koanf:"net_rental_yield_min"`
	NetRentalYieldMax        float64 `koanf:"net_rental_yield_max"`
	BalloonPeriodYears       int     `koanf:"balloon_period_years"`
}

// Validate checks everything except the finance section, which
// Calculator validates.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("%w: server.request_timeout must be positive", ErrInvalid)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: server.shutdown_timeout must be positive", ErrInvalid)
	}
	if c.Store.CacheTTL <= 0 {
		return fmt.Errorf("%w: store.cache_ttl must be positive", ErrInvalid)
	}
	if c.Throttle.Enabled && (!finite(c.Throttle.RPS) || c.Throttle.RPS <= 0 || c.Throttle.Burst <= 0) {
		return fmt.Errorf("%w: throttle.rps and throttle.burst must be positive", ErrInvalid)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Log.Level ("debug", "info", "warn", "error").
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	return lvl, nil
}

// Calculator converts the finance section to a validated calculator.Config.
func (c *Config) Calculator() (calculator.Config, error) {
	f := c.Finance
	if err := f.checkFinite(); err != nil {
		return calculator.Config{}, err
	}
	cc := calculator.Config{
		AnnualInterestRate:        decimal.NewFromFloat(f.AnnualInterestRate),
		AssignmentFee:             decimal.NewFromFloat(f.AssignmentFee),
		ClosingCostPercentOfOffer: decimal.NewFromFloat(f.ClosingCostPercentOfOffer),
		MonthlyMaintenanceRate:    decimal.NewFromFloat(f.MonthlyMaintenanceRate),
		MonthlyPropMgmtRate:       decimal.NewFromFloat(f.MonthlyPropMgmtRate),
		AppreciationPerYear:       decimal.NewFromFloat(f.AppreciationPerYear),
		MaxAmortizationYears:      f.MaxAmortizationYears,
		RehabCost:                 decimal.NewFromFloat(f.RehabCost),

		OwnerFavored: f.OwnerFavored.profile(),
		Balanced:     f.Balanced.profile(),
		BuyerFavored: f.BuyerFavored.profile(),
	}
	if err := cc.Validate(); err != nil {
		return calculator.Config{}, err
	}
	return cc, nil
}

func (p ProfileConfig) profile() calculator.OfferProfile {
	return calculator.OfferProfile{
		AppreciationProfitTarget: decimal.NewFromFloat(p.AppreciationProfitTarget),
		EntryFeeMaxPercent:       decimal.NewFromFloat(p.EntryFeeMaxPercent),
		EntryFeeCap:              decimal.NewFromFloat(p.EntryFeeCap),
		NetRentalYieldMin:        decimal.NewFromFloat(p.NetRentalYieldMin),
		NetRentalYieldMax:        decimal.NewFromFloat(p.NetRentalYieldMax),
		BalloonPeriodYears:       p.BalloonPeriodYears,
	}
}

// checkFinite rejects NaN and infinities, which YAML and strconv both
// accept but decimal cannot represent.
func (f FinanceConfig) checkFinite() error {
	type field struct {
		key string
		v   float64
	}
	fields := []field{
		{"finance.annual_interest_rate", f.AnnualInterestRate},
		{"finance.assignment_fee", f.AssignmentFee},
		{"finance.closing_cost_percent_of_offer", f.ClosingCostPercentOfOffer},
		{"finance.monthly_maintenance_rate", f.MonthlyMaintenanceRate},
		{"finance.monthly_prop_mgmt_rate", f.MonthlyPropMgmtRate},
		{"finance.appreciation_per_year", f.AppreciationPerYear},
		{"finance.rehab_cost", f.RehabCost},
	}
	profiles := []struct {
		name string
		p    ProfileConfig
	}{
		{"owner_favored", f.OwnerFavored},
		{"balanced", f.Balanced},
		{"buyer_favored", f.BuyerFavored},
	}
	for _, pr := range profiles {
		prefix := "finance." + pr.name + "."
		fields = append(fields,
			field{prefix + "appreciation_profit_target", pr.p.AppreciationProfitTarget},
			field{prefix + "entry_fee_max_percent", pr.p.EntryFeeMaxPercent},
			field{prefix + "entry_fee_cap", pr.p.EntryFeeCap},
			field{prefix + "net_rental_yield_min", pr.p.NetRentalYieldMin},
			field{prefix + "net_rental_yield_max", pr.p.NetRentalYieldMax},
		)
	}
	for _, fl := range fields {
		if !finite(fl.v) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalid, fl.key)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

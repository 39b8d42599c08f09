package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerfin/offer-engine/internal/calculator"
)

// clearConventionalEnv keeps the host environment from leaking into tests.
func clearConventionalEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"PORT", "DATABASE_URL", "REDIS_URL"} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearConventionalEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.Store.CacheTTL)
	assert.True(t, cfg.Throttle.Enabled)
	assert.Equal(t, 20, cfg.Throttle.Burst)
	assert.False(t, cfg.Throttle.TrustProxyHeaders)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_DefaultsMatchCalculatorDefaults(t *testing.T) {
	clearConventionalEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	got, err := cfg.Calculator()
	require.NoError(t, err)

	gotJSON, err := json.Marshal(got)
	require.NoError(t, err)
	wantJSON, err := json.Marshal(calculator.DefaultConfig())
	require.NoError(t, err)

	assert.JSONEq(t, string(wantJSON), string(gotJSON))
}

func TestLoad_YAMLFile(t *testing.T) {
	clearConventionalEnv(t)

	path := writeFile(t, "sellerfin.yaml", `
server:
  port: 9191
finance:
  annual_interest_rate: 0.065
  owner_favored:
    entry_fee_cap: 7500
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 0.065, cfg.Finance.AnnualInterestRate)
	assert.Equal(t, 7500.0, cfg.Finance.OwnerFavored.EntryFeeCap)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.10, cfg.Finance.OwnerFavored.EntryFeeMaxPercent)
	assert.Equal(t, 7, cfg.Finance.Balanced.BalloonPeriodYears)
}

func TestLoad_TOMLFile(t *testing.T) {
	clearConventionalEnv(t)

	path := writeFile(t, "sellerfin.toml", `
[server]
port = 7070
request_timeout = "5s"

[finance]
rehab_cost = 8000

[finance.buyer_favored]
balloon_period_years = 12
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 8000.0, cfg.Finance.RehabCost)
	assert.Equal(t, 12, cfg.Finance.BuyerFavored.BalloonPeriodYears)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearConventionalEnv(t)
	path := writeFile(t, "sellerfin.yaml", "server:\n  port: 9191\n")

	t.Setenv("SELLERFIN_SERVER_PORT", "9292")
	t.Setenv("SELLERFIN_THROTTLE_RPS", "2.5")
	t.Setenv("SELLERFIN_THROTTLE_TRUST_PROXY_HEADERS", "true")
	t.Setenv("SELLERFIN_FINANCE_ASSIGNMENT_FEE", "2500")
	t.Setenv("SELLERFIN_FINANCE_BALANCED_ENTRY_FEE_MAX_PERCENT", "0.07")
	t.Setenv("SELLERFIN_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9292, cfg.Server.Port)
	assert.Equal(t, 2.5, cfg.Throttle.RPS)
	assert.True(t, cfg.Throttle.TrustProxyHeaders)
	assert.Equal(t, 2500.0, cfg.Finance.AssignmentFee)
	assert.Equal(t, 0.07, cfg.Finance.Balanced.EntryFeeMaxPercent)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestLoad_ConventionalVariablesWin(t *testing.T) {
	t.Setenv("SELLERFIN_SERVER_PORT", "9292")
	t.Setenv("PORT", "3000")
	t.Setenv("DATABASE_URL", "postgres://localhost/sellerfin")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/sellerfin", cfg.Store.DatabaseURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Store.RedisURL)
}

func TestLoad_Errors(t *testing.T) {
	clearConventionalEnv(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := Load(writeFile(t, "sellerfin.ini", "port=1"))
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("bad port", func(t *testing.T) {
		_, err := Load(writeFile(t, "c.yaml", "server:\n  port: 70000\n"))
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("bad log level", func(t *testing.T) {
		_, err := Load(writeFile(t, "c.yaml", "log:\n  level: chatty\n"))
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("invalid finance", func(t *testing.T) {
		_, err := Load(writeFile(t, "c.yaml", "finance:\n  max_amortization_years: 0\n"))
		assert.ErrorIs(t, err, calculator.ErrInvalidConfig)
	})

	t.Run("amortization term overflows months", func(t *testing.T) {
		t.Setenv("SELLERFIN_FINANCE_MAX_AMORTIZATION_YEARS", "1537228672809129302")
		_, err := Load("")
		assert.ErrorIs(t, err, calculator.ErrInvalidConfig)
	})

	t.Run("balloon past limit", func(t *testing.T) {
		_, err := Load(writeFile(t, "c.yaml", "finance:\n  owner_favored:\n    balloon_period_years: 101\n"))
		assert.ErrorIs(t, err, calculator.ErrInvalidConfig)
	})

	t.Run("throttle without rate", func(t *testing.T) {
		_, err := Load(writeFile(t, "c.yaml", "throttle:\n  rps: 0\n"))
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestLoad_NonFiniteFinanceRejected(t *testing.T) {
	clearConventionalEnv(t)

	envs := map[string]string{
		"SELLERFIN_FINANCE_ANNUAL_INTEREST_RATE":               "NaN",
		"SELLERFIN_FINANCE_ASSIGNMENT_FEE":                     "Inf",
		"SELLERFIN_FINANCE_BALANCED_ENTRY_FEE_CAP":             "-Inf",
		"SELLERFIN_FINANCE_OWNER_FAVORED_ENTRY_FEE_CAP":        "+Inf",
		"SELLERFIN_FINANCE_BUYER_FAVORED_NET_RENTAL_YIELD_MAX": "NaN",
	}
	for name, value := range envs {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, value)
			var err error
			require.NotPanics(t, func() { _, err = Load("") })
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), envKey(name))
		})
	}

	t.Run("yaml infinity", func(t *testing.T) {
		var err error
		require.NotPanics(t, func() {
			_, err = Load(writeFile(t, "c.yaml", "finance:\n  rehab_cost: .inf\n"))
		})
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("throttle rate", func(t *testing.T) {
		t.Setenv("SELLERFIN_THROTTLE_RPS", "NaN")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"SELLERFIN_SERVER_PORT":                                "server.port",
		"SELLERFIN_STORE_SQLITE_PATH":                          "store.sqlite_path",
		"SELLERFIN_FINANCE_MAX_AMORTIZATION_YEARS":             "finance.max_amortization_years",
		"SELLERFIN_FINANCE_OWNER_FAVORED_ENTRY_FEE_CAP":        "finance.owner_favored.entry_fee_cap",
		"SELLERFIN_FINANCE_BUYER_FAVORED_BALLOON_PERIOD_YEARS": "finance.buyer_favored.balloon_period_years",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestTOMLParser_RoundTrip(t *testing.T) {
	p := TOMLParser()
	m, err := p.Unmarshal([]byte("[log]\nlevel = \"warn\"\n"))
	require.NoError(t, err)

	out, err := p.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(out), `level = "warn"`)
}

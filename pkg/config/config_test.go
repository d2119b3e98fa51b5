package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quantlink-pairs/pkg/marketdata"
	"github.com/yourusername/quantlink-pairs/pkg/spread"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pairs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "pairs.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "yahoo", cfg.Data.Provider)
	assert.Equal(t, marketdata.Period1Y, cfg.Period())
	assert.Equal(t, spread.SpreadTypeRatio, cfg.Method())
	assert.Equal(t, 10*time.Second, cfg.Data.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Data.Retry.InitialInterval)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []string{"KO", "PEP", "XOM", "CVX"}, cfg.Symbols)

	opts := cfg.AnalysisOptions()
	assert.Equal(t, spread.SpreadTypeRatio, opts.Method)
	assert.Equal(t, 1.0, opts.CriticalBuy)
	assert.Equal(t, -1.0, opts.CriticalSell)
	assert.Equal(t, 0, opts.Window)
	assert.Equal(t, 0.05, opts.Significance)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "symbols: [AAA, BBB]\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "yahoo", cfg.Data.Provider)
	assert.Equal(t, "1y", cfg.Data.Period)
	assert.Equal(t, spread.DefaultCriticalBuy, cfg.Signal.CriticalBuy)
	assert.Equal(t, spread.DefaultCriticalSell, cfg.Signal.CriticalSell)
	assert.Equal(t, 0.05, cfg.Signal.Significance)
	assert.Equal(t, []string{"markdown", "json"}, cfg.Report.Formats)
	assert.Equal(t, ":8080", cfg.API.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "data:\n  period: 1y\n")
	t.Setenv("PAIRS_PERIOD", "5y")
	t.Setenv("PAIRS_SYMBOLS", "ko, pep")
	t.Setenv("PAIRS_CRITICAL_BUY", "2")
	t.Setenv("PAIRS_CRITICAL_SELL", "-1.5")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, marketdata.Period5Y, cfg.Period())
	assert.Equal(t, []string{"KO", "PEP"}, cfg.Symbols)
	assert.Equal(t, 2.0, cfg.Signal.CriticalBuy)
	assert.Equal(t, -1.5, cfg.Signal.CriticalSell)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}

func TestLoad_ExplicitZeroThresholds(t *testing.T) {
	path := writeConfig(t, "signal:\n  critical_buy: 0\n  critical_sell: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Signal.CriticalBuy)
	assert.Equal(t, 0.0, cfg.Signal.CriticalSell)
	assert.Equal(t, 0.0, cfg.AnalysisOptions().CriticalBuy)

	path = writeConfig(t, "signal:\n  critical_buy: 2\n  window: 20\n")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.Signal.CriticalBuy)
	assert.Equal(t, spread.DefaultCriticalSell, cfg.Signal.CriticalSell)
	assert.Equal(t, 20, cfg.Signal.Window)
}

func TestLoad_BadEnvNumber(t *testing.T) {
	t.Setenv("PAIRS_CRITICAL_BUY", "high")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAIRS_CRITICAL_BUY")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad provider", func(c *Config) { c.Data.Provider = "bloomberg" }, "data.provider"},
		{"csv without dir", func(c *Config) { c.Data.Provider = "csv" }, "csv_dir"},
		{"postgres without url", func(c *Config) { c.Data.Provider = "postgres" }, "database_url"},
		{"bad period", func(c *Config) { c.Data.Period = "3w" }, "data.period"},
		{"bad method", func(c *Config) { c.Signal.Method = "zscore" }, "signal.method"},
		{"inverted thresholds", func(c *Config) { c.Signal.CriticalBuy, c.Signal.CriticalSell = -1, 1 }, "critical"},
		{"window one", func(c *Config) { c.Signal.Window = 1 }, "window"},
		{"significance", func(c *Config) { c.Signal.Significance = 1.5 }, "significance"},
		{"report format", func(c *Config) { c.Report.Formats = []string{"html"} }, "report format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.Validate())
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestInvertedThresholdsIsSentinel(t *testing.T) {
	cfg := Default()
	cfg.Signal.CriticalBuy, cfg.Signal.CriticalSell = -1, 1
	assert.ErrorIs(t, cfg.Validate(), spread.ErrInvertedThresholds)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Symbols = []string{"KO", "PEP"}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Symbols, loaded.Symbols)
	assert.Equal(t, cfg.Data.Timeout, loaded.Data.Timeout)
}

func TestSplitSymbols(t *testing.T) {
	assert.Equal(t, []string{"KO", "PEP", "XOM"}, SplitSymbols(" ko,pep  xom,"))
	assert.Empty(t, SplitSymbols(""))
}

func TestProviderChain(t *testing.T) {
	cfg := Default()
	cfg.Data.Provider = "csv"
	cfg.Data.CSVDir = t.TempDir()

	p, err := cfg.Provider(context.Background(), nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "csv", p.Name())

	cfg.Data.Provider = "postgres"
	_, err = cfg.Provider(context.Background(), nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewDependencies_Empty(t *testing.T) {
	deps, err := NewDependencies(context.Background(), FromConfig(Default())...)
	require.NoError(t, err)
	assert.Nil(t, deps.Postgres)
	assert.Nil(t, deps.Redis)
	assert.Nil(t, deps.NATS)
	deps.Close()
}

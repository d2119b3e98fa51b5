// Package config loads the pairs analysis configuration from YAML, .env and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yourusername/quantlink-pairs/pkg/analysis"
	"github.com/yourusername/quantlink-pairs/pkg/marketdata"
	"github.com/yourusername/quantlink-pairs/pkg/spread"
)

// Config 配置根节点
type Config struct {
	App     AppConfig     `yaml:"app"`
	Data    DataConfig    `yaml:"data"`
	Cache   CacheConfig   `yaml:"cache"`
	Archive ArchiveConfig `yaml:"archive"`
	Signal  SignalConfig  `yaml:"signal"`
	Symbols []string      `yaml:"symbols"`
	Report  ReportConfig  `yaml:"report"`
	NATS    NATSConfig    `yaml:"nats"`
	API     APIConfig     `yaml:"api"`
}

// AppConfig 进程级设置
type AppConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
}

// DataConfig 行情数据源设置
type DataConfig struct {
	Provider    string        `yaml:"provider"` // yahoo, csv, postgres
	YahooURL    string        `yaml:"yahoo_url"`
	CSVDir      string        `yaml:"csv_dir"`
	Period      string        `yaml:"period"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
	Retry       RetryConfig   `yaml:"retry"`
}

// RetryConfig 网络请求重试
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// CacheConfig Redis 价格缓存，Addr 为空时不启用
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
	TTL       time.Duration `yaml:"ttl"`
}

// ArchiveConfig PostgreSQL 价格归档，DatabaseURL 为空时不启用
type ArchiveConfig struct {
	DatabaseURL string `yaml:"database_url"`
	Source      string `yaml:"source"`
	Migrate     bool   `yaml:"migrate"`
}

// SignalConfig 信号参数
type SignalConfig struct {
	Method       string  `yaml:"method"` // spread, ratio, log
	CriticalBuy  float64 `yaml:"critical_buy"`
	CriticalSell float64 `yaml:"critical_sell"`
	Window       int     `yaml:"window"` // 0 表示全样本 z-score
	Significance float64 `yaml:"significance"`
}

// ReportConfig 报告输出
type ReportConfig struct {
	OutputDir string   `yaml:"output_dir"`
	Formats   []string `yaml:"formats"` // markdown, json
}

// NATSConfig 报告发布，URL 为空时不发布
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// APIConfig HTTP 服务
type APIConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default 默认配置
func Default() *Config {
	c := newConfig()
	c.setDefaults()
	return c
}

// newConfig 预置阈值，YAML 中显式写 0 时不会被当作未配置
func newConfig() *Config {
	return &Config{
		Signal: SignalConfig{
			CriticalBuy:  spread.DefaultCriticalBuy,
			CriticalSell: spread.DefaultCriticalSell,
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies a
// .env file if present and environment overrides, fills defaults and
// validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := newConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	config.setDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "quantlink-pairs"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Data.Provider == "" {
		c.Data.Provider = "yahoo"
	}
	if c.Data.Period == "" {
		c.Data.Period = string(marketdata.Period1Y)
	}
	if c.Data.Concurrency == 0 {
		c.Data.Concurrency = marketdata.DefaultOptions().Concurrency
	}
	if c.Data.Timeout == 0 {
		c.Data.Timeout = 10 * time.Second
	}
	if c.Data.Retry.MaxAttempts == 0 {
		c.Data.Retry.MaxAttempts = 3
	}
	if c.Data.Retry.InitialInterval == 0 {
		c.Data.Retry.InitialInterval = 500 * time.Millisecond
	}
	if c.Data.Retry.MaxInterval == 0 {
		c.Data.Retry.MaxInterval = 5 * time.Second
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = marketdata.DefaultCacheTTL
	}
	if c.Archive.Source == "" {
		c.Archive.Source = c.Data.Provider
	}
	if c.Signal.Method == "" {
		c.Signal.Method = string(spread.SpreadTypeRatio)
	}
	if c.Signal.Significance == 0 {
		c.Signal.Significance = 0.05
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "./reports"
	}
	if len(c.Report.Formats) == 0 {
		c.Report.Formats = []string{"markdown", "json"}
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "pairs.report"
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Data.Provider {
	case "yahoo":
	case "csv":
		if c.Data.CSVDir == "" {
			return fmt.Errorf("data.csv_dir is required for the csv provider")
		}
	case "postgres":
		if c.Archive.DatabaseURL == "" {
			return fmt.Errorf("archive.database_url is required for the postgres provider")
		}
	default:
		return fmt.Errorf("invalid data.provider: %s (must be yahoo, csv or postgres)", c.Data.Provider)
	}

	if _, err := marketdata.ParsePeriod(c.Data.Period); err != nil {
		return fmt.Errorf("data.period: %w", err)
	}
	if c.Data.Concurrency < 0 {
		return fmt.Errorf("data.concurrency must not be negative")
	}
	if _, err := spread.ParseSpreadType(c.Signal.Method); err != nil {
		return fmt.Errorf("signal.method: %w", err)
	}
	if c.Signal.CriticalBuy < c.Signal.CriticalSell {
		return fmt.Errorf("signal: %w (critical_buy %v < critical_sell %v)",
			spread.ErrInvertedThresholds, c.Signal.CriticalBuy, c.Signal.CriticalSell)
	}
	if c.Signal.Window == 1 || c.Signal.Window < 0 {
		return fmt.Errorf("signal.window must be 0 or at least 2")
	}
	if c.Signal.Significance <= 0 || c.Signal.Significance >= 1 {
		return fmt.Errorf("signal.significance must be in (0, 1)")
	}
	for _, f := range c.Report.Formats {
		if f != "markdown" && f != "json" {
			return fmt.Errorf("invalid report format: %s (must be markdown or json)", f)
		}
	}
	return nil
}

// Period returns the configured period descriptor.
func (c *Config) Period() marketdata.Period {
	p, _ := marketdata.ParsePeriod(c.Data.Period)
	return p
}

// Method returns the configured spread type.
func (c *Config) Method() spread.SpreadType {
	m, _ := spread.ParseSpreadType(c.Signal.Method)
	return m
}

// AnalysisOptions returns the signal settings as analysis options.
func (c *Config) AnalysisOptions() analysis.Options {
	return analysis.Options{
		Method:       c.Method(),
		CriticalBuy:  c.Signal.CriticalBuy,
		CriticalSell: c.Signal.CriticalSell,
		Window:       c.Signal.Window,
		Significance: c.Signal.Significance,
	}
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *float64) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = f
		return nil
	}

	str("LOG_LEVEL", &c.App.LogLevel)
	str("PAIRS_PROVIDER", &c.Data.Provider)
	str("PAIRS_PERIOD", &c.Data.Period)
	str("PAIRS_CSV_DIR", &c.Data.CSVDir)
	str("PAIRS_YAHOO_URL", &c.Data.YahooURL)
	str("PAIRS_METHOD", &c.Signal.Method)
	str("PAIRS_OUTPUT_DIR", &c.Report.OutputDir)
	str("PAIRS_API_ADDR", &c.API.Addr)
	str("REDIS_ADDR", &c.Cache.RedisAddr)
	str("DATABASE_URL", &c.Archive.DatabaseURL)
	str("NATS_URL", &c.NATS.URL)

	if v, ok := lookup("PAIRS_SYMBOLS"); ok && v != "" {
		c.Symbols = SplitSymbols(v)
	}
	if err := num("PAIRS_CRITICAL_BUY", &c.Signal.CriticalBuy); err != nil {
		return err
	}
	if err := num("PAIRS_CRITICAL_SELL", &c.Signal.CriticalSell); err != nil {
		return err
	}
	return nil
}

// SplitSymbols splits a comma or whitespace separated symbol list.
func SplitSymbols(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToUpper(f))
	}
	return out
}

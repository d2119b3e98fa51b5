package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/quantlink-pairs/pkg/analysis"
	"github.com/yourusername/quantlink-pairs/pkg/config"
	"github.com/yourusername/quantlink-pairs/pkg/logging"
	"github.com/yourusername/quantlink-pairs/pkg/market"
	"github.com/yourusername/quantlink-pairs/pkg/marketdata"
	"github.com/yourusername/quantlink-pairs/pkg/metrics"
	"github.com/yourusername/quantlink-pairs/pkg/report"
)

const (
	appName    = "QuantlinkPairs"
	appVersion = "1.0.0"
)

var (
	// Command line flags
	configFile = flag.String("config", "./config/pairs.yaml", "Configuration file path")
	pairFlag   = flag.String("pair", "", "Pair to analyse, e.g. KO/PEP (analyze)")
	symbols    = flag.String("symbols", "", "Comma-separated symbols (scan, correlate; overrides config)")
	period     = flag.String("period", "", "History period: 1d 5d 1mo 3mo 6mo 1y 2y 5y 10y ytd max (overrides config)")
	method     = flag.String("method", "", "Relationship: spread, ratio or log (overrides config)")
	buy        = flag.Float64("buy", 0, "Critical buy z-score (overrides config)")
	sell       = flag.Float64("sell", 0, "Critical sell z-score (overrides config)")
	window     = flag.Int("window", -1, "Rolling z-score window, 0 for whole sample (overrides config)")
	outputDir  = flag.String("output", "", "Output directory (overrides config)")
	logLevel   = flag.String("log-level", "", "Log level (overrides config)")
	version    = flag.Bool("version", false, "Print version and exit")
	help       = flag.Bool("help", false, "Print help and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}
	if *help {
		printHelp()
		os.Exit(0)
	}

	command := flag.Arg(0)
	if command == "" {
		command = "analyze"
		if *pairFlag == "" {
			command = "scan"
		}
	}

	printBanner()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := applyFlags(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid flags: %v\n", err)
		os.Exit(2)
	}

	log := logging.Component(logging.NewConsoleLogger(cfg.App.LogLevel), "main")
	printConfigSummary(cfg, command)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, command, log); err != nil {
		log.Error().Err(err).Str("command", command).Msg("command failed")
		os.Exit(1)
	}
	log.Info().Str("command", command).Msg("done")
}

func run(ctx context.Context, cfg *config.Config, command string, log zerolog.Logger) error {
	deps, err := config.NewDependencies(ctx, config.FromConfig(cfg)...)
	if err != nil {
		return err
	}
	defer deps.Close()

	if cfg.API.MetricsAddr != "" {
		srv, err := metrics.Serve(cfg.API.MetricsAddr, log)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info().Str("addr", srv.Addr).Msg("metrics listener started")
	}

	provider, err := cfg.Provider(ctx, deps, log)
	if err != nil {
		return err
	}
	analyzer := analysis.NewAnalyzer(provider, marketdata.Options{Concurrency: cfg.Data.Concurrency}, log)
	writer := report.NewWriter(cfg.Report.OutputDir, cfg.Report.Formats, log)

	var publisher report.Publisher = report.NopPublisher{}
	if deps.NATS != nil {
		publisher = report.NewNATSPublisher(deps.NATS, cfg.NATS.SubjectPrefix, log)
	}

	switch command {
	case "analyze":
		return runAnalyze(ctx, cfg, analyzer, writer, publisher, log)
	case "scan":
		return runScan(ctx, cfg, analyzer, writer, publisher, log)
	case "correlate":
		return runCorrelate(ctx, cfg, analyzer, writer, log)
	default:
		return fmt.Errorf("unknown command %q (want analyze, scan or correlate)", command)
	}
}

func runAnalyze(ctx context.Context, cfg *config.Config, a *analysis.Analyzer, w *report.Writer, pub report.Publisher, log zerolog.Logger) error {
	if *pairFlag == "" {
		return fmt.Errorf("analyze needs -pair")
	}
	pair, err := market.ParsePair(strings.ToUpper(*pairFlag))
	if err != nil {
		return err
	}

	table, err := a.Load(ctx, []string{pair.A, pair.B}, cfg.Period())
	if err != nil {
		return err
	}
	r, err := a.AnalyzePair(ctx, table, pair, cfg.AnalysisOptions())
	if err != nil {
		return err
	}
	if err := pub.Publish(ctx, r); err != nil {
		log.Warn().Err(err).Str("pair", pair.String()).Msg("report publish failed")
	}

	files, err := w.WritePair(r)
	if err != nil {
		return err
	}
	fmt.Println(r)
	printFiles(files)
	return nil
}

func runScan(ctx context.Context, cfg *config.Config, a *analysis.Analyzer, w *report.Writer, pub report.Publisher, log zerolog.Logger) error {
	if len(cfg.Symbols) < 2 {
		return fmt.Errorf("scan needs at least 2 symbols, got %d", len(cfg.Symbols))
	}

	table, err := a.Load(ctx, cfg.Symbols, cfg.Period())
	if err != nil {
		return err
	}
	res, err := a.Scan(ctx, table, analysis.AllPairs(cfg.Symbols), cfg.AnalysisOptions())
	if err != nil {
		return err
	}
	for _, r := range res.Reports {
		if err := pub.Publish(ctx, r); err != nil {
			log.Warn().Err(err).Str("pair", r.Pair.String()).Msg("report publish failed")
		}
	}

	files, err := w.WriteScan(res)
	if err != nil {
		return err
	}
	for i, r := range analysis.Rank(res.Reports) {
		fmt.Printf("%2d. %s\n", i+1, r)
	}
	if res.Failed() > 0 {
		fmt.Printf("%d pair(s) failed\n", res.Failed())
	}
	printFiles(files)
	return nil
}

func runCorrelate(ctx context.Context, cfg *config.Config, a *analysis.Analyzer, w *report.Writer, log zerolog.Logger) error {
	if len(cfg.Symbols) < 2 {
		return fmt.Errorf("correlate needs at least 2 symbols, got %d", len(cfg.Symbols))
	}

	table, err := a.Load(ctx, cfg.Symbols, cfg.Period())
	if err != nil {
		return err
	}
	m, err := analysis.NewCorrelationMatrix(table)
	if err != nil {
		return err
	}
	files, err := w.WriteCorrelation(m)
	if err != nil {
		return err
	}
	log.Info().Int("symbols", len(m.Symbols)).Msg("correlation matrix computed")
	printFiles(files)
	return nil
}

// applyFlags 命令行参数覆盖配置，然后重新校验
func applyFlags(cfg *config.Config) error {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *symbols != "" {
		cfg.Symbols = config.SplitSymbols(*symbols)
	}
	if *period != "" {
		cfg.Data.Period = *period
	}
	if *method != "" {
		cfg.Signal.Method = *method
	}
	if set["buy"] {
		cfg.Signal.CriticalBuy = *buy
	}
	if set["sell"] {
		cfg.Signal.CriticalSell = *sell
	}
	if *window >= 0 {
		cfg.Signal.Window = *window
	}
	if *outputDir != "" {
		cfg.Report.OutputDir = *outputDir
	}
	if *logLevel != "" {
		cfg.App.LogLevel = *logLevel
	}
	return cfg.Validate()
}

func printFiles(files []string) {
	for _, f := range files {
		fmt.Printf("  wrote %s\n", f)
	}
}

func printBanner() {
	fmt.Println("========================================")
	fmt.Printf("%s v%s\n", appName, appVersion)
	fmt.Println("配对交易协整分析")
	fmt.Println("========================================")
}

func printHelp() {
	fmt.Printf("Usage: %s [options] [analyze|scan|correlate]\n\n", os.Args[0])
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println("\nExamples:")
	fmt.Println("  # Analyse one pair")
	fmt.Println("  ./pairs -config config/pairs.yaml -pair KO/PEP analyze")
	fmt.Println()
	fmt.Println("  # Scan every pair of the configured symbols")
	fmt.Println("  ./pairs -config config/pairs.yaml -period 2y scan")
	fmt.Println()
	fmt.Println("  # Correlation matrix")
	fmt.Println("  ./pairs -symbols KO,PEP,XOM,CVX correlate")
	fmt.Println()
}

func printConfigSummary(cfg *config.Config, command string) {
	fmt.Println("\n========================================")
	fmt.Println("Configuration Summary")
	fmt.Println("========================================")
	fmt.Printf("Command:           %s\n", command)
	fmt.Printf("Provider:          %s\n", cfg.Data.Provider)
	fmt.Printf("Period:            %s\n", cfg.Data.Period)
	fmt.Printf("Symbols:           %v\n", cfg.Symbols)
	fmt.Printf("Method:            %s\n", cfg.Method().Label())
	fmt.Printf("Thresholds:        buy %.2f / sell %.2f\n", cfg.Signal.CriticalBuy, cfg.Signal.CriticalSell)
	if cfg.Signal.Window > 0 {
		fmt.Printf("Rolling Window:    %d\n", cfg.Signal.Window)
	}
	fmt.Printf("Redis Cache:       %t\n", cfg.Cache.RedisAddr != "")
	fmt.Printf("Postgres Archive:  %t\n", cfg.Archive.DatabaseURL != "")
	fmt.Printf("Output Directory:  %s\n", cfg.Report.OutputDir)
	fmt.Println("========================================")
	fmt.Println()
}

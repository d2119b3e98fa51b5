package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourusername/quantlink-pairs/pkg/analysis"
	"github.com/yourusername/quantlink-pairs/pkg/api"
	"github.com/yourusername/quantlink-pairs/pkg/config"
	"github.com/yourusername/quantlink-pairs/pkg/logging"
	"github.com/yourusername/quantlink-pairs/pkg/marketdata"
	"github.com/yourusername/quantlink-pairs/pkg/report"
)

func main() {
	configFile := flag.String("config", "./config/pairs.yaml", "Configuration file path")
	addr := flag.String("addr", "", "Listen address (overrides config api.addr)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[WebServer] failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.API.Addr = *addr
	}

	log := logging.Component(logging.NewLogger(cfg.App.LogLevel), "webserver")

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := config.NewDependencies(ctx, config.FromConfig(cfg)...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect dependencies")
	}
	defer deps.Close()

	provider, err := cfg.Provider(ctx, deps, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build market data provider")
	}
	analyzer := analysis.NewAnalyzer(provider, marketdata.Options{Concurrency: cfg.Data.Concurrency}, log)

	var publisher report.Publisher
	if deps.NATS != nil {
		publisher = report.NewNATSPublisher(deps.NATS, cfg.NATS.SubjectPrefix, log)
	}

	handler := api.NewAPIHandler(analyzer, publisher, api.Defaults{
		Period:  cfg.Period(),
		Options: cfg.AnalysisOptions(),
	}, log)

	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           handler.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      api.DefaultTimeout + 10*time.Second,
	}

	go func() {
		log.Info().
			Str("addr", cfg.API.Addr).
			Str("provider", provider.Name()).
			Msg("serving /api/v1/pairs/analyze, /api/v1/pairs/scan, /api/v1/correlation, /health, /metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

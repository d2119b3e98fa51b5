package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourusername/quantlink-pairs/pkg/analysis"
	"github.com/yourusername/quantlink-pairs/pkg/logging"
	"github.com/yourusername/quantlink-pairs/pkg/market"
	"github.com/yourusername/quantlink-pairs/pkg/marketdata"
	"github.com/yourusername/quantlink-pairs/pkg/metrics"
	"github.com/yourusername/quantlink-pairs/pkg/report"
)

// Constants
const (
	DefaultTimeout      = 60 * time.Second
	ServiceVersion      = "1.0.0"
	ServiceName         = "quantlink-pairs"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
	MaxScanSymbols      = 25
)

// PairService is the analysis surface the handlers need.
type PairService interface {
	Load(ctx context.Context, symbols []string, period marketdata.Period) (*market.PriceTable, error)
	AnalyzePair(ctx context.Context, table *market.PriceTable, pair market.Pair, opts analysis.Options) (*analysis.PairReport, error)
	Scan(ctx context.Context, table *market.PriceTable, pairs []market.Pair, opts analysis.Options) (*analysis.ScanResult, error)
}

// Defaults 请求未指定参数时使用的值
type Defaults struct {
	Period  marketdata.Period
	Options analysis.Options
}

// APIHandler handles HTTP requests using Gin framework
type APIHandler struct {
	service   PairService
	publisher report.Publisher
	defaults  Defaults
	validator *Validator
	logger    zerolog.Logger
}

// NewAPIHandler creates a new API handler; a nil publisher disables publishing.
func NewAPIHandler(service PairService, publisher report.Publisher, defaults Defaults, logger zerolog.Logger) *APIHandler {
	if publisher == nil {
		publisher = report.NopPublisher{}
	}
	if defaults.Period == "" {
		defaults.Period = marketdata.Period1Y
	}
	if defaults.Options.Method == "" {
		defaults.Options = analysis.DefaultOptions()
	}
	return &APIHandler{
		service:   service,
		publisher: publisher,
		defaults:  defaults,
		validator: GetValidator(),
		logger:    logging.Component(logger, "api"),
	}
}

// SetupRoutes configures all API routes
func (h *APIHandler) SetupRoutes() *gin.Engine {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add middleware
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(h.logger))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	v1.GET("/pairs/analyze", h.AnalyzePair)
	v1.GET("/pairs/scan", h.ScanPairs)
	v1.GET("/correlation", h.Correlation)

	return router
}

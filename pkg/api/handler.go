package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quantlink-pairs/pkg/analysis"
	"github.com/yourusername/quantlink-pairs/pkg/market"
	"github.com/yourusername/quantlink-pairs/pkg/marketdata"
	"github.com/yourusername/quantlink-pairs/pkg/report"
	"github.com/yourusername/quantlink-pairs/pkg/spread"
	"github.com/yourusername/quantlink-pairs/pkg/stats"
)

// AnalyzePair handles GET /api/v1/pairs/analyze requests
func (h *APIHandler) AnalyzePair(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	req, err := h.validator.ValidateAnalyzeRequest(AnalyzeQuery{
		A:      c.Query("a"),
		B:      c.Query("b"),
		Period: c.Query("period"),
		Method: c.Query("method"),
		Buy:    c.Query("buy"),
		Sell:   c.Query("sell"),
		Window: c.Query("window"),
		Series: c.Query("series"),
	}, h.defaults)
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	table, err := h.service.Load(ctx, []string{req.Pair.A, req.Pair.B}, req.Period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	r, err := h.service.AnalyzePair(ctx, table, req.Pair, req.Options)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.publish(ctx, c, r)

	c.JSON(http.StatusOK, report.NewPairDocument(r, req.WithSeries))
}

// ScanPairs handles GET /api/v1/pairs/scan requests
func (h *APIHandler) ScanPairs(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	symbols, period, ok := h.symbolsAndPeriod(c)
	if !ok {
		return
	}
	opts, err := h.validator.ValidateOptions(OptionsQuery{
		Method: c.Query("method"),
		Buy:    c.Query("buy"),
		Sell:   c.Query("sell"),
		Window: c.Query("window"),
	}, h.defaults.Options)
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	table, err := h.service.Load(ctx, symbols, period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	res, err := h.service.Scan(ctx, table, analysis.AllPairs(symbols), opts)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	for _, r := range res.Reports {
		h.publish(ctx, c, r)
	}

	c.JSON(http.StatusOK, report.NewScanDocument(res, time.Now().UTC()))
}

// Correlation handles GET /api/v1/correlation requests
func (h *APIHandler) Correlation(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	symbols, period, ok := h.symbolsAndPeriod(c)
	if !ok {
		return
	}

	table, err := h.service.Load(ctx, symbols, period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	m, err := analysis.NewCorrelationMatrix(table)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report.NewCorrelationDocument(m))
}

// HealthCheck handles GET /health requests
func (h *APIHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"service":   ServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   ServiceVersion,
	})
}

func (h *APIHandler) symbolsAndPeriod(c *gin.Context) ([]string, marketdata.Period, bool) {
	symbols, err := h.validator.ValidateSymbols(c.Query("symbols"), MaxScanSymbols)
	if err != nil {
		h.handleValidationError(c, err)
		return nil, "", false
	}
	period, err := h.validator.ValidatePeriod(c.Query("period"), h.defaults.Period)
	if err != nil {
		h.handleValidationError(c, err)
		return nil, "", false
	}
	return symbols, period, true
}

// publish 发布失败只记录日志，不影响响应
func (h *APIHandler) publish(ctx context.Context, c *gin.Context, r *analysis.PairReport) {
	if err := h.publisher.Publish(ctx, r); err != nil {
		h.logger.Warn().
			Err(err).
			Str("request_id", requestID(c)).
			Str("pair", r.Pair.String()).
			Msg("report publish failed")
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrValidation),
		errors.Is(err, marketdata.ErrInvalidPeriod),
		errors.Is(err, marketdata.ErrInvalidSymbol),
		errors.Is(err, market.ErrInvalidPair),
		errors.Is(err, spread.ErrInvertedThresholds),
		errors.Is(err, spread.ErrInvalidThreshold):
		return http.StatusBadRequest
	case errors.Is(err, marketdata.ErrDataUnavailable),
		errors.Is(err, marketdata.ErrNoData),
		errors.Is(err, market.ErrUnknownColumn):
		return http.StatusNotFound
	case errors.Is(err, stats.ErrInsufficientData),
		errors.Is(err, stats.ErrDegenerateSeries),
		errors.Is(err, stats.ErrNonFinite),
		errors.Is(err, stats.ErrSingularMatrix):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) handleServiceError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	h.handleError(c, err, status, msg)
}

// handleError logs the error and sends appropriate HTTP response
func (h *APIHandler) handleError(c *gin.Context, err error, statusCode int, userMessage string) {
	id := requestID(c)

	h.logger.Error().
		Str("request_id", id).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Err(err).
		Int("status_code", statusCode).
		Msg("API error")

	c.JSON(statusCode, gin.H{
		"error":      userMessage,
		"request_id": id,
	})
}

// handleValidationError handles validation errors specifically
func (h *APIHandler) handleValidationError(c *gin.Context, err error) {
	h.handleError(c, err, statusFor(err), err.Error())
}

func requestID(c *gin.Context) string {
	if id := c.GetString(RequestIDContextKey); id != "" {
		return id
	}
	return "unknown"
}

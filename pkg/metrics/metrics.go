package metrics

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pairs_fetch_total", Help: "Price series fetches by provider and result"},
		[]string{"provider", "result"},
	)
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pairs_fetch_duration_seconds",
			Help:    "Latency of price series fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pairs_cache_total", Help: "Price cache lookups"},
		[]string{"result"},
	)
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pairs_analyses_total", Help: "Pair analyses by outcome"},
		[]string{"outcome"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pairs_http_requests_total", Help: "HTTP requests by route and status"},
		[]string{"route", "status"},
	)
)

func init() {
	prometheus.MustRegister(FetchTotal, FetchDuration, CacheTotal, AnalysesTotal, HTTPRequests)
}

// ObserveFetch records one provider call.
func ObserveFetch(provider string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	FetchTotal.WithLabelValues(provider, result).Inc()
	FetchDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on its own listener (used by the CLI).
// Bind errors are returned; later serve errors go to log.
func Serve(addr string, log zerolog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", srv.Addr).Msg("metrics listener stopped")
		}
	}()
	return srv, nil
}

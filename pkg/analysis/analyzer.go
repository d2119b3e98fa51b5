// Package analysis runs the pair workflow: derive relationships, test for
// cointegration, compute z-scores and partition them into signals.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yourusername/quantlink-pairs/pkg/logging"
	"github.com/yourusername/quantlink-pairs/pkg/market"
	"github.com/yourusername/quantlink-pairs/pkg/marketdata"
	"github.com/yourusername/quantlink-pairs/pkg/metrics"
	"github.com/yourusername/quantlink-pairs/pkg/spread"
)

// Analyzer 配对分析器
type Analyzer struct {
	provider marketdata.Provider
	acquire  marketdata.Options
	log      zerolog.Logger
	now      func() time.Time
}

// NewAnalyzer 创建分析器；provider 可以为 nil（只分析已有的价格表）
func NewAnalyzer(provider marketdata.Provider, acquire marketdata.Options, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		provider: provider,
		acquire:  acquire,
		log:      logging.Component(log, "analysis"),
		now:      time.Now,
	}
}

// Load acquires a price table for the symbols.
func (a *Analyzer) Load(ctx context.Context, symbols []string, period marketdata.Period) (*market.PriceTable, error) {
	if a.provider == nil {
		return nil, errors.New("analyzer has no market data provider")
	}
	started := time.Now()
	table, err := marketdata.AcquireWithOptions(ctx, a.provider, symbols, period, a.acquire)
	if err != nil {
		return nil, err
	}
	a.log.Info().
		Strs("symbols", symbols).
		Str("period", string(period)).
		Int("dates", table.Len()).
		Dur("elapsed", time.Since(started)).
		Msg("price table loaded")
	return table, nil
}

// AnalyzePair runs the full workflow for one pair of table columns.
func (a *Analyzer) AnalyzePair(ctx context.Context, table *market.PriceTable, pair market.Pair, opts Options) (*PairReport, error) {
	report, err := a.analyzePair(ctx, table, pair, opts)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	return report, nil
}

func (a *Analyzer) analyzePair(ctx context.Context, table *market.PriceTable, pair market.Pair, opts Options) (*PairReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := pair.Validate(table); err != nil {
		return nil, err
	}
	if opts.Method == "" {
		opts.Method = spread.SpreadTypeRatio
	}
	if opts.Significance <= 0 {
		opts.Significance = 0.05
	}

	diff, err := spread.Spread(table, pair)
	if err != nil {
		return nil, err
	}
	ratio, err := spread.Ratio(table, pair)
	if err != nil {
		return nil, err
	}
	selected := ratio
	switch opts.Method {
	case spread.SpreadTypeDifference:
		selected = diff
	case spread.SpreadTypeRatio:
	default:
		if selected, err = spread.Derive(table, pair, opts.Method); err != nil {
			return nil, err
		}
	}

	coint, err := spread.TestPair(table, pair)
	if err != nil {
		return nil, err
	}

	var z market.Series
	if opts.Window > 0 {
		z, err = spread.RollingZScore(selected.Series, opts.Window)
	} else {
		z, err = spread.ZScore(selected.Series)
	}
	if err != nil {
		return nil, err
	}

	partition, err := spread.NewPartition(selected.Series, z, opts.CriticalBuy, opts.CriticalSell)
	if err != nil {
		return nil, err
	}
	st, err := spread.Summarize(table, selected, z)
	if err != nil {
		return nil, err
	}

	report := &PairReport{
		ID:            uuid.NewString(),
		GeneratedAt:   a.now().UTC(),
		Pair:          pair,
		Options:       opts,
		Spread:        diff,
		Ratio:         ratio,
		Selected:      selected,
		Cointegration: coint,
		Cointegrated:  coint.Cointegrated(opts.Significance),
		ZScore:        z,
		Partition:     partition,
		Stats:         st,
	}
	if dates := table.Dates(); len(dates) > 0 {
		report.Start, report.End = dates[0], dates[len(dates)-1]
	}

	a.log.Debug().
		Str("pair", pair.String()).
		Float64("eg_p", coint.EngleGrangerP).
		Float64("spread_adf_p", coint.SpreadADFP).
		Float64("ratio_adf_p", coint.RatioADFP).
		Int("nobs", coint.NObs).
		Msg("pair analysed")
	return report, nil
}

// Scan analyses every pair and keeps going past failures. Only context
// cancellation stops the scan early.
func (a *Analyzer) Scan(ctx context.Context, table *market.PriceTable, pairs []market.Pair, opts Options) (*ScanResult, error) {
	result := &ScanResult{
		Reports: make([]*PairReport, 0, len(pairs)),
		Errors:  make(map[market.Pair]error),
	}
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		report, err := a.AnalyzePair(ctx, table, pair, opts)
		if err != nil {
			a.log.Warn().Err(err).Str("pair", pair.String()).Msg("pair skipped")
			result.Errors[pair] = err
			continue
		}
		result.Reports = append(result.Reports, report)
	}
	a.log.Info().
		Int("pairs", len(pairs)).
		Int("analysed", len(result.Reports)).
		Int("failed", result.Failed()).
		Msg("scan complete")
	return result, nil
}

// AllPairs enumerates every unordered pair of symbols.
func AllPairs(symbols []string) []market.Pair {
	return market.AllPairs(symbols)
}

// Rank orders reports by Engle-Granger p-value, strongest evidence first.
// NaN p-values sort last.
func Rank(reports []*PairReport) []*PairReport {
	out := make([]*PairReport, len(reports))
	copy(out, reports)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Cointegration.EngleGrangerP, out[j].Cointegration.EngleGrangerP
		if math.IsNaN(pj) {
			return !math.IsNaN(pi)
		}
		if math.IsNaN(pi) {
			return false
		}
		return pi < pj
	})
	return out
}

// String 简短描述
func (r *PairReport) String() string {
	return fmt.Sprintf("%s eg_p=%.4f spread_adf_p=%.4f ratio_adf_p=%.4f nobs=%d",
		r.Pair, r.Cointegration.EngleGrangerP, r.Cointegration.SpreadADFP,
		r.Cointegration.RatioADFP, r.Cointegration.NObs)
}

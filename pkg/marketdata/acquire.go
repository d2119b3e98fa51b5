package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/quantlink-pairs/pkg/market"
)

// Options 控制数据获取
type Options struct {
	// Concurrency 同时进行的请求数上限，<= 0 时使用默认值
	Concurrency int
}

// DefaultOptions 默认获取选项
func DefaultOptions() Options {
	return Options{Concurrency: 4}
}

// Acquire fetches every symbol and aligns them into one table on the union
// of their dates. Columns follow the input order; gaps are NaN.
func Acquire(ctx context.Context, p Provider, symbols []string, period Period) (*market.PriceTable, error) {
	return AcquireWithOptions(ctx, p, symbols, period, DefaultOptions())
}

// AcquireWithOptions is Acquire with explicit options.
func AcquireWithOptions(ctx context.Context, p Provider, symbols []string, period Period, opts Options) (*market.PriceTable, error) {
	period, err := ParsePeriod(string(period))
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols", ErrInvalidSymbol)
	}
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%w: empty symbol", ErrInvalidSymbol)
		}
		if _, dup := seen[s]; dup {
			return nil, fmt.Errorf("%w: duplicate symbol %s", ErrInvalidSymbol, s)
		}
		seen[s] = struct{}{}
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultOptions().Concurrency
	}

	series := make([]market.Series, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			s, err := p.Fetch(gctx, symbol, period)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				return &DataUnavailableError{Symbol: symbol, Err: err}
			}
			if s.Defined() == 0 {
				return &DataUnavailableError{Symbol: symbol, Err: ErrNoData}
			}
			series[i] = s.Rename(symbol)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return market.Align(series...)
}

package marketdata

import (
	"context"
	"time"

	"github.com/yourusername/quantlink-pairs/pkg/market"
	"github.com/yourusername/quantlink-pairs/pkg/metrics"
)

type instrumented struct {
	next Provider
}

// Instrument counts and times every fetch of p in Prometheus.
func Instrument(p Provider) Provider {
	return &instrumented{next: p}
}

func (i *instrumented) Name() string {
	return i.next.Name()
}

func (i *instrumented) Fetch(ctx context.Context, symbol string, period Period) (market.Series, error) {
	started := time.Now()
	s, err := i.next.Fetch(ctx, symbol, period)
	metrics.ObserveFetch(i.next.Name(), started, err)
	return s, err
}

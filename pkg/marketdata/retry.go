package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/yourusername/quantlink-pairs/pkg/market"
)

// RetryPolicy 重试策略
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// RetryProvider retries transient fetch failures with exponential backoff.
// ErrNoData, ErrInvalidPeriod and context errors are not retried.
type RetryProvider struct {
	next   Provider
	policy RetryPolicy
	log    zerolog.Logger
}

// NewRetryProvider 包装一个数据源；MaxAttempts <= 1 时直接返回原数据源
func NewRetryProvider(next Provider, policy RetryPolicy, log zerolog.Logger) Provider {
	if policy.MaxAttempts <= 1 {
		return next
	}
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = 500 * time.Millisecond
	}
	if policy.MaxInterval <= 0 {
		policy.MaxInterval = 10 * time.Second
	}
	return &RetryProvider{next: next, policy: policy, log: log}
}

func (r *RetryProvider) Name() string {
	return r.next.Name()
}

func (r *RetryProvider) Fetch(ctx context.Context, symbol string, period Period) (market.Series, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.policy.InitialInterval
	eb.MaxInterval = r.policy.MaxInterval
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.policy.MaxAttempts-1)), ctx)

	attempt := 0
	op := func() (market.Series, error) {
		attempt++
		s, err := r.next.Fetch(ctx, symbol, period)
		if err == nil {
			return s, nil
		}
		if errors.Is(err, ErrNoData) || errors.Is(err, ErrInvalidPeriod) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return market.Series{}, backoff.Permanent(err)
		}
		return market.Series{}, err
	}
	notify := func(err error, wait time.Duration) {
		r.log.Warn().Err(err).
			Str("provider", r.next.Name()).
			Str("symbol", symbol).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("fetch failed, retrying")
	}
	return backoff.RetryNotifyWithData(op, b, notify)
}

package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/yourusername/quantlink-pairs/pkg/market"
	"github.com/yourusername/quantlink-pairs/pkg/metrics"
)

// DefaultCacheTTL 缓存过期时间
const DefaultCacheTTL = 6 * time.Hour

// CachedProvider is a Redis read-through cache in front of another
// provider. Each (provider, symbol, period) is one sorted set scored by
// unix date. Cache failures are logged and never fail a fetch.
type CachedProvider struct {
	next   Provider
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCachedProvider 创建带缓存的数据源
func NewCachedProvider(next Provider, client *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProvider{
		next:   next,
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (c *CachedProvider) Name() string {
	return c.next.Name()
}

// Ping checks the connection to the Redis server.
func (c *CachedProvider) Ping(ctx context.Context) string {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Sprintf("down: %v", err)
	}
	return "up"
}

// cacheKey returns the Redis key for a provider, symbol and period.
func (c *CachedProvider) cacheKey(symbol string, period Period) string {
	return fmt.Sprintf("prices:%s:%s:%s", c.next.Name(), symbol, period)
}

func (c *CachedProvider) Fetch(ctx context.Context, symbol string, period Period) (market.Series, error) {
	key := c.cacheKey(symbol, period)

	s, ok, err := c.load(ctx, key, symbol)
	switch {
	case err != nil:
		metrics.CacheTotal.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("price cache read failed")
	case ok:
		metrics.CacheTotal.WithLabelValues("hit").Inc()
		return s, nil
	default:
		metrics.CacheTotal.WithLabelValues("miss").Inc()
	}

	s, err = c.next.Fetch(ctx, symbol, period)
	if err != nil {
		return market.Series{}, err
	}
	if err := c.store(ctx, key, s); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("price cache write failed")
	}
	return s, nil
}

func (c *CachedProvider) load(ctx context.Context, key, symbol string) (market.Series, bool, error) {
	members, err := c.client.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return market.Series{}, false, err
	}
	if len(members) == 0 {
		return market.Series{}, false, nil
	}

	dates := make([]time.Time, 0, len(members))
	values := make([]float64, 0, len(members))
	for _, z := range members {
		member, _ := z.Member.(string)
		_, priceStr, found := strings.Cut(member, "|")
		if !found {
			return market.Series{}, false, fmt.Errorf("invalid cache member %q", member)
		}
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil {
			return market.Series{}, false, fmt.Errorf("could not parse cached price: %w", err)
		}
		dates = append(dates, time.Unix(int64(z.Score), 0).UTC())
		values = append(values, price)
	}
	s, err := market.NewSeries(symbol, dates, values)
	if err != nil {
		return market.Series{}, false, err
	}
	return s, true, nil
}

func (c *CachedProvider) store(ctx context.Context, key string, s market.Series) error {
	if len(s.Values) == 0 {
		return nil
	}
	zs := make([]redis.Z, len(s.Values))
	for i, v := range s.Values {
		ts := s.Dates[i].Unix()
		zs[i] = redis.Z{
			Score:  float64(ts),
			Member: strconv.FormatInt(ts, 10) + "|" + strconv.FormatFloat(v, 'g', -1, 64),
		}
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.ZAdd(ctx, key, zs...)
	pipe.Expire(ctx, key, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

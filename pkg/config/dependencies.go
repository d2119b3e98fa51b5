package config

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/yourusername/quantlink-pairs/pkg/logging"
	"github.com/yourusername/quantlink-pairs/pkg/marketdata"
)

// Dependencies 外部连接；未配置的为 nil
type Dependencies struct {
	Postgres *pgxpool.Pool
	Redis    *redis.Client
	NATS     *nats.Conn
}

type Option func(context.Context, *Dependencies) error

func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.Postgres != nil {
		d.Postgres.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.NATS != nil {
		d.NATS.Close()
	}
}

func NewDependencies(ctx context.Context, opts ...Option) (deps *Dependencies, err error) {
	deps = &Dependencies{}
	defer func() {
		if err != nil {
			deps.Close()
			deps = nil
		}
	}()

	for _, opt := range opts {
		if err = opt(ctx, deps); err != nil {
			return deps, err
		}
	}
	return deps, nil
}

// FromConfig returns the options for every backend the configuration enables.
func FromConfig(c *Config) []Option {
	var opts []Option
	if c.Archive.DatabaseURL != "" {
		opts = append(opts, WithPostgres(c.Archive.DatabaseURL))
	}
	if c.Cache.RedisAddr != "" {
		opts = append(opts, WithRedis(c.Cache.RedisAddr, c.Cache.RedisDB))
	}
	if c.NATS.URL != "" {
		opts = append(opts, WithNATS(c.NATS.URL, c.App.Name))
	}
	return opts
}

func WithPostgres(url string) Option {
	return func(ctx context.Context, d *Dependencies) error {
		pool, err := pgxpool.New(ctx, url)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("postgres ping: %w", err)
		}
		d.Postgres = pool
		return nil
	}
}

func WithRedis(addr string, db int) Option {
	return func(ctx context.Context, d *Dependencies) error {
		client := redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("redis: %w", err)
		}
		d.Redis = client
		return nil
	}
}

func WithNATS(url, name string) Option {
	return func(ctx context.Context, d *Dependencies) error {
		nc, err := nats.Connect(url, nats.Name(name))
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		d.NATS = nc
		return nil
	}
}

// Provider assembles the market data provider chain:
// source -> metrics -> retry -> archive -> cache.
func (c *Config) Provider(ctx context.Context, deps *Dependencies, log zerolog.Logger) (marketdata.Provider, error) {
	if deps == nil {
		deps = &Dependencies{}
	}
	log = logging.Component(log, "marketdata")

	var store *marketdata.PostgresStore
	if deps.Postgres != nil {
		store = marketdata.NewPostgresStore(deps.Postgres, log)
		if c.Archive.Migrate {
			if err := store.Migrate(ctx); err != nil {
				return nil, err
			}
		}
	}

	var p marketdata.Provider
	switch c.Data.Provider {
	case "yahoo":
		p = marketdata.NewYahooProvider(c.Data.YahooURL, c.Data.Timeout)
	case "csv":
		p = marketdata.NewCSVProvider(c.Data.CSVDir, log)
	case "postgres":
		if store == nil {
			return nil, fmt.Errorf("postgres provider needs archive.database_url")
		}
		p = store.Provider(c.Archive.Source)
	default:
		return nil, fmt.Errorf("invalid data.provider: %s", c.Data.Provider)
	}

	p = marketdata.Instrument(p)
	p = marketdata.NewRetryProvider(p, marketdata.RetryPolicy{
		MaxAttempts:     c.Data.Retry.MaxAttempts,
		InitialInterval: c.Data.Retry.InitialInterval,
		MaxInterval:     c.Data.Retry.MaxInterval,
	}, log)
	if store != nil && c.Data.Provider != "postgres" {
		p = marketdata.NewArchivingProvider(p, store, log)
	}
	if deps.Redis != nil {
		p = marketdata.NewCachedProvider(p, deps.Redis, c.Cache.TTL, log)
	}
	return p, nil
}

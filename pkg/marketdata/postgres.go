package marketdata

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/yourusername/quantlink-pairs/pkg/market"
)

//go:embed schema.sql
var schemaSQL string

// DB is the subset of *pgxpool.Pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore 价格历史归档
type PostgresStore struct {
	db  DB
	log zerolog.Logger
	now func() time.Time
}

func NewPostgresStore(db DB, log zerolog.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log, now: time.Now}
}

// Migrate creates the price_history table if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate price_history: %w", err)
	}
	return nil
}

const upsertPrices = `
	INSERT INTO price_history (source, symbol, trade_date, adj_close)
	SELECT $1, $2, d, p FROM unnest($3::date[], $4::float8[]) AS t(d, p)
	ON CONFLICT (source, symbol, trade_date)
	DO UPDATE SET adj_close = EXCLUDED.adj_close, updated_at = now()
`

// SaveSeries upserts the defined points of a series in one transaction.
func (s *PostgresStore) SaveSeries(ctx context.Context, source string, series market.Series) error {
	dates := make([]time.Time, 0, len(series.Values))
	prices := make([]float64, 0, len(series.Values))
	for i, v := range series.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		dates = append(dates, series.Dates[i])
		prices = append(prices, v)
	}
	if len(dates) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, upsertPrices, source, series.Name, dates, prices); err != nil {
		s.log.Error().Err(err).Str("symbol", series.Name).Msg("failed to save price history")
		return fmt.Errorf("save %s: %w", series.Name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const selectPrices = `
	SELECT trade_date, adj_close
	FROM price_history
	WHERE source = $1 AND symbol = $2 AND trade_date >= $3 AND trade_date <= $4
	ORDER BY trade_date ASC
`

// LoadSeries reads [from, to] back in date order.
func (s *PostgresStore) LoadSeries(ctx context.Context, source, symbol string, from, to time.Time) (market.Series, error) {
	rows, err := s.db.Query(ctx, selectPrices, source, symbol, market.Day(from), market.Day(to))
	if err != nil {
		return market.Series{}, fmt.Errorf("load %s: %w", symbol, err)
	}
	defer rows.Close()

	var (
		dates  []time.Time
		values []float64
	)
	for rows.Next() {
		var (
			d time.Time
			p float64
		)
		if err := rows.Scan(&d, &p); err != nil {
			return market.Series{}, fmt.Errorf("scan %s: %w", symbol, err)
		}
		dates = append(dates, d)
		values = append(values, p)
	}
	if err := rows.Err(); err != nil {
		return market.Series{}, fmt.Errorf("load %s: %w", symbol, err)
	}
	return market.NewSeries(symbol, dates, values)
}

// Provider exposes the archive of one source as a Provider.
func (s *PostgresStore) Provider(source string) Provider {
	return &storeProvider{store: s, source: source}
}

type storeProvider struct {
	store  *PostgresStore
	source string
}

func (p *storeProvider) Name() string {
	return "postgres"
}

func (p *storeProvider) Fetch(ctx context.Context, symbol string, period Period) (market.Series, error) {
	now := p.store.now()
	series, err := p.store.LoadSeries(ctx, p.source, symbol, period.Start(now), now)
	if err != nil {
		return market.Series{}, err
	}
	if series.Len() == 0 {
		return market.Series{}, fmt.Errorf("postgres %s/%s: %w", p.source, symbol, ErrNoData)
	}
	return series, nil
}

// ArchivingProvider saves every successful fetch to the store.
type ArchivingProvider struct {
	next  Provider
	store *PostgresStore
	log   zerolog.Logger
}

func NewArchivingProvider(next Provider, store *PostgresStore, log zerolog.Logger) *ArchivingProvider {
	return &ArchivingProvider{next: next, store: store, log: log}
}

func (a *ArchivingProvider) Name() string {
	return a.next.Name()
}

func (a *ArchivingProvider) Fetch(ctx context.Context, symbol string, period Period) (market.Series, error) {
	s, err := a.next.Fetch(ctx, symbol, period)
	if err != nil {
		return market.Series{}, err
	}
	if err := a.store.SaveSeries(ctx, a.next.Name(), s.Rename(symbol)); err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("archive failed")
	}
	return s, nil
}

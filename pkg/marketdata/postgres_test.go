package marketdata

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock, zerolog.Nop()), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS price_history").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveSeriesSkipsNaN(t *testing.T) {
	store, mock := newMockStore(t)
	s := mustSeries("AAA", []string{"2024-01-02", "2024-01-03", "2024-01-04"}, []float64{1, math.NaN(), 3})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO price_history").
		WithArgs("yahoo", "AAA",
			[]time.Time{day("2024-01-02"), day("2024-01-04")},
			[]float64{1, 3}).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	require.NoError(t, store.SaveSeries(context.Background(), "yahoo", s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveSeriesRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	s := mustSeries("AAA", []string{"2024-01-02"}, []float64{1})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO price_history").
		WithArgs("yahoo", "AAA", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.SaveSeries(context.Background(), "yahoo", s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveEmptySeriesIsNoop(t *testing.T) {
	store, mock := newMockStore(t)
	s := mustSeries("AAA", []string{"2024-01-02"}, []float64{math.NaN()})

	require.NoError(t, store.SaveSeries(context.Background(), "yahoo", s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Provider(t *testing.T) {
	store, mock := newMockStore(t)
	store.now = func() time.Time { return time.Date(2024, 1, 31, 15, 0, 0, 0, time.UTC) }

	rows := pgxmock.NewRows([]string{"trade_date", "adj_close"}).
		AddRow(day("2024-01-02"), 10.0).
		AddRow(day("2024-01-03"), 10.5)
	mock.ExpectQuery("SELECT trade_date, adj_close").
		WithArgs("yahoo", "AAA", day("2023-12-31"), day("2024-01-31")).
		WillReturnRows(rows)

	p := store.Provider("yahoo")
	s, err := p.Fetch(context.Background(), "AAA", Period1MO)
	require.NoError(t, err)

	assert.Equal(t, "postgres", p.Name())
	assert.Equal(t, []float64{10, 10.5}, s.Values)
	assert.Equal(t, "AAA", s.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ProviderNoRows(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT trade_date, adj_close").
		WithArgs("yahoo", "AAA", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"trade_date", "adj_close"}))

	_, err := store.Provider("yahoo").Fetch(context.Background(), "AAA", Period1Y)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestArchivingProvider(t *testing.T) {
	store, mock := newMockStore(t)
	f := newFakeProvider()
	f.data["AAA"] = mustSeries("raw", []string{"2024-01-02"}, []float64{5})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO price_history").
		WithArgs("fake", "AAA", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	a := NewArchivingProvider(f, store, zerolog.Nop())
	s, err := a.Fetch(context.Background(), "AAA", Period1Y)
	require.NoError(t, err)
	assert.Equal(t, []float64{5}, s.Values)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchivingProvider_ArchiveFailureIsNotFatal(t *testing.T) {
	store, mock := newMockStore(t)
	f := newFakeProvider()
	f.data["AAA"] = mustSeries("AAA", []string{"2024-01-02"}, []float64{5})

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := NewArchivingProvider(f, store, zerolog.Nop()).Fetch(context.Background(), "AAA", Period1Y)
	assert.NoError(t, err)
}

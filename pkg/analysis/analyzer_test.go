package analysis

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quantlink-pairs/pkg/market"
	"github.com/yourusername/quantlink-pairs/pkg/marketdata"
	"github.com/yourusername/quantlink-pairs/pkg/spread"
	"github.com/yourusername/quantlink-pairs/pkg/stats"
)

func dates(n int) []time.Time {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

// testTable KO 与 PEP 协整（PEP = 30 + 1.5·KO + 噪声），XOM 为独立随机游走
func testTable(t *testing.T, n int) *market.PriceTable {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	ko := make([]float64, n)
	pep := make([]float64, n)
	xom := make([]float64, n)
	a, b := 60.0, 100.0
	for i := 0; i < n; i++ {
		a += rng.NormFloat64() * 0.5
		b += rng.NormFloat64()
		ko[i] = a
		pep[i] = 30 + 1.5*a + rng.NormFloat64()*0.5
		xom[i] = b
	}
	tbl, err := market.NewPriceTable(dates(n), []string{"KO", "PEP", "XOM"}, [][]float64{ko, pep, xom})
	require.NoError(t, err)
	return tbl
}

func newTestAnalyzer(p marketdata.Provider) *Analyzer {
	a := NewAnalyzer(p, marketdata.DefaultOptions(), zerolog.Nop())
	a.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestAnalyzePair(t *testing.T) {
	tbl := testTable(t, 300)
	a := newTestAnalyzer(nil)

	report, err := a.AnalyzePair(context.Background(), tbl, market.NewPair("PEP", "KO"), DefaultOptions())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), report.GeneratedAt)
	assert.Equal(t, spread.SpreadTypeRatio, report.Selected.Kind)
	assert.Equal(t, spread.SpreadTypeDifference, report.Spread.Kind)
	assert.Equal(t, 300, report.Cointegration.NObs)
	assert.Less(t, report.Cointegration.EngleGrangerP, 0.05)
	assert.True(t, report.Cointegrated)
	assert.InDelta(t, 1.5, report.Cointegration.HedgeRatio, 0.1)
	assert.Equal(t, tbl.Len(), report.ZScore.Len())
	require.NotNil(t, report.Partition)
	assert.Len(t, report.Partition.BuyMarks, tbl.Len())
	assert.Equal(t, tbl.Dates()[0], report.Start)
	assert.Equal(t, tbl.Dates()[tbl.Len()-1], report.End)
	assert.Greater(t, report.Stats.Correlation, 0.9)
	assert.Contains(t, report.String(), "PEP/KO")
}

func TestAnalyzePair_MethodsAndWindow(t *testing.T) {
	tbl := testTable(t, 200)
	a := newTestAnalyzer(nil)
	pair := market.NewPair("PEP", "KO")

	opts := DefaultOptions()
	opts.Method = spread.SpreadTypeLog
	opts.Window = 20
	report, err := a.AnalyzePair(context.Background(), tbl, pair, opts)
	require.NoError(t, err)
	assert.Equal(t, spread.SpreadTypeLog, report.Selected.Kind)
	assert.True(t, math.IsNaN(report.ZScore.Values[0]))
	assert.False(t, math.IsNaN(report.ZScore.Values[199]))

	opts = DefaultOptions()
	opts.Method = spread.SpreadTypeDifference
	report, err = a.AnalyzePair(context.Background(), tbl, pair, opts)
	require.NoError(t, err)
	assert.Equal(t, report.Spread.Series.Values, report.Selected.Series.Values)
}

func TestAnalyzePair_Errors(t *testing.T) {
	tbl := testTable(t, 50)
	a := newTestAnalyzer(nil)

	_, err := a.AnalyzePair(context.Background(), tbl, market.NewPair("KO", "GLD"), DefaultOptions())
	assert.ErrorIs(t, err, market.ErrUnknownColumn)

	opts := DefaultOptions()
	opts.CriticalBuy, opts.CriticalSell = -1, 1
	_, err = a.AnalyzePair(context.Background(), tbl, market.NewPair("KO", "PEP"), opts)
	assert.ErrorIs(t, err, spread.ErrInvertedThresholds)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.AnalyzePair(ctx, tbl, market.NewPair("KO", "PEP"), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_SkipsFailures(t *testing.T) {
	tbl := testTable(t, 250)

	short, err := market.NewPriceTable(dates(3), []string{"A", "B"}, [][]float64{{1, 2, 3}, {2, 1, 3}})
	require.NoError(t, err)

	a := newTestAnalyzer(nil)
	pairs := append(AllPairs(tbl.Columns()), market.NewPair("KO", "GLD"))
	result, err := a.Scan(context.Background(), tbl, pairs, DefaultOptions())
	require.NoError(t, err)

	assert.Len(t, result.Reports, 3)
	assert.Equal(t, 1, result.Failed())
	assert.ErrorIs(t, result.Errors[market.NewPair("KO", "GLD")], market.ErrUnknownColumn)

	result, err = a.Scan(context.Background(), short, []market.Pair{market.NewPair("A", "B")}, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, result.Reports)
	assert.ErrorIs(t, result.Errors[market.NewPair("A", "B")], stats.ErrInsufficientData)
}

func TestRank(t *testing.T) {
	mk := func(a string, p float64) *PairReport {
		return &PairReport{Pair: market.NewPair(a, "X"), Cointegration: spread.CointegrationResult{EngleGrangerP: p}}
	}
	in := []*PairReport{mk("A", 0.4), mk("B", math.NaN()), mk("C", 0.01), mk("D", 0.2)}

	ranked := Rank(in)
	got := make([]string, len(ranked))
	for i, r := range ranked {
		got[i] = r.Pair.A
	}
	assert.Equal(t, []string{"C", "D", "A", "B"}, got)
	assert.Equal(t, "A", in[0].Pair.A, "input untouched")
}

func TestCorrelationMatrix(t *testing.T) {
	tbl, err := market.NewPriceTable(dates(5), []string{"A", "B", "C"}, [][]float64{
		{1, 2, 3, 4, 5},
		{2, 4, 6, 8, math.NaN()},
		{5, 4, 3, 2, 1},
	})
	require.NoError(t, err)

	m, err := NewCorrelationMatrix(tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, m.Symbols)
	ab, ok := m.Get("A", "B")
	require.True(t, ok)
	assert.InDelta(t, 1.0, ab, 1e-12)
	ac, _ := m.Get("A", "C")
	assert.InDelta(t, -1.0, ac, 1e-12)
	ca, _ := m.Get("C", "A")
	assert.Equal(t, ac, ca)
	aa, _ := m.Get("A", "A")
	assert.Equal(t, 1.0, aa)

	_, ok = m.Get("A", "Z")
	assert.False(t, ok)
}

type staticProvider map[string]market.Series

func (s staticProvider) Name() string { return "static" }

func (s staticProvider) Fetch(ctx context.Context, symbol string, period marketdata.Period) (market.Series, error) {
	series, ok := s[symbol]
	if !ok {
		return market.Series{}, marketdata.ErrNoData
	}
	return series, nil
}

func TestLoad(t *testing.T) {
	tbl := testTable(t, 30)
	p := staticProvider{}
	for _, name := range tbl.Columns() {
		col, err := tbl.Column(name)
		require.NoError(t, err)
		p[name] = col
	}
	a := newTestAnalyzer(p)

	loaded, err := a.Load(context.Background(), []string{"XOM", "KO"}, marketdata.Period1Y)
	require.NoError(t, err)
	assert.Equal(t, []string{"XOM", "KO"}, loaded.Columns())
	assert.Equal(t, 30, loaded.Len())

	_, err = a.Load(context.Background(), []string{"GLD"}, marketdata.Period1Y)
	assert.ErrorIs(t, err, marketdata.ErrDataUnavailable)

	_, err = newTestAnalyzer(nil).Load(context.Background(), []string{"KO"}, marketdata.Period1Y)
	assert.Error(t, err)
}

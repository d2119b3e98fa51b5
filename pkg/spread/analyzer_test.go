package spread

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quantlink-pairs/pkg/market"
	"github.com/yourusername/quantlink-pairs/pkg/stats"
)

func dates(n int) []time.Time {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func table(t *testing.T, a, b []float64) *market.PriceTable {
	t.Helper()
	tbl, err := market.NewPriceTable(dates(len(a)), []string{"A", "B"}, [][]float64{a, b})
	require.NoError(t, err)
	return tbl
}

var ab = market.NewPair("A", "B")

func TestSpread_Example(t *testing.T) {
	tbl := table(t, []float64{10, 11, 12, 9}, []float64{5, 5, 5, 5})

	rel, err := Spread(tbl, ab)
	require.NoError(t, err)

	assert.Equal(t, SpreadTypeDifference, rel.Kind)
	assert.Equal(t, []float64{5, 6, 7, 4}, rel.Series.Values)
	assert.InDelta(t, 5.5, rel.Mean, 1e-12)
	assert.Equal(t, "Price Spread between A and B", rel.Title())
}

func TestSpread_Antisymmetric(t *testing.T) {
	tbl := table(t, []float64{10, 11.5, math.NaN(), 9.25}, []float64{5, 7.75, 5, 12})

	fwd, err := Spread(tbl, ab)
	require.NoError(t, err)
	rev, err := Spread(tbl, ab.Reverse())
	require.NoError(t, err)

	for i := range fwd.Series.Values {
		if math.IsNaN(fwd.Series.Values[i]) {
			assert.True(t, math.IsNaN(rev.Series.Values[i]))
			continue
		}
		assert.Equal(t, fwd.Series.Values[i], -rev.Series.Values[i])
	}
	assert.InDelta(t, fwd.Mean, -rev.Mean, 1e-12)
}

func TestRatio_ReciprocalAndZeroDenominator(t *testing.T) {
	tbl := table(t, []float64{10, 3, 0, 8}, []float64{4, 0, 0, 2})

	fwd, err := Ratio(tbl, ab)
	require.NoError(t, err)
	rev, err := Ratio(tbl, ab.Reverse())
	require.NoError(t, err)

	assert.InDelta(t, 2.5, fwd.Series.Values[0], 1e-12)
	assert.True(t, math.IsNaN(fwd.Series.Values[1]), "division by zero")
	assert.True(t, math.IsNaN(fwd.Series.Values[2]), "zero over zero")
	assert.InDelta(t, 4.0, fwd.Series.Values[3], 1e-12)

	assert.InDelta(t, 1/fwd.Series.Values[0], rev.Series.Values[0], 1e-12)
	assert.InDelta(t, 1/fwd.Series.Values[3], rev.Series.Values[3], 1e-12)
	assert.Equal(t, 0.0, rev.Series.Values[1])
}

func TestLogSpread_NonPositive(t *testing.T) {
	tbl := table(t, []float64{math.E, -1, 1}, []float64{1, 1, 1})

	rel, err := LogSpread(tbl, ab)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, rel.Series.Values[0], 1e-12)
	assert.True(t, math.IsNaN(rel.Series.Values[1]))
	assert.InDelta(t, 0.0, rel.Series.Values[2], 1e-12)
	assert.InDelta(t, 0.5, rel.Mean, 1e-12)
}

func TestDerive(t *testing.T) {
	tbl := table(t, []float64{10, 12}, []float64{5, 4})

	for _, kind := range []SpreadType{SpreadTypeDifference, SpreadTypeRatio, SpreadTypeLog} {
		rel, err := Derive(tbl, ab, kind)
		require.NoError(t, err)
		assert.Equal(t, kind, rel.Kind)
	}

	_, err := Derive(tbl, ab, SpreadType("bogus"))
	assert.Error(t, err)
}

func TestDerive_Errors(t *testing.T) {
	tbl := table(t, []float64{1, 2}, []float64{3, 4})

	_, err := Spread(tbl, market.NewPair("A", "C"))
	assert.ErrorIs(t, err, market.ErrUnknownColumn)

	_, err = Ratio(tbl, market.NewPair("A", "A"))
	assert.ErrorIs(t, err, market.ErrInvalidPair)
}

func TestRelationship_AllUndefinedMean(t *testing.T) {
	tbl := table(t, []float64{1, 2}, []float64{0, 0})

	rel, err := Ratio(tbl, ab)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(rel.Mean))
}

func TestParseSpreadType(t *testing.T) {
	cases := map[string]SpreadType{
		"spread":     SpreadTypeDifference,
		"difference": SpreadTypeDifference,
		"":           SpreadTypeDifference,
		"Ratio":      SpreadTypeRatio,
		" log ":      SpreadTypeLog,
	}
	for in, want := range cases {
		got, err := ParseSpreadType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSpreadType("zscore")
	assert.Error(t, err)
}

// cointegratedPrices 构造 A = 20 + 2·B + 平稳噪声，B 为随机游走
func cointegratedPrices(seed int64, n int) (a, b []float64) {
	rng := rand.New(rand.NewSource(seed))
	a = make([]float64, n)
	b = make([]float64, n)
	level := 100.0
	for i := 0; i < n; i++ {
		level += rng.NormFloat64()
		b[i] = level
		a[i] = 20 + 2*level + rng.NormFloat64()
	}
	return a, b
}

func TestTestPair_Cointegrated(t *testing.T) {
	a, b := cointegratedPrices(7, 250)
	a[10] = math.NaN()
	tbl := table(t, a, b)

	res, err := TestPair(tbl, ab)
	require.NoError(t, err)

	assert.Equal(t, 249, res.NObs)
	assert.Less(t, res.EngleGrangerP, 0.05)
	assert.True(t, res.Cointegrated(0.05))
	assert.InDelta(t, 2.0, res.HedgeRatio, 0.1)
	for _, p := range []float64{res.EngleGrangerP, res.SpreadADFP, res.RatioADFP} {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestTestPair_InsufficientData(t *testing.T) {
	tbl := table(t, []float64{1, 2, 3}, []float64{2, 1, 4})

	_, err := TestPair(tbl, ab)
	require.Error(t, err)
	assert.ErrorIs(t, err, stats.ErrInsufficientData)
	assert.Contains(t, err.Error(), "engle-granger")
}

func TestTestPair_UnknownColumn(t *testing.T) {
	tbl := table(t, []float64{1, 2, 3}, []float64{2, 1, 4})

	_, err := TestPair(tbl, market.NewPair("A", "X"))
	assert.ErrorIs(t, err, market.ErrUnknownColumn)
}

func TestZScore_RatioExample(t *testing.T) {
	s, err := market.NewSeries("ratio", dates(4), []float64{2, 2, 2, 0})
	require.NoError(t, err)

	z, err := ZScore(s)
	require.NoError(t, err)

	want := []float64{0.5, 0.5, 0.5, -1.5}
	for i := range want {
		assert.InDelta(t, want[i], z.Values[i], 1e-12)
	}
	assert.True(t, s.SameIndex(z))
}

func TestZScore_Constant(t *testing.T) {
	s, err := market.NewSeries("flat", dates(4), []float64{3, 3, 3, 3})
	require.NoError(t, err)

	_, err = ZScore(s)
	assert.ErrorIs(t, err, stats.ErrDegenerateSeries)
}

func TestRollingZScore_KeepsNaNPositions(t *testing.T) {
	values := []float64{1, 2, math.NaN(), 3, 5, 4, 6}
	s, err := market.NewSeries("s", dates(len(values)), values)
	require.NoError(t, err)

	z, err := RollingZScore(s, 3)
	require.NoError(t, err)

	require.Len(t, z.Values, len(values))
	assert.True(t, math.IsNaN(z.Values[0]))
	assert.True(t, math.IsNaN(z.Values[1]))
	assert.True(t, math.IsNaN(z.Values[2]))
	// 窗口 [1,2,3]：均值 2，总体标准差 sqrt(2/3)
	assert.InDelta(t, 1/math.Sqrt(2.0/3.0), z.Values[3], 1e-9)
	assert.False(t, math.IsNaN(z.Values[6]))
}

func TestSummarize(t *testing.T) {
	tbl := table(t, []float64{10, 11, 12, 9}, []float64{5, 5.5, 6, 4.5})

	rel, err := Spread(tbl, ab)
	require.NoError(t, err)
	z, err := ZScore(rel.Series)
	require.NoError(t, err)

	st, err := Summarize(tbl, rel, z)
	require.NoError(t, err)

	assert.Equal(t, 4.5, st.CurrentSpread)
	assert.InDelta(t, rel.Mean, st.Mean, 1e-12)
	assert.InDelta(t, 1.0, st.Correlation, 1e-9)
	assert.InDelta(t, 2.0, st.HedgeRatio, 1e-9)
	// 总体协方差：(0.125+0.125+1.125+1.125)/4
	assert.InDelta(t, 0.625, st.Covariance, 1e-12)
	assert.InDelta(t, z.Values[3], st.ZScore, 1e-12)
}

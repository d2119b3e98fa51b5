package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNewSeries_LengthMismatch(t *testing.T) {
	_, err := NewSeries("A", []time.Time{day("2024-01-02")}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestSeries_MeanIgnoresNaN(t *testing.T) {
	s, err := NewSeries("A",
		[]time.Time{day("2024-01-02"), day("2024-01-03"), day("2024-01-04")},
		[]float64{1, math.NaN(), 3})
	require.NoError(t, err)

	assert.InDelta(t, 2.0, s.Mean(), 1e-12)
	assert.Equal(t, 2, s.Defined())

	min, max, ok := s.MinMax()
	require.True(t, ok)
	assert.Equal(t, 1.0, min)
	assert.Equal(t, 3.0, max)
}

func TestSeries_MeanAllNaN(t *testing.T) {
	s, err := NewSeries("A", []time.Time{day("2024-01-02")}, []float64{math.NaN()})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(s.Mean()))

	_, _, ok := s.Last()
	assert.False(t, ok)
}

func TestSeries_Between(t *testing.T) {
	s, err := NewSeries("A",
		[]time.Time{day("2024-01-02"), day("2024-01-03"), day("2024-01-04")},
		[]float64{1, 2, 3})
	require.NoError(t, err)

	sub := s.Between(day("2024-01-03"), day("2024-01-10"))
	assert.Equal(t, []float64{2, 3}, sub.Values)
}

func TestAlign_UnionOfDatesWithNaN(t *testing.T) {
	a, _ := NewSeries("A", []time.Time{day("2024-01-02"), day("2024-01-03")}, []float64{10, 11})
	b, _ := NewSeries("B", []time.Time{day("2024-01-03"), day("2024-01-04")}, []float64{5, 6})

	table, err := Align(a, b)
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"A", "B"}, table.Columns())

	colA, err := table.Column("A")
	require.NoError(t, err)
	assert.Equal(t, 10.0, colA.Values[0])
	assert.Equal(t, 11.0, colA.Values[1])
	assert.True(t, math.IsNaN(colA.Values[2]))

	colB, err := table.Column("B")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(colB.Values[0]))
	assert.Equal(t, 6.0, colB.Values[2])
}

func TestAlign_PreservesInputOrder(t *testing.T) {
	z, _ := NewSeries("Z", []time.Time{day("2024-01-02")}, []float64{1})
	a, _ := NewSeries("A", []time.Time{day("2024-01-02")}, []float64{2})

	table, err := Align(z, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"Z", "A"}, table.Columns())
}

func TestAlign_DuplicateColumn(t *testing.T) {
	a, _ := NewSeries("A", []time.Time{day("2024-01-02")}, []float64{1})
	_, err := Align(a, a)
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestPriceTable_ColumnIsCopy(t *testing.T) {
	table, err := NewPriceTable([]time.Time{day("2024-01-02")}, []string{"A"}, [][]float64{{1}})
	require.NoError(t, err)

	col, _ := table.Column("A")
	col.Values[0] = 99

	again, _ := table.Column("A")
	assert.Equal(t, 1.0, again.Values[0])
}

func TestPriceTable_UnknownColumn(t *testing.T) {
	table, err := NewPriceTable([]time.Time{day("2024-01-02")}, []string{"A"}, [][]float64{{1}})
	require.NoError(t, err)

	_, err = table.Column("B")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestNewPriceTable_RejectsUnsortedDates(t *testing.T) {
	_, err := NewPriceTable(
		[]time.Time{day("2024-01-03"), day("2024-01-02")},
		[]string{"A"}, [][]float64{{1, 2}})
	assert.Error(t, err)
}

func TestPriceTable_Complete(t *testing.T) {
	table, err := NewPriceTable(
		[]time.Time{day("2024-01-02"), day("2024-01-03"), day("2024-01-04")},
		[]string{"A", "B"},
		[][]float64{{1, math.NaN(), 3}, {4, 5, 6}})
	require.NoError(t, err)

	dates, x, y, err := table.Complete("A", "B")
	require.NoError(t, err)
	assert.Len(t, dates, 2)
	assert.Equal(t, []float64{1, 3}, x)
	assert.Equal(t, []float64{4, 6}, y)
}

func TestParsePair(t *testing.T) {
	tests := []struct {
		in      string
		want    Pair
		wantErr bool
	}{
		{in: "KO/PEP", want: Pair{A: "KO", B: "PEP"}},
		{in: "KO,PEP", want: Pair{A: "KO", B: "PEP"}},
		{in: " KO : PEP ", want: Pair{A: "KO", B: "PEP"}},
		{in: "KO", wantErr: true},
		{in: "/PEP", wantErr: true},
		{in: "A/B/C", wantErr: true},
		{in: "A/B,C", wantErr: true},
		{in: "A:B/C", wantErr: true},
		{in: "A,,B", wantErr: true},
		{in: "BRK.B/KO", want: Pair{A: "BRK.B", B: "KO"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePair(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPair)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPair_Validate(t *testing.T) {
	table, err := NewPriceTable([]time.Time{day("2024-01-02")}, []string{"A", "B"}, [][]float64{{1}, {2}})
	require.NoError(t, err)

	assert.NoError(t, NewPair("A", "B").Validate(table))
	assert.ErrorIs(t, NewPair("A", "A").Validate(table), ErrInvalidPair)
	assert.ErrorIs(t, NewPair("A", "C").Validate(table), ErrUnknownColumn)
	assert.Equal(t, "B/A", NewPair("A", "B").Reverse().String())
}

func TestAllPairs(t *testing.T) {
	pairs := AllPairs([]string{"A", "B", "C"})
	assert.Equal(t, []Pair{{"A", "B"}, {"A", "C"}, {"B", "C"}}, pairs)
	assert.Empty(t, AllPairs(nil))
}

package market

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// PriceTable is a rectangular date x symbol table of adjusted closes.
// All columns share one ascending date index; a symbol without an
// observation on a date holds NaN there. A table is never mutated after
// construction.
type PriceTable struct {
	dates   []time.Time
	names   []string
	columns map[string][]float64
}

// NewPriceTable builds a table from an explicit date index and columns.
// Dates must be strictly increasing.
func NewPriceTable(dates []time.Time, names []string, columns [][]float64) (*PriceTable, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("%w: %d names, %d columns", ErrLengthMismatch, len(names), len(columns))
	}

	t := &PriceTable{
		dates:   make([]time.Time, len(dates)),
		names:   make([]string, 0, len(names)),
		columns: make(map[string][]float64, len(names)),
	}
	for i, d := range dates {
		t.dates[i] = Day(d)
		if i > 0 && !t.dates[i].After(t.dates[i-1]) {
			return nil, fmt.Errorf("dates must be strictly increasing (index %d: %s)", i, t.dates[i].Format("2006-01-02"))
		}
	}

	for i, name := range names {
		if _, dup := t.columns[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, name)
		}
		if len(columns[i]) != len(dates) {
			return nil, fmt.Errorf("%w: column %s has %d values for %d dates", ErrLengthMismatch, name, len(columns[i]), len(dates))
		}
		col := make([]float64, len(columns[i]))
		copy(col, columns[i])
		t.names = append(t.names, name)
		t.columns[name] = col
	}
	return t, nil
}

// Align concatenates series column-wise on the union of their dates,
// keeping the order in which the series are given.
func Align(series ...Series) (*PriceTable, error) {
	seen := make(map[int64]struct{})
	for _, s := range series {
		if len(s.Dates) != len(s.Values) {
			return nil, fmt.Errorf("%w: series %s", ErrLengthMismatch, s.Name)
		}
		for _, d := range s.Dates {
			seen[Day(d).Unix()] = struct{}{}
		}
	}

	keys := make([]int64, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	index := make(map[int64]int, len(keys))
	dates := make([]time.Time, len(keys))
	for i, k := range keys {
		index[k] = i
		dates[i] = time.Unix(k, 0).UTC()
	}

	names := make([]string, len(series))
	columns := make([][]float64, len(series))
	for i, s := range series {
		names[i] = s.Name
		col := make([]float64, len(dates))
		for j := range col {
			col[j] = math.NaN()
		}
		for j, d := range s.Dates {
			// 同一日期重复出现时保留最后一个值
			col[index[Day(d).Unix()]] = s.Values[j]
		}
		columns[i] = col
	}

	return NewPriceTable(dates, names, columns)
}

// Len returns the number of dates.
func (t *PriceTable) Len() int {
	return len(t.dates)
}

// Dates returns a copy of the date index.
func (t *PriceTable) Dates() []time.Time {
	out := make([]time.Time, len(t.dates))
	copy(out, t.dates)
	return out
}

// Columns returns the column names in acquisition order.
func (t *PriceTable) Columns() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether the table has the named column.
func (t *PriceTable) Has(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column returns a copy of one column as a Series.
func (t *PriceTable) Column(name string) (Series, error) {
	col, ok := t.columns[name]
	if !ok {
		return Series{}, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	s := Series{
		Name:   name,
		Dates:  make([]time.Time, len(t.dates)),
		Values: make([]float64, len(col)),
	}
	copy(s.Dates, t.dates)
	copy(s.Values, col)
	return s, nil
}

// Complete returns the rows of the two columns where both are defined.
func (t *PriceTable) Complete(a, b string) (dates []time.Time, x, y []float64, err error) {
	colA, ok := t.columns[a]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrUnknownColumn, a)
	}
	colB, ok := t.columns[b]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrUnknownColumn, b)
	}
	for i := range t.dates {
		if math.IsNaN(colA[i]) || math.IsNaN(colB[i]) {
			continue
		}
		dates = append(dates, t.dates[i])
		x = append(x, colA[i])
		y = append(y, colB[i])
	}
	return dates, x, y, nil
}

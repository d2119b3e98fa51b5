package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/quantlink-pairs/pkg/market"
)

// NewCorrelationMatrix computes pairwise Pearson correlation of the table
// columns over the dates where both columns are defined. Pairs with fewer
// than two common dates are NaN.
func NewCorrelationMatrix(table *market.PriceTable) (*CorrelationMatrix, error) {
	symbols := table.Columns()
	values := make([][]float64, len(symbols))
	for i := range values {
		values[i] = make([]float64, len(symbols))
	}

	for i := range symbols {
		for j := i; j < len(symbols); j++ {
			_, x, y, err := table.Complete(symbols[i], symbols[j])
			if err != nil {
				return nil, err
			}
			c := math.NaN()
			if len(x) >= 2 {
				c = stat.Correlation(x, y, nil)
			}
			if i == j && !math.IsNaN(c) {
				c = 1
			}
			values[i][j] = c
			values[j][i] = c
		}
	}
	return &CorrelationMatrix{Symbols: symbols, Values: values}, nil
}

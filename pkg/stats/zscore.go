package stats

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// degenerateTolerance 标准差相对均值的最小比例，低于此值视为常数序列
const degenerateTolerance = 1e-12

// ZScores 对整个序列做 z-score 标准化：(x - mean) / std
// std 使用样本标准差（n-1）；NaN 不参与计算并原样保留
func ZScores(values []float64) ([]float64, error) {
	defined := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) < 2 {
		return nil, fmt.Errorf("%w: %d defined values", ErrDegenerateSeries, len(defined))
	}
	if !finite(defined) {
		return nil, fmt.Errorf("%w: infinite value in series", ErrNonFinite)
	}

	mean, std := stat.MeanStdDev(defined, nil)
	if std < degenerateTolerance*math.Max(1, math.Abs(mean)) {
		return nil, fmt.Errorf("%w: zero standard deviation", ErrDegenerateSeries)
	}

	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v - mean) / std
	}
	return out, nil
}

// RollingZScores 滚动窗口 z-score：每个点相对于最近 window 个点的均值和总体标准差
// 前 window-1 个点以及窗口内无波动的点为 NaN
func RollingZScores(values []float64, window int) ([]float64, error) {
	if window < 2 || window > len(values) {
		return nil, fmt.Errorf("%w: window %d for %d values", ErrInsufficientData, window, len(values))
	}
	if !finite(values) {
		return nil, fmt.Errorf("%w: rolling z-score needs a gap-free series", ErrNonFinite)
	}

	sma := talib.Sma(values, window)
	std := talib.StdDev(values, window, 1.0)

	out := make([]float64, len(values))
	for i := range values {
		if i < window-1 || std[i] < degenerateTolerance*math.Max(1, math.Abs(sma[i])) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (values[i] - sma[i]) / std[i]
	}
	return out, nil
}

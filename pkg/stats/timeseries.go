// Package stats provides the descriptive statistics and unit-root tests used by pair analysis
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean 计算均值
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// variance 总体方差
func variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.PopVariance(data, nil)
}

// SampleStdDev 计算样本标准差（n-1 自由度）
func SampleStdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Correlation 计算 Pearson 相关系数
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// Covariance 计算总体协方差
// cov(X,Y) = Σ[(xi - x̄)(yi - ȳ)] / n
func Covariance(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0
	}
	meanX := Mean(x)
	meanY := Mean(y)

	var covariance float64
	for i := range x {
		covariance += (x[i] - meanX) * (y[i] - meanY)
	}
	return covariance / float64(len(x))
}

// LinearRegression 计算线性回归 y = slope * x + intercept
// 返回斜率和截距；x 无波动时斜率为 0
func LinearRegression(x, y []float64) (slope, intercept float64) {
	if len(x) != len(y) || len(x) == 0 {
		return 0, 0
	}
	if variance(x) < 1e-10 {
		return 0, Mean(y)
	}
	intercept, slope = stat.LinearRegression(x, y, nil, false)
	return slope, intercept
}

// HedgeRatio 对冲比率：price1 对 price2 的 OLS 斜率
func HedgeRatio(price1, price2 []float64) float64 {
	slope, _ := LinearRegression(price2, price1)
	return slope
}

// CorrelationStats 相关性分析结果
type CorrelationStats struct {
	Correlation float64 // Pearson 相关系数
	Covariance  float64 // 协方差
	HedgeRatio  float64 // x 对 y 的回归系数
}

// CalculateCorrelation 一次计算所有相关性统计
func CalculateCorrelation(x, y []float64) CorrelationStats {
	return CorrelationStats{
		Correlation: Correlation(x, y),
		Covariance:  Covariance(x, y),
		HedgeRatio:  HedgeRatio(x, y),
	}
}

// finite 检查切片中是否全是有限值
func finite(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

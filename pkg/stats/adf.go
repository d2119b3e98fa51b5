package stats

import (
	"fmt"
	"math"
)

// Regression 单位根检验中的确定性项
type Regression string

const (
	// RegressionConstant 含常数项
	RegressionConstant Regression = "c"

	// RegressionNone 不含确定性项（用于协整残差）
	RegressionNone Regression = "n"
)

func (r Regression) trendTerms() int {
	if r == RegressionConstant {
		return 1
	}
	return 0
}

// ADFOptions ADF 检验参数
type ADFOptions struct {
	Regression Regression
	// MaxLag 最大滞后阶数；负数表示使用 12*(n/100)^(1/4) 规则
	MaxLag int
	// FixedLag 为 true 时直接使用 MaxLag，不做 AIC 选择
	FixedLag bool
}

// DefaultADFOptions 含常数项、AIC 自动选阶
func DefaultADFOptions() ADFOptions {
	return ADFOptions{Regression: RegressionConstant, MaxLag: -1}
}

// ADFResult Augmented Dickey-Fuller 检验结果
type ADFResult struct {
	Stat    float64 // t 统计量
	PValue  float64 // MacKinnon 近似 p 值
	UsedLag int     // 使用的滞后阶数
	NObs    int     // 回归使用的样本数
	AIC     float64 // 所选模型的 AIC
}

// ADF runs the Augmented Dickey-Fuller unit-root test with a constant and
// AIC lag selection. A small p-value rejects the unit root, i.e. the series
// is stationary.
func ADF(x []float64) (ADFResult, error) {
	return ADFWithOptions(x, DefaultADFOptions())
}

// ADFWithOptions ADF 检验（自定义参数）
func ADFWithOptions(x []float64, opts ADFOptions) (ADFResult, error) {
	if !finite(x) {
		return ADFResult{}, fmt.Errorf("%w: adf input", ErrNonFinite)
	}
	if opts.Regression == "" {
		opts.Regression = RegressionConstant
	}

	n := len(x)
	ntrend := opts.Regression.trendTerms()
	limit := n/2 - ntrend - 1

	maxlag := opts.MaxLag
	if maxlag < 0 {
		maxlag = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
		if limit < maxlag {
			maxlag = limit
		}
		if maxlag < 0 {
			return ADFResult{}, fmt.Errorf("%w: %d observations too short for adf", ErrInsufficientData, n)
		}
	} else if maxlag > limit {
		return ADFResult{}, fmt.Errorf("%w: maxlag %d exceeds %d for %d observations", ErrInsufficientData, maxlag, limit, n)
	}

	xdiff := make([]float64, n-1)
	for i := 1; i < n; i++ {
		xdiff[i-1] = x[i] - x[i-1]
	}

	usedLag := maxlag
	if !opts.FixedLag && maxlag > 0 {
		lag, err := selectLagAIC(x, xdiff, maxlag, opts.Regression)
		if err != nil {
			return ADFResult{}, err
		}
		usedLag = lag
	}

	y, rows := adfDesign(x, xdiff, usedLag, usedLag, opts.Regression)
	res, err := OLS(y, rows, ntrend > 0)
	if err != nil {
		return ADFResult{}, fmt.Errorf("adf regression: %w", err)
	}

	stat := res.TValues[0]
	if math.IsNaN(stat) {
		return ADFResult{}, fmt.Errorf("%w: adf statistic undefined", ErrDegenerateSeries)
	}

	return ADFResult{
		Stat:    stat,
		PValue:  MacKinnonP(stat, opts.Regression, 1),
		UsedLag: usedLag,
		NObs:    res.NObs,
		AIC:     res.AIC(),
	}, nil
}

// selectLagAIC 在相同样本上比较 0..maxlag 阶模型的 AIC
func selectLagAIC(x, xdiff []float64, maxlag int, reg Regression) (int, error) {
	best := -1
	bestAIC := math.Inf(1)
	for lag := 0; lag <= maxlag; lag++ {
		y, rows := adfDesign(x, xdiff, maxlag, lag, reg)
		res, err := OLS(y, rows, reg.trendTerms() > 0)
		if err != nil {
			return 0, fmt.Errorf("adf lag %d: %w", lag, err)
		}
		// 严格小于：AIC 相同时取较小阶数
		if aic := res.AIC(); best < 0 || aic < bestAIC {
			best, bestAIC = lag, aic
		}
	}
	return best, nil
}

// adfDesign builds Δx_t = γ·x_{t-1} + Σ δ_i·Δx_{t-i} (+ c). trim fixes the
// number of leading observations dropped so that models with different lag
// counts share one sample. The level regressor is always column 0.
func adfDesign(x, xdiff []float64, trim, lags int, reg Regression) ([]float64, [][]float64) {
	nobs := len(xdiff) - trim
	y := make([]float64, nobs)
	rows := make([][]float64, nobs)
	for r := 0; r < nobs; r++ {
		t := trim + r
		y[r] = xdiff[t]
		row := make([]float64, 0, 1+lags+1)
		row = append(row, x[t])
		for i := 1; i <= lags; i++ {
			row = append(row, xdiff[t-i])
		}
		if reg == RegressionConstant {
			row = append(row, 1)
		}
		rows[r] = row
	}
	return y, rows
}

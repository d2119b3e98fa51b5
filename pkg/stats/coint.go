package stats

import (
	"fmt"
	"math"
)

// collinearTolerance R² 高于 1-collinearTolerance 时视为完全共线
var collinearTolerance = 100 * math.Sqrt(2.220446049250313e-16)

// CointResult Engle-Granger 协整检验结果
type CointResult struct {
	Stat       float64 // 残差 ADF t 统计量
	PValue     float64 // MacKinnon 近似 p 值（N=2）
	HedgeRatio float64 // y0 对 y1 的回归斜率
	Intercept  float64
	UsedLag    int
	NObs       int
	Collinear  bool // 两条序列（几乎）完全共线
}

// Coint runs the augmented Engle-Granger two-step cointegration test of y0
// on y1: OLS with a constant, then an ADF test without deterministic terms on
// the residuals. The null hypothesis is no cointegration.
func Coint(y0, y1 []float64) (CointResult, error) {
	if len(y0) != len(y1) {
		return CointResult{}, fmt.Errorf("coint: series lengths differ (%d vs %d)", len(y0), len(y1))
	}
	if !finite(y0) || !finite(y1) {
		return CointResult{}, fmt.Errorf("%w: coint input", ErrNonFinite)
	}
	if len(y0) < 4 {
		return CointResult{}, fmt.Errorf("%w: %d observations too short for coint", ErrInsufficientData, len(y0))
	}

	rows := make([][]float64, len(y1))
	for i, v := range y1 {
		rows[i] = []float64{1, v}
	}
	fit, err := OLS(y0, rows, true)
	if err != nil {
		return CointResult{}, fmt.Errorf("coint regression: %w", err)
	}

	result := CointResult{
		Intercept:  fit.Params[0],
		HedgeRatio: fit.Params[1],
		NObs:       fit.NObs,
	}

	if fit.RSquared >= 1-collinearTolerance {
		result.Collinear = true
		result.Stat = math.Inf(-1)
		result.PValue = 0
		return result, nil
	}

	adf, err := ADFWithOptions(fit.Resid, ADFOptions{Regression: RegressionNone, MaxLag: -1})
	if err != nil {
		return CointResult{}, fmt.Errorf("coint residual adf: %w", err)
	}

	result.Stat = adf.Stat
	result.UsedLag = adf.UsedLag
	result.PValue = MacKinnonP(adf.Stat, RegressionConstant, 2)
	return result, nil
}

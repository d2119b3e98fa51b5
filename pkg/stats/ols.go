package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// OLSResult 普通最小二乘回归结果
type OLSResult struct {
	Params   []float64
	StdErr   []float64
	TValues  []float64
	Resid    []float64
	SSR      float64 // 残差平方和
	RSquared float64
	NObs     int
	K        int
}

// LogLikelihood 高斯对数似然
func (r OLSResult) LogLikelihood() float64 {
	n := float64(r.NObs)
	return -n/2*math.Log(2*math.Pi) - n/2*math.Log(r.SSR/n) - n/2
}

// AIC 赤池信息准则，越小越好
func (r OLSResult) AIC() float64 {
	return -2*r.LogLikelihood() + 2*float64(r.K)
}

// OLS fits y = X·β by least squares. x is row-major (one row per
// observation). hasConst selects the centred R² used when a column of ones
// is part of X.
func OLS(y []float64, x [][]float64, hasConst bool) (OLSResult, error) {
	n := len(y)
	if n == 0 || len(x) != n {
		return OLSResult{}, fmt.Errorf("%w: %d observations, %d rows", ErrInsufficientData, n, len(x))
	}
	k := len(x[0])
	if k == 0 || n <= k {
		return OLSResult{}, fmt.Errorf("%w: %d observations for %d regressors", ErrInsufficientData, n, k)
	}

	design := mat.NewDense(n, k, nil)
	for i, row := range x {
		if len(row) != k {
			return OLSResult{}, fmt.Errorf("ragged design matrix at row %d", i)
		}
		design.SetRow(i, row)
	}
	target := mat.NewVecDense(n, append([]float64(nil), y...))

	var xtx mat.Dense
	xtx.Mul(design.T(), design)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return OLSResult{}, fmt.Errorf("%w: %v", ErrSingularMatrix, err)
	}

	var xty mat.VecDense
	xty.MulVec(design.T(), target)
	var beta mat.VecDense
	beta.MulVec(&inv, &xty)

	var fitted mat.VecDense
	fitted.MulVec(design, &beta)

	res := OLSResult{
		Params:  make([]float64, k),
		StdErr:  make([]float64, k),
		TValues: make([]float64, k),
		Resid:   make([]float64, n),
		NObs:    n,
		K:       k,
	}
	for i := 0; i < n; i++ {
		e := y[i] - fitted.AtVec(i)
		res.Resid[i] = e
		res.SSR += e * e
	}

	sigma2 := res.SSR / float64(n-k)
	for j := 0; j < k; j++ {
		res.Params[j] = beta.AtVec(j)
		res.StdErr[j] = math.Sqrt(sigma2 * inv.At(j, j))
		res.TValues[j] = res.Params[j] / res.StdErr[j]
	}

	var tss float64
	if hasConst {
		mean := Mean(y)
		for _, v := range y {
			tss += (v - mean) * (v - mean)
		}
	} else {
		for _, v := range y {
			tss += v * v
		}
	}
	if tss > 0 {
		res.RSquared = 1 - res.SSR/tss
	} else {
		res.RSquared = 1
	}

	return res, nil
}

package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// MacKinnon (1994, 2010) response surface coefficients for approximate
// asymptotic p-values of unit-root and cointegration t-statistics.
// Rows are indexed by the number of integrated series N (1-based).
type mackinnonSurface struct {
	tauMax  []float64
	tauMin  []float64
	tauStar []float64
	smallP  [][3]float64
	largeP  [][4]float64
}

var mackinnonSurfaces = map[Regression]mackinnonSurface{
	RegressionNone: {
		tauMax:  []float64{math.Inf(1)},
		tauMin:  []float64{-19.04},
		tauStar: []float64{-1.04},
		smallP:  [][3]float64{{0.6344, 1.2378, 3.2496e-2}},
		largeP:  [][4]float64{{0.4797, 9.3557e-1, -6.999e-2, 3.3066e-2}},
	},
	RegressionConstant: {
		tauMax:  []float64{2.74, 0.92},
		tauMin:  []float64{-18.83, -18.86},
		tauStar: []float64{-1.61, -2.62},
		smallP: [][3]float64{
			{2.1659, 1.4412, 3.8269e-2},
			{2.92, 1.5012, 3.9796e-2},
		},
		largeP: [][4]float64{
			{1.7339, 9.3202e-1, -1.2745e-1, -1.0368e-2},
			{2.1945, 6.4695e-1, -2.9198e-1, -4.2377e-2},
		},
	},
}

// MacKinnonP returns the approximate p-value of a Dickey-Fuller type
// t-statistic for the given deterministic terms and number of series.
func MacKinnonP(tstat float64, reg Regression, n int) float64 {
	if math.IsNaN(tstat) {
		return math.NaN()
	}
	surface, ok := mackinnonSurfaces[reg]
	if !ok || n < 1 || n > len(surface.tauStar) {
		return math.NaN()
	}
	i := n - 1

	if tstat > surface.tauMax[i] {
		return 1.0
	}
	if tstat < surface.tauMin[i] {
		return 0.0
	}

	var poly float64
	if tstat <= surface.tauStar[i] {
		c := surface.smallP[i]
		poly = c[0] + c[1]*tstat + c[2]*tstat*tstat
	} else {
		c := surface.largeP[i]
		poly = c[0] + c[1]*tstat + c[2]*tstat*tstat + c[3]*tstat*tstat*tstat
	}
	return distuv.UnitNormal.CDF(poly)
}

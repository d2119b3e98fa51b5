package spread

import (
	"fmt"
	"math"

	"github.com/yourusername/quantlink-pairs/pkg/market"
	"github.com/yourusername/quantlink-pairs/pkg/stats"
)

// Spread 差价 A - B
func Spread(t *market.PriceTable, p market.Pair) (Relationship, error) {
	return derive(t, p, SpreadTypeDifference, func(a, b float64) float64 {
		return a - b
	})
}

// Ratio 比率 A / B；分母为 0 时该点为 NaN
func Ratio(t *market.PriceTable, p market.Pair) (Relationship, error) {
	return derive(t, p, SpreadTypeRatio, ratio)
}

// LogSpread 对数差价 ln(A) - ln(B)；非正价格该点为 NaN
func LogSpread(t *market.PriceTable, p market.Pair) (Relationship, error) {
	return derive(t, p, SpreadTypeLog, func(a, b float64) float64 {
		if a <= 0 || b <= 0 {
			return math.NaN()
		}
		return math.Log(a) - math.Log(b)
	})
}

// Derive dispatches on the spread type.
func Derive(t *market.PriceTable, p market.Pair, kind SpreadType) (Relationship, error) {
	switch kind {
	case SpreadTypeDifference:
		return Spread(t, p)
	case SpreadTypeRatio:
		return Ratio(t, p)
	case SpreadTypeLog:
		return LogSpread(t, p)
	default:
		return Relationship{}, fmt.Errorf("unknown spread type %q", kind)
	}
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	r := a / b
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	return r
}

func derive(t *market.PriceTable, p market.Pair, kind SpreadType, fn func(a, b float64) float64) (Relationship, error) {
	if err := p.Validate(t); err != nil {
		return Relationship{}, err
	}
	colA, err := t.Column(p.A)
	if err != nil {
		return Relationship{}, err
	}
	colB, err := t.Column(p.B)
	if err != nil {
		return Relationship{}, err
	}
	name := fmt.Sprintf("%s(%s)", kind, p)
	series, err := market.Combine(name, colA, colB, fn)
	if err != nil {
		return Relationship{}, err
	}
	return Relationship{
		Kind:   kind,
		Pair:   p,
		Series: series,
		Mean:   series.Mean(),
	}, nil
}

// TestPair 对配对运行 Engle-Granger 协整检验，以及 spread 和 ratio 的 ADF 平稳性检验。
// 只使用两个价格都有定义的日期；ratio 检验另外剔除无定义的比率。
func TestPair(t *market.PriceTable, p market.Pair) (CointegrationResult, error) {
	if err := p.Validate(t); err != nil {
		return CointegrationResult{}, err
	}
	_, a, b, err := t.Complete(p.A, p.B)
	if err != nil {
		return CointegrationResult{}, err
	}

	eg, err := stats.Coint(a, b)
	if err != nil {
		return CointegrationResult{}, fmt.Errorf("engle-granger %s: %w", p, err)
	}

	diff := make([]float64, len(a))
	ratios := make([]float64, 0, len(a))
	for i := range a {
		diff[i] = a[i] - b[i]
		if r := ratio(a[i], b[i]); !math.IsNaN(r) {
			ratios = append(ratios, r)
		}
	}

	spreadADF, err := stats.ADF(diff)
	if err != nil {
		return CointegrationResult{}, fmt.Errorf("spread adf %s: %w", p, err)
	}
	ratioADF, err := stats.ADF(ratios)
	if err != nil {
		return CointegrationResult{}, fmt.Errorf("ratio adf %s: %w", p, err)
	}

	return CointegrationResult{
		EngleGrangerP:    eg.PValue,
		SpreadADFP:       spreadADF.PValue,
		RatioADFP:        ratioADF.PValue,
		EngleGrangerStat: eg.Stat,
		SpreadADFStat:    spreadADF.Stat,
		RatioADFStat:     ratioADF.Stat,
		HedgeRatio:       eg.HedgeRatio,
		NObs:             len(a),
	}, nil
}

// ZScore 全样本 z-score，NaN 保持 NaN
func ZScore(s market.Series) (market.Series, error) {
	z, err := stats.ZScores(s.Values)
	if err != nil {
		return market.Series{}, fmt.Errorf("z-score %s: %w", s.Name, err)
	}
	out := s.Clone()
	out.Name = "zscore(" + s.Name + ")"
	out.Values = z
	return out, nil
}

// RollingZScore 滚动窗口 z-score；NaN 点先被剔除，结果再按原日期放回
func RollingZScore(s market.Series, window int) (market.Series, error) {
	idx := make([]int, 0, len(s.Values))
	vals := make([]float64, 0, len(s.Values))
	for i, v := range s.Values {
		if math.IsNaN(v) {
			continue
		}
		idx = append(idx, i)
		vals = append(vals, v)
	}
	z, err := stats.RollingZScores(vals, window)
	if err != nil {
		return market.Series{}, fmt.Errorf("rolling z-score %s: %w", s.Name, err)
	}
	out := s.Clone()
	out.Name = fmt.Sprintf("zscore%d(%s)", window, s.Name)
	for i := range out.Values {
		out.Values[i] = math.NaN()
	}
	for j, i := range idx {
		out.Values[i] = z[j]
	}
	return out, nil
}

// Summarize 计算配对的最新统计快照
func Summarize(t *market.PriceTable, rel Relationship, z market.Series) (SpreadStats, error) {
	_, a, b, err := t.Complete(rel.Pair.A, rel.Pair.B)
	if err != nil {
		return SpreadStats{}, err
	}
	st := SpreadStats{
		Mean:          rel.Mean,
		CurrentSpread: math.NaN(),
		ZScore:        math.NaN(),
		Std:           math.NaN(),
	}
	if _, v, ok := rel.Series.Last(); ok {
		st.CurrentSpread = v
	}
	if _, v, ok := z.Last(); ok {
		st.ZScore = v
	}
	defined := make([]float64, 0, len(rel.Series.Values))
	for _, v := range rel.Series.Values {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) > 1 {
		st.Std = stats.SampleStdDev(defined)
	}
	cs := stats.CalculateCorrelation(a, b)
	st.Correlation = cs.Correlation
	st.HedgeRatio = cs.HedgeRatio
	st.Covariance = cs.Covariance
	return st, nil
}

package report

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/yourusername/quantlink-pairs/pkg/analysis"
	"github.com/yourusername/quantlink-pairs/pkg/market"
	"github.com/yourusername/quantlink-pairs/pkg/spread"
)

const dateLayout = "2006-01-02"

// Float encodes NaN and ±Inf as JSON null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Point 序列中的一个点
type Point struct {
	Date  string `json:"date"`
	Value Float  `json:"value"`
}

// Points converts a series to JSON points.
func Points(s market.Series) []Point {
	out := make([]Point, len(s.Values))
	for i, v := range s.Values {
		out[i] = Point{Date: s.Dates[i].Format(dateLayout), Value: Float(v)}
	}
	return out
}

// RelationshipDoc 派生序列及其均值参考线
type RelationshipDoc struct {
	Kind   spread.SpreadType `json:"kind"`
	Title  string            `json:"title"`
	Mean   Float             `json:"mean"`
	Min    Float             `json:"min"` // 绘图坐标轴下限
	Max    Float             `json:"max"`
	Points []Point           `json:"points,omitempty"`
}

// PartitionDoc 买卖信号划分
type PartitionDoc struct {
	CriticalBuy  float64       `json:"critical_buy"`
	CriticalSell float64       `json:"critical_sell"`
	BuyCount     int           `json:"buy_count"`
	SellCount    int           `json:"sell_count"`
	Overlap      []string      `json:"overlap"`
	Buy          []Point       `json:"buy,omitempty"`
	Sell         []Point       `json:"sell,omitempty"`
	BuyMarks     []spread.Mark `json:"buy_marks,omitempty"`
	SellMarks    []spread.Mark `json:"sell_marks,omitempty"`
}

// CointegrationDoc 检验结果
type CointegrationDoc struct {
	EngleGrangerP    Float `json:"engle_granger_p"`
	SpreadADFP       Float `json:"spread_adf_p"`
	RatioADFP        Float `json:"ratio_adf_p"`
	EngleGrangerStat Float `json:"engle_granger_stat"`
	SpreadADFStat    Float `json:"spread_adf_stat"`
	RatioADFStat     Float `json:"ratio_adf_stat"`
	HedgeRatio       Float `json:"hedge_ratio"`
	NObs             int   `json:"nobs"`
}

// StatsDoc 最新统计快照
type StatsDoc struct {
	Current     Float `json:"current"`
	Mean        Float `json:"mean"`
	Std         Float `json:"std"`
	ZScore      Float `json:"zscore"`
	Correlation Float `json:"correlation"`
	HedgeRatio  Float `json:"hedge_ratio"`
	Covariance  Float `json:"covariance"`
}

// PairDocument 配对报告的 JSON 形式
type PairDocument struct {
	ID            string           `json:"id"`
	GeneratedAt   time.Time        `json:"generated_at"`
	Pair          string           `json:"pair"`
	A             string           `json:"a"`
	B             string           `json:"b"`
	Method        string           `json:"method"`
	Window        int              `json:"window"`
	Start         string           `json:"start,omitempty"`
	End           string           `json:"end,omitempty"`
	Cointegrated  bool             `json:"cointegrated"`
	Significance  float64          `json:"significance"`
	Cointegration CointegrationDoc `json:"cointegration"`
	Stats         StatsDoc         `json:"stats"`
	Spread        RelationshipDoc  `json:"spread"`
	Ratio         RelationshipDoc  `json:"ratio"`
	Selected      RelationshipDoc  `json:"selected"`
	ZScore        []Point          `json:"zscore,omitempty"`
	Partition     PartitionDoc     `json:"partition"`
}

// NewPairDocument converts a report. Series points are included only when
// withSeries is set.
func NewPairDocument(r *analysis.PairReport, withSeries bool) *PairDocument {
	c := r.Cointegration
	doc := &PairDocument{
		ID:           r.ID,
		GeneratedAt:  r.GeneratedAt,
		Pair:         r.Pair.String(),
		A:            r.Pair.A,
		B:            r.Pair.B,
		Method:       string(r.Options.Method),
		Window:       r.Options.Window,
		Cointegrated: r.Cointegrated,
		Significance: r.Options.Significance,
		Cointegration: CointegrationDoc{
			EngleGrangerP:    Float(c.EngleGrangerP),
			SpreadADFP:       Float(c.SpreadADFP),
			RatioADFP:        Float(c.RatioADFP),
			EngleGrangerStat: Float(c.EngleGrangerStat),
			SpreadADFStat:    Float(c.SpreadADFStat),
			RatioADFStat:     Float(c.RatioADFStat),
			HedgeRatio:       Float(c.HedgeRatio),
			NObs:             c.NObs,
		},
		Stats: StatsDoc{
			Current:     Float(r.Stats.CurrentSpread),
			Mean:        Float(r.Stats.Mean),
			Std:         Float(r.Stats.Std),
			ZScore:      Float(r.Stats.ZScore),
			Correlation: Float(r.Stats.Correlation),
			HedgeRatio:  Float(r.Stats.HedgeRatio),
			Covariance:  Float(r.Stats.Covariance),
		},
		Spread:   relationshipDoc(r.Spread, withSeries),
		Ratio:    relationshipDoc(r.Ratio, withSeries),
		Selected: relationshipDoc(r.Selected, withSeries),
	}
	if !r.Start.IsZero() {
		doc.Start = r.Start.Format(dateLayout)
		doc.End = r.End.Format(dateLayout)
	}
	if p := r.Partition; p != nil {
		buy, sell := p.Counts()
		doc.Partition = PartitionDoc{
			CriticalBuy:  p.CriticalBuy,
			CriticalSell: p.CriticalSell,
			BuyCount:     buy,
			SellCount:    sell,
			Overlap:      formatDates(p.Overlap()),
		}
		if withSeries {
			doc.Partition.Buy = Points(p.Buy)
			doc.Partition.Sell = Points(p.Sell)
			doc.Partition.BuyMarks = p.BuyMarks
			doc.Partition.SellMarks = p.SellMarks
		}
	}
	if withSeries {
		doc.ZScore = Points(r.ZScore)
	}
	return doc
}

func relationshipDoc(rel spread.Relationship, withSeries bool) RelationshipDoc {
	doc := RelationshipDoc{
		Kind:  rel.Kind,
		Title: rel.Title(),
		Mean:  Float(rel.Mean),
	}
	// 没有有效值时 MinMax 返回 NaN，编码为 null
	lo, hi, _ := rel.Series.MinMax()
	doc.Min, doc.Max = Float(lo), Float(hi)
	if withSeries {
		doc.Points = Points(rel.Series)
	}
	return doc
}

func formatDates(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Format(dateLayout)
	}
	return out
}

// PairSummary 扫描结果中的一行
type PairSummary struct {
	Pair          string `json:"pair"`
	EngleGrangerP Float  `json:"engle_granger_p"`
	SpreadADFP    Float  `json:"spread_adf_p"`
	RatioADFP     Float  `json:"ratio_adf_p"`
	HedgeRatio    Float  `json:"hedge_ratio"`
	Correlation   Float  `json:"correlation"`
	ZScore        Float  `json:"zscore"`
	Cointegrated  bool   `json:"cointegrated"`
	NObs          int    `json:"nobs"`
}

// Summarize 报告摘要
func Summarize(r *analysis.PairReport) PairSummary {
	return PairSummary{
		Pair:          r.Pair.String(),
		EngleGrangerP: Float(r.Cointegration.EngleGrangerP),
		SpreadADFP:    Float(r.Cointegration.SpreadADFP),
		RatioADFP:     Float(r.Cointegration.RatioADFP),
		HedgeRatio:    Float(r.Cointegration.HedgeRatio),
		Correlation:   Float(r.Stats.Correlation),
		ZScore:        Float(r.Stats.ZScore),
		Cointegrated:  r.Cointegrated,
		NObs:          r.Cointegration.NObs,
	}
}

// ScanDocument 扫描结果，按 Engle-Granger p 值排序
type ScanDocument struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Pairs       []PairSummary     `json:"pairs"`
	Errors      map[string]string `json:"errors"`
}

// NewScanDocument converts a scan result.
func NewScanDocument(res *analysis.ScanResult, now time.Time) *ScanDocument {
	ranked := analysis.Rank(res.Reports)
	doc := &ScanDocument{
		GeneratedAt: now,
		Pairs:       make([]PairSummary, len(ranked)),
		Errors:      make(map[string]string, len(res.Errors)),
	}
	for i, r := range ranked {
		doc.Pairs[i] = Summarize(r)
	}
	for p, err := range res.Errors {
		doc.Errors[p.String()] = err.Error()
	}
	return doc
}

// CorrelationDocument 相关系数矩阵
type CorrelationDocument struct {
	Symbols []string  `json:"symbols"`
	Matrix  [][]Float `json:"matrix"`
}

// NewCorrelationDocument converts a correlation matrix.
func NewCorrelationDocument(m *analysis.CorrelationMatrix) *CorrelationDocument {
	doc := &CorrelationDocument{
		Symbols: m.Symbols,
		Matrix:  make([][]Float, len(m.Values)),
	}
	for i, row := range m.Values {
		doc.Matrix[i] = make([]Float, len(row))
		for j, v := range row {
			doc.Matrix[i][j] = Float(v)
		}
	}
	return doc
}

// errorPairs 按名称排序的失败配对
func errorPairs(errs map[string]string) []string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

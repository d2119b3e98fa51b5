package analysis

import (
	"time"

	"github.com/yourusername/quantlink-pairs/pkg/market"
	"github.com/yourusername/quantlink-pairs/pkg/spread"
)

// Options 单个配对的分析参数
type Options struct {
	Method       spread.SpreadType
	CriticalBuy  float64
	CriticalSell float64
	Window       int     // 0 表示全样本 z-score
	Significance float64 // 协整判定的显著性水平
}

// DefaultOptions 默认分析参数
func DefaultOptions() Options {
	return Options{
		Method:       spread.SpreadTypeRatio,
		CriticalBuy:  spread.DefaultCriticalBuy,
		CriticalSell: spread.DefaultCriticalSell,
		Significance: 0.05,
	}
}

// PairReport 配对分析结果
type PairReport struct {
	ID          string
	GeneratedAt time.Time
	Pair        market.Pair
	Options     Options
	Start       time.Time
	End         time.Time

	Spread        spread.Relationship
	Ratio         spread.Relationship
	Selected      spread.Relationship
	Cointegration spread.CointegrationResult
	Cointegrated  bool
	ZScore        market.Series
	Partition     *spread.Partition
	Stats         spread.SpreadStats
}

// ScanResult 批量分析结果；失败的配对记录在 Errors 中
type ScanResult struct {
	Reports []*PairReport
	Errors  map[market.Pair]error
}

// Failed 失败配对数量
func (r *ScanResult) Failed() int {
	return len(r.Errors)
}

// CorrelationMatrix 价格相关系数矩阵，Values[i][j] 对应 Symbols[i] 与 Symbols[j]
type CorrelationMatrix struct {
	Symbols []string
	Values  [][]float64
}

// Get 查询两个代码的相关系数
func (m *CorrelationMatrix) Get(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, s := range m.Symbols {
		if s == a {
			i = k
		}
		if s == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

package spread

import (
	"fmt"
	"math"
	"time"

	"github.com/yourusername/quantlink-pairs/pkg/market"
)

// Mark 单侧信号在某个日期的状态
type Mark int8

const (
	// MarkUndefined 序列值或 z-score 为 NaN
	MarkUndefined Mark = iota
	// MarkExcluded 被阈值排除（值置 0）
	MarkExcluded
	// MarkRetained 保留原值
	MarkRetained
)

func (m Mark) String() string {
	switch m {
	case MarkExcluded:
		return "excluded"
	case MarkRetained:
		return "retained"
	default:
		return "undefined"
	}
}

// MarshalText 让 Mark 在 JSON 中编码为字符串
func (m Mark) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText 解析 MarshalText 的输出
func (m *Mark) UnmarshalText(text []byte) error {
	switch string(text) {
	case "retained":
		*m = MarkRetained
	case "excluded":
		*m = MarkExcluded
	case "undefined":
		*m = MarkUndefined
	default:
		return fmt.Errorf("unknown mark %q", text)
	}
	return nil
}

// Partition 按 z-score 阈值把序列拆成买入 / 卖出两侧。
// Buy 在 z > CriticalBuy 处为 0，Sell 在 z < CriticalSell 处为 0，其余保留原值。
// z 为 NaN 时比较不成立，值保留，对应 Mark 为 MarkUndefined。
type Partition struct {
	CriticalBuy  float64
	CriticalSell float64

	Buy       market.Series
	Sell      market.Series
	BuyMarks  []Mark
	SellMarks []Mark

	z market.Series
}

// NewPartition 计算信号划分
func NewPartition(series, z market.Series, criticalBuy, criticalSell float64) (*Partition, error) {
	if !isFinite(criticalBuy) || !isFinite(criticalSell) {
		return nil, fmt.Errorf("%w: buy=%v sell=%v", ErrInvalidThreshold, criticalBuy, criticalSell)
	}
	if criticalBuy < criticalSell {
		return nil, fmt.Errorf("%w: buy=%v sell=%v", ErrInvertedThresholds, criticalBuy, criticalSell)
	}
	if len(series.Values) != len(z.Values) || !series.SameIndex(z) {
		return nil, fmt.Errorf("%w: %s (%d) vs %s (%d)",
			ErrLengthMismatch, series.Name, len(series.Values), z.Name, len(z.Values))
	}

	p := &Partition{
		CriticalBuy:  criticalBuy,
		CriticalSell: criticalSell,
		Buy:          series.Rename("buy"),
		Sell:         series.Rename("sell"),
		BuyMarks:     make([]Mark, len(series.Values)),
		SellMarks:    make([]Mark, len(series.Values)),
		z:            z.Clone(),
	}

	for i, zi := range z.Values {
		undefined := math.IsNaN(zi) || math.IsNaN(series.Values[i])

		if zi > criticalBuy {
			p.Buy.Values[i] = 0
			p.BuyMarks[i] = MarkExcluded
		} else if undefined {
			p.BuyMarks[i] = MarkUndefined
		} else {
			p.BuyMarks[i] = MarkRetained
		}

		if zi < criticalSell {
			p.Sell.Values[i] = 0
			p.SellMarks[i] = MarkExcluded
		} else if undefined {
			p.SellMarks[i] = MarkUndefined
		} else {
			p.SellMarks[i] = MarkRetained
		}
	}
	return p, nil
}

// Overlap 返回两侧都保留的日期，即 CriticalSell <= z <= CriticalBuy
func (p *Partition) Overlap() []time.Time {
	var out []time.Time
	for i := range p.BuyMarks {
		if p.BuyMarks[i] == MarkRetained && p.SellMarks[i] == MarkRetained {
			out = append(out, p.z.Dates[i])
		}
	}
	return out
}

// Counts 统计两侧被保留的点数
func (p *Partition) Counts() (buy, sell int) {
	for i := range p.BuyMarks {
		if p.BuyMarks[i] == MarkRetained {
			buy++
		}
		if p.SellMarks[i] == MarkRetained {
			sell++
		}
	}
	return buy, sell
}

// ZScores 划分所用的 z-score 序列
func (p *Partition) ZScores() market.Series {
	return p.z
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

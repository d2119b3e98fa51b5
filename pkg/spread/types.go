// Package spread derives pair relationships (spread, ratio, log spread),
// tests them for cointegration and partitions them into z-score signals.
package spread

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yourusername/quantlink-pairs/pkg/market"
)

// SpreadType 定义 spread 计算类型
type SpreadType string

const (
	// SpreadTypeDifference 差价 spread: price1 - price2
	SpreadTypeDifference SpreadType = "spread"

	// SpreadTypeRatio 比率 spread: price1 / price2
	SpreadTypeRatio SpreadType = "ratio"

	// SpreadTypeLog 对数 spread: log(price1) - log(price2)
	// 常用于协整分析
	SpreadTypeLog SpreadType = "log"
)

// ParseSpreadType 解析 spread 类型，接受 "spread"/"difference"/"diff"、"ratio"、"log"
func ParseSpreadType(s string) (SpreadType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spread", "difference", "diff", "":
		return SpreadTypeDifference, nil
	case "ratio":
		return SpreadTypeRatio, nil
	case "log":
		return SpreadTypeLog, nil
	default:
		return "", fmt.Errorf("unknown spread type %q (want spread, ratio or log)", s)
	}
}

// Label 用于图例和报告标题
func (t SpreadType) Label() string {
	switch t {
	case SpreadTypeRatio:
		return "Price Ratio"
	case SpreadTypeLog:
		return "Log Spread"
	default:
		return "Price Spread"
	}
}

// Default critical z-scores used when none are configured.
const (
	DefaultCriticalBuy  = 1.0
	DefaultCriticalSell = -1.0
)

var (
	// ErrInvertedThresholds is returned when the buy threshold is below the sell threshold
	ErrInvertedThresholds = errors.New("critical buy below critical sell")

	// ErrInvalidThreshold is returned for NaN or infinite thresholds
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrLengthMismatch is returned when a series and its z-scores are not aligned
	ErrLengthMismatch = market.ErrLengthMismatch
)

// Relationship is a derived pair series plus its mean, which a renderer
// draws as the reference line.
type Relationship struct {
	Kind   SpreadType
	Pair   market.Pair
	Series market.Series
	Mean   float64
}

// Title 图表标题
func (r Relationship) Title() string {
	return fmt.Sprintf("%s between %s and %s", r.Kind.Label(), r.Pair.A, r.Pair.B)
}

// SpreadStats spread 统计信息（最新一个有效点）
type SpreadStats struct {
	CurrentSpread float64 // 当前 spread 值
	Mean          float64 // Spread 均值
	Std           float64 // Spread 样本标准差
	ZScore        float64 // 当前 Z-Score
	Correlation   float64 // 价格相关系数
	HedgeRatio    float64 // 对冲比率（OLS 斜率）
	Covariance    float64 // 价格总体协方差
}

// CointegrationResult 配对检验结果：三个 p 值越小，协整 / 平稳的证据越强
type CointegrationResult struct {
	EngleGrangerP    float64 `json:"engle_granger_p"`
	SpreadADFP       float64 `json:"spread_adf_p"`
	RatioADFP        float64 `json:"ratio_adf_p"`
	EngleGrangerStat float64 `json:"engle_granger_stat"`
	SpreadADFStat    float64 `json:"spread_adf_stat"`
	RatioADFStat     float64 `json:"ratio_adf_stat"`
	HedgeRatio       float64 `json:"hedge_ratio"`
	NObs             int     `json:"nobs"`
}

// Cointegrated 在给定显著性水平下 Engle-Granger 检验是否拒绝“无协整”
func (r CointegrationResult) Cointegrated(alpha float64) bool {
	return r.EngleGrangerP < alpha
}

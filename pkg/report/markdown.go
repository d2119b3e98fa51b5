package report

import (
	"fmt"
	"io"
	"math"

	"github.com/shopspring/decimal"

	"github.com/yourusername/quantlink-pairs/pkg/analysis"
)

func writePairMarkdown(file io.Writer, r *analysis.PairReport) {
	c := r.Cointegration
	fmt.Fprintf(file, "# 配对分析报告: %s\n\n", r.Pair)
	fmt.Fprintf(file, "**报告ID**: %s\n", r.ID)
	if !r.Start.IsZero() {
		fmt.Fprintf(file, "**日期**: %s 至 %s\n", r.Start.Format(dateLayout), r.End.Format(dateLayout))
	}
	fmt.Fprintf(file, "**方法**: %s\n", r.Selected.Title())
	fmt.Fprintf(file, "**有效样本**: %d\n\n", c.NObs)
	fmt.Fprintf(file, "---\n\n")

	// Tests
	fmt.Fprintf(file, "## 平稳性与协整检验\n\n")
	fmt.Fprintf(file, "| 检验 | 统计量 | p 值 |\n")
	fmt.Fprintf(file, "|------|--------|------|\n")
	fmt.Fprintf(file, "| **Engle-Granger** | %s | %s |\n", num(c.EngleGrangerStat, 4), num(c.EngleGrangerP, 4))
	fmt.Fprintf(file, "| **ADF (spread)** | %s | %s |\n", num(c.SpreadADFStat, 4), num(c.SpreadADFP, 4))
	fmt.Fprintf(file, "| **ADF (ratio)** | %s | %s |\n\n", num(c.RatioADFStat, 4), num(c.RatioADFP, 4))
	fmt.Fprintf(file, "- **协整 (α=%.2f)**: %s\n", r.Options.Significance, evaluateCointegration(r.Cointegrated))
	fmt.Fprintf(file, "- **对冲比率**: %s\n\n", num(c.HedgeRatio, 4))

	// Relationships
	fmt.Fprintf(file, "## 价差统计\n\n")
	fmt.Fprintf(file, "| 指标 | 数值 |\n")
	fmt.Fprintf(file, "|------|------|\n")
	fmt.Fprintf(file, "| **Spread 均值** | %s |\n", num(r.Spread.Mean, 4))
	fmt.Fprintf(file, "| **Ratio 均值** | %s |\n", num(r.Ratio.Mean, 4))
	fmt.Fprintf(file, "| **当前值** | %s |\n", num(r.Stats.CurrentSpread, 4))
	fmt.Fprintf(file, "| **标准差** | %s |\n", num(r.Stats.Std, 4))
	fmt.Fprintf(file, "| **当前 Z-Score** | %s |\n", num(r.Stats.ZScore, 2))
	fmt.Fprintf(file, "| **价格相关系数** | %s |\n", num(r.Stats.Correlation, 4))
	fmt.Fprintf(file, "| **价格协方差** | %s |\n\n", num(r.Stats.Covariance, 4))

	// Signals
	if p := r.Partition; p != nil {
		buy, sell := p.Counts()
		fmt.Fprintf(file, "## 信号划分\n\n")
		fmt.Fprintf(file, "- **买入阈值**: z ≤ %.2f（保留 %d 点）\n", p.CriticalBuy, buy)
		fmt.Fprintf(file, "- **卖出阈值**: z ≥ %.2f（保留 %d 点）\n", p.CriticalSell, sell)
		fmt.Fprintf(file, "- **重叠区间**: %d 点\n\n", len(p.Overlap()))

		fmt.Fprintf(file, "| 日期 | 值 | Z-Score | 买入 | 卖出 |\n")
		fmt.Fprintf(file, "|------|----|---------|------|------|\n")
		limit := 10
		n := len(r.ZScore.Values)
		start := n - limit
		if start < 0 {
			start = 0
		}
		for i := start; i < n; i++ {
			fmt.Fprintf(file, "| %s | %s | %s | %s | %s |\n",
				r.ZScore.Dates[i].Format(dateLayout),
				num(r.Selected.Series.Values[i], 4),
				num(r.ZScore.Values[i], 2),
				p.BuyMarks[i], p.SellMarks[i])
		}
		fmt.Fprintf(file, "\n")
		if n > limit {
			fmt.Fprintf(file, "*...共 %d 天，仅显示最近 %d 天*\n\n", n, limit)
		}
	}

	// Footer
	fmt.Fprintf(file, "---\n\n")
	fmt.Fprintf(file, "**报告生成时间**: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
}

func writeScanMarkdown(file io.Writer, doc *ScanDocument) {
	fmt.Fprintf(file, "# 配对扫描\n\n")
	fmt.Fprintf(file, "| # | 配对 | EG p | Spread ADF p | Ratio ADF p | 对冲比率 | 相关系数 | 协整 |\n")
	fmt.Fprintf(file, "|---|------|------|--------------|-------------|----------|----------|------|\n")
	for i, s := range doc.Pairs {
		fmt.Fprintf(file, "| %d | %s | %s | %s | %s | %s | %s | %s |\n",
			i+1, s.Pair,
			num(float64(s.EngleGrangerP), 4), num(float64(s.SpreadADFP), 4), num(float64(s.RatioADFP), 4),
			num(float64(s.HedgeRatio), 3), num(float64(s.Correlation), 3),
			evaluateCointegration(s.Cointegrated))
	}
	fmt.Fprintf(file, "\n")

	if len(doc.Errors) > 0 {
		fmt.Fprintf(file, "## 失败配对\n\n")
		for _, pair := range errorPairs(doc.Errors) {
			fmt.Fprintf(file, "- **%s**: %s\n", pair, doc.Errors[pair])
		}
		fmt.Fprintf(file, "\n")
	}

	fmt.Fprintf(file, "---\n\n")
	fmt.Fprintf(file, "**报告生成时间**: %s\n", doc.GeneratedAt.Format("2006-01-02 15:04:05"))
}

func writeCorrelationMarkdown(file io.Writer, m *analysis.CorrelationMatrix) {
	fmt.Fprintf(file, "# 相关系数矩阵\n\n|  |")
	for _, s := range m.Symbols {
		fmt.Fprintf(file, " %s |", s)
	}
	fmt.Fprintf(file, "\n|---|")
	for range m.Symbols {
		fmt.Fprintf(file, "---|")
	}
	fmt.Fprintf(file, "\n")
	for i, s := range m.Symbols {
		fmt.Fprintf(file, "| **%s** |", s)
		for _, v := range m.Values[i] {
			fmt.Fprintf(file, " %s |", num(v, 3))
		}
		fmt.Fprintf(file, "\n")
	}
}

func num(v float64, prec int) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsInf(v, 1):
		return "+inf"
	}
	// 定点格式，避免出现 -0.0000
	return decimal.NewFromFloat(v).StringFixed(int32(prec))
}

func evaluateCointegration(ok bool) string {
	if ok {
		return "✓ 是"
	}
	return "✗ 否"
}

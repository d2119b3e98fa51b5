// Package market holds the date-indexed price table shared by every analysis stage.
package market

import (
	"fmt"
	"math"
	"time"
)

// Series 按日期索引的数值序列，缺失值用 NaN 表示
type Series struct {
	Name   string
	Dates  []time.Time
	Values []float64
}

// NewSeries 创建序列，日期统一归一到 UTC 零点
func NewSeries(name string, dates []time.Time, values []float64) (Series, error) {
	if len(dates) != len(values) {
		return Series{}, fmt.Errorf("%w: %d dates, %d values", ErrLengthMismatch, len(dates), len(values))
	}
	s := Series{
		Name:   name,
		Dates:  make([]time.Time, len(dates)),
		Values: make([]float64, len(values)),
	}
	for i, d := range dates {
		s.Dates[i] = Day(d)
	}
	copy(s.Values, values)
	return s, nil
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Len 返回数据点数量
func (s Series) Len() int {
	return len(s.Values)
}

// Clone 返回深拷贝
func (s Series) Clone() Series {
	c := Series{
		Name:   s.Name,
		Dates:  make([]time.Time, len(s.Dates)),
		Values: make([]float64, len(s.Values)),
	}
	copy(c.Dates, s.Dates)
	copy(c.Values, s.Values)
	return c
}

// Rename 返回改名后的副本
func (s Series) Rename(name string) Series {
	c := s.Clone()
	c.Name = name
	return c
}

// Defined 返回非 NaN 数据点数量
func (s Series) Defined() int {
	n := 0
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Mean 计算均值，忽略 NaN；没有有效值时返回 NaN
func (s Series) Mean() float64 {
	var sum float64
	n := 0
	for _, v := range s.Values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// MinMax 返回有效值的最小值和最大值（报告中的坐标轴范围）
func (s Series) MinMax() (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range s.Values {
		if math.IsNaN(v) {
			continue
		}
		ok = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if !ok {
		return math.NaN(), math.NaN(), false
	}
	return min, max, true
}

// Last 获取最新的有效数据点
func (s Series) Last() (time.Time, float64, bool) {
	for i := len(s.Values) - 1; i >= 0; i-- {
		if !math.IsNaN(s.Values[i]) {
			return s.Dates[i], s.Values[i], true
		}
	}
	return time.Time{}, 0, false
}

// Between 获取指定日期范围（含两端）的数据
func (s Series) Between(start, end time.Time) Series {
	start, end = Day(start), Day(end)
	out := Series{Name: s.Name}
	for i, d := range s.Dates {
		if d.Before(start) || d.After(end) {
			continue
		}
		out.Dates = append(out.Dates, d)
		out.Values = append(out.Values, s.Values[i])
	}
	return out
}

// SameIndex 判断两个序列是否共享同一日期索引
func (s Series) SameIndex(other Series) bool {
	if len(s.Dates) != len(other.Dates) {
		return false
	}
	for i := range s.Dates {
		if !s.Dates[i].Equal(other.Dates[i]) {
			return false
		}
	}
	return true
}

// Combine 对两个同索引序列逐点运算
func Combine(name string, a, b Series, fn func(x, y float64) float64) (Series, error) {
	if !a.SameIndex(b) {
		return Series{}, fmt.Errorf("%w: %s and %s are not date-aligned", ErrLengthMismatch, a.Name, b.Name)
	}
	out := Series{
		Name:   name,
		Dates:  make([]time.Time, len(a.Dates)),
		Values: make([]float64, len(a.Values)),
	}
	copy(out.Dates, a.Dates)
	for i := range a.Values {
		x, y := a.Values[i], b.Values[i]
		if math.IsNaN(x) || math.IsNaN(y) {
			out.Values[i] = math.NaN()
			continue
		}
		out.Values[i] = fn(x, y)
	}
	return out, nil
}

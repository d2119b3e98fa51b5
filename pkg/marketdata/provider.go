// Package marketdata fetches daily adjusted closes and assembles them into
// a market.PriceTable.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/quantlink-pairs/pkg/market"
)

var (
	// ErrNoData is returned by a provider when a symbol has no history
	ErrNoData = errors.New("no data")

	// ErrInvalidPeriod is returned for an unrecognised period descriptor
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidSymbol is returned for empty or duplicate symbols
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrDataUnavailable is returned when any requested symbol yields no data
	ErrDataUnavailable = errors.New("data unavailable")
)

// DataUnavailableError names the symbol that failed acquisition.
type DataUnavailableError struct {
	Symbol string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable for %s: %v", e.Symbol, e.Err)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

func (e *DataUnavailableError) Is(target error) bool {
	return target == ErrDataUnavailable
}

// Provider 行情数据源：返回某个代码在给定周期内的每日复权收盘价
type Provider interface {
	Fetch(ctx context.Context, symbol string, period Period) (market.Series, error)
	Name() string
}

// Period 历史区间描述符
type Period string

const (
	Period1D  Period = "1d"
	Period5D  Period = "5d"
	Period1MO Period = "1mo"
	Period3MO Period = "3mo"
	Period6MO Period = "6mo"
	Period1Y  Period = "1y"
	Period2Y  Period = "2y"
	Period5Y  Period = "5y"
	Period10Y Period = "10y"
	PeriodYTD Period = "ytd"
	PeriodMax Period = "max"
)

var periods = []Period{
	Period1D, Period5D, Period1MO, Period3MO, Period6MO,
	Period1Y, Period2Y, Period5Y, Period10Y, PeriodYTD, PeriodMax,
}

// ParsePeriod 解析周期字符串（大小写不敏感）
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range periods {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// Start returns the first calendar date covered by the period when it ends
// on now. PeriodMax returns the zero time.
func (p Period) Start(now time.Time) time.Time {
	now = market.Day(now)
	switch p {
	case Period1D:
		return now.AddDate(0, 0, -1)
	case Period5D:
		return now.AddDate(0, 0, -5)
	case Period1MO:
		return now.AddDate(0, -1, 0)
	case Period3MO:
		return now.AddDate(0, -3, 0)
	case Period6MO:
		return now.AddDate(0, -6, 0)
	case Period1Y:
		return now.AddDate(-1, 0, 0)
	case Period2Y:
		return now.AddDate(-2, 0, 0)
	case Period5Y:
		return now.AddDate(-5, 0, 0)
	case Period10Y:
		return now.AddDate(-10, 0, 0)
	case PeriodYTD:
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}
	}
}

func (p Period) String() string {
	return string(p)
}

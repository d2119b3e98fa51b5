package api

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/yourusername/quantlink-pairs/pkg/analysis"
	"github.com/yourusername/quantlink-pairs/pkg/market"
	"github.com/yourusername/quantlink-pairs/pkg/marketdata"
	"github.com/yourusername/quantlink-pairs/pkg/spread"
)

// ErrValidation marks request errors that map to 400.
var ErrValidation = errors.New("invalid request")

// Validator handles validation logic separate from HTTP concerns
type Validator struct {
	symbolRegex *regexp.Regexp
	maxWindow   int
}

var (
	validatorInstance *Validator
	validatorOnce     sync.Once
)

// GetValidator returns the singleton validator instance
func GetValidator() *Validator {
	validatorOnce.Do(func() {
		validatorInstance = &Validator{
			// Yahoo style tickers: BRK.B, ^GSPC, EURUSD=X, BTC-USD
			symbolRegex: regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-=^]{0,14}$`),
			maxWindow:   5000,
		}
	})
	return validatorInstance
}

// AnalyzeQuery 单个配对请求的原始参数
type AnalyzeQuery struct {
	A, B, Period, Method, Buy, Sell, Window, Series string
}

// AnalyzeRequest 校验后的单配对请求
type AnalyzeRequest struct {
	Pair       market.Pair
	Period     marketdata.Period
	Options    analysis.Options
	WithSeries bool
}

// OptionsQuery 扫描与单配对共用的分析参数
type OptionsQuery struct {
	Method, Buy, Sell, Window string
}

// ValidateAnalyzeRequest validates and sanitizes a single-pair request.
func (v *Validator) ValidateAnalyzeRequest(q AnalyzeQuery, defaults Defaults) (AnalyzeRequest, error) {
	var req AnalyzeRequest

	a, err := v.validateSymbol(q.A)
	if err != nil {
		return req, err
	}
	b, err := v.validateSymbol(q.B)
	if err != nil {
		return req, err
	}
	if a == b {
		return req, validationError("pair legs must differ, got %s twice", a)
	}
	req.Pair = market.NewPair(a, b)

	if req.Period, err = v.validatePeriod(q.Period, defaults.Period); err != nil {
		return req, err
	}
	if req.Options, err = v.validateOptions(OptionsQuery{q.Method, q.Buy, q.Sell, q.Window}, defaults.Options); err != nil {
		return req, err
	}

	req.WithSeries = true
	if s := v.sanitizeInput(q.Series); s != "" {
		if req.WithSeries, err = strconv.ParseBool(s); err != nil {
			return req, validationError("series must be true or false")
		}
	}
	return req, nil
}

// ValidateSymbols validates a comma separated symbol list.
func (v *Validator) ValidateSymbols(raw string, max int) ([]string, error) {
	raw = v.sanitizeInput(raw)
	if raw == "" {
		return nil, validationError("symbols parameter is required")
	}
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		sym, err := v.validateSymbol(part)
		if err != nil {
			return nil, err
		}
		if seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	if len(out) < 2 {
		return nil, validationError("at least 2 distinct symbols are required")
	}
	if len(out) > max {
		return nil, validationError("at most %d symbols are allowed", max)
	}
	return out, nil
}

// ValidatePeriod validates a period, falling back to def when empty.
func (v *Validator) ValidatePeriod(raw string, def marketdata.Period) (marketdata.Period, error) {
	return v.validatePeriod(raw, def)
}

// ValidateOptions validates the shared analysis parameters.
func (v *Validator) ValidateOptions(q OptionsQuery, defaults analysis.Options) (analysis.Options, error) {
	return v.validateOptions(q, defaults)
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func (v *Validator) sanitizeInput(input string) string {
	input = strings.TrimSpace(input)

	// Remove null bytes and control characters
	input = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, input)

	// Limit length to prevent DoS
	if len(input) > 512 {
		input = input[:512]
	}
	return input
}

func (v *Validator) validateSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(v.sanitizeInput(symbol))
	if symbol == "" {
		return "", validationError("symbol parameter is required")
	}
	if !v.symbolRegex.MatchString(symbol) {
		return "", fmt.Errorf("%w: %q", marketdata.ErrInvalidSymbol, symbol)
	}
	return symbol, nil
}

func (v *Validator) validatePeriod(raw string, def marketdata.Period) (marketdata.Period, error) {
	raw = v.sanitizeInput(raw)
	if raw == "" {
		return def, nil
	}
	return marketdata.ParsePeriod(raw)
}

func (v *Validator) validateOptions(q OptionsQuery, defaults analysis.Options) (analysis.Options, error) {
	opts := defaults

	if m := v.sanitizeInput(q.Method); m != "" {
		method, err := spread.ParseSpreadType(m)
		if err != nil {
			return opts, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		opts.Method = method
	}

	var err error
	if opts.CriticalBuy, err = v.validateThreshold("buy", q.Buy, defaults.CriticalBuy); err != nil {
		return opts, err
	}
	if opts.CriticalSell, err = v.validateThreshold("sell", q.Sell, defaults.CriticalSell); err != nil {
		return opts, err
	}
	if opts.CriticalBuy < opts.CriticalSell {
		return opts, fmt.Errorf("%w: buy %g < sell %g", spread.ErrInvertedThresholds, opts.CriticalBuy, opts.CriticalSell)
	}

	if w := v.sanitizeInput(q.Window); w != "" {
		window, err := strconv.Atoi(w)
		if err != nil {
			return opts, validationError("window must be a valid integer")
		}
		if window != 0 && (window < 2 || window > v.maxWindow) {
			return opts, validationError("window must be 0 or between 2 and %d", v.maxWindow)
		}
		opts.Window = window
	}
	return opts, nil
}

func (v *Validator) validateThreshold(name, raw string, def float64) (float64, error) {
	raw = v.sanitizeInput(raw)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s must be a finite number, got %q", spread.ErrInvalidThreshold, name, raw)
	}
	return f, nil
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

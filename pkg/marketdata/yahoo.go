package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yourusername/quantlink-pairs/pkg/market"
)

// DefaultYahooURL Yahoo Finance 图表接口地址
const DefaultYahooURL = "https://query1.finance.yahoo.com"

type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *yahooError        `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooChartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// YahooProvider 通过 HTTP 图表接口获取每日复权收盘价
type YahooProvider struct {
	client  *http.Client
	baseURL string
}

// NewYahooProvider 创建 Yahoo 数据源；baseURL 为空时使用 DefaultYahooURL
func NewYahooProvider(baseURL string, timeout time.Duration) *YahooProvider {
	if baseURL == "" {
		baseURL = DefaultYahooURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &YahooProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (y *YahooProvider) Name() string {
	return "yahoo"
}

func (y *YahooProvider) Fetch(ctx context.Context, symbol string, period Period) (market.Series, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d&events=div,split",
		y.baseURL, url.PathEscape(symbol), url.QueryEscape(string(period)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return market.Series{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (quantlink-pairs)")

	resp, err := y.client.Do(req)
	if err != nil {
		return market.Series{}, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return market.Series{}, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return market.Series{}, fmt.Errorf("yahoo %s: status %d: %s", symbol, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return market.Series{}, fmt.Errorf("yahoo %s: decode: %w", symbol, err)
	}
	if payload.Chart.Error != nil {
		return market.Series{}, fmt.Errorf("yahoo %s: %s: %w", symbol, payload.Chart.Error.Description, ErrNoData)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Timestamp) == 0 {
		return market.Series{}, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}

	return payload.Chart.Result[0].series(symbol)
}

func (r yahooChartResult) series(symbol string) (market.Series, error) {
	var closes []*float64
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) == len(r.Timestamp) {
		closes = r.Indicators.AdjClose[0].AdjClose
	} else if len(r.Indicators.Quote) > 0 && len(r.Indicators.Quote[0].Close) == len(r.Timestamp) {
		closes = r.Indicators.Quote[0].Close
	} else {
		return market.Series{}, fmt.Errorf("yahoo %s: missing close prices: %w", symbol, ErrNoData)
	}

	dates := make([]time.Time, len(r.Timestamp))
	values := make([]float64, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		// 交易所本地日期
		dates[i] = time.Unix(ts+r.Meta.GMTOffset, 0).UTC()
		if closes[i] == nil {
			values[i] = math.NaN()
			continue
		}
		values[i] = *closes[i]
	}
	return market.NewSeries(symbol, dates, values)
}

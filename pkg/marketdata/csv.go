package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/quantlink-pairs/pkg/market"
)

// CSVProvider reads daily history from <dir>/<SYMBOL>.csv files with a
// header that contains Date and Adj Close (or Close) columns.
type CSVProvider struct {
	dir string
	log zerolog.Logger
}

// NewCSVProvider 创建本地 CSV 数据源
func NewCSVProvider(dir string, log zerolog.Logger) *CSVProvider {
	return &CSVProvider{dir: dir, log: log}
}

func (c *CSVProvider) Name() string {
	return "csv"
}

func (c *CSVProvider) Fetch(ctx context.Context, symbol string, period Period) (market.Series, error) {
	if err := ctx.Err(); err != nil {
		return market.Series{}, err
	}

	filePath := filepath.Join(c.dir, symbol+".csv")
	file, err := os.Open(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return market.Series{}, fmt.Errorf("csv %s: %w", filePath, ErrNoData)
	}
	if err != nil {
		return market.Series{}, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Read header
	header, err := reader.Read()
	if err == io.EOF {
		return market.Series{}, fmt.Errorf("csv %s: empty file: %w", filePath, ErrNoData)
	}
	if err != nil {
		return market.Series{}, fmt.Errorf("failed to read CSV header: %w", err)
	}
	dateCol, priceCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			dateCol = i
		case "adj close", "adj_close", "adjclose":
			priceCol = i
		case "close":
			if priceCol < 0 {
				priceCol = i
			}
		}
	}
	if dateCol < 0 || priceCol < 0 {
		return market.Series{}, fmt.Errorf("invalid CSV format in %s: need Date and Adj Close columns", filePath)
	}

	type row struct {
		date  time.Time
		price float64
	}
	rows := make([]row, 0, 256)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return market.Series{}, fmt.Errorf("failed to read CSV row: %w", err)
		}
		if len(record) <= dateCol || len(record) <= priceCol {
			c.log.Warn().Str("file", filePath).Int("line", line).Msg("short CSV row skipped")
			continue
		}
		d, err := parseDate(record[dateCol])
		if err != nil {
			c.log.Warn().Err(err).Str("file", filePath).Int("line", line).Msg("invalid date skipped")
			continue
		}
		price, err := parsePrice(record[priceCol])
		if err != nil {
			c.log.Warn().Err(err).Str("file", filePath).Int("line", line).Msg("invalid price skipped")
			continue
		}
		rows = append(rows, row{date: d, price: price})
	}
	if len(rows) == 0 {
		return market.Series{}, fmt.Errorf("csv %s: %w", filePath, ErrNoData)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })
	start := period.Start(rows[len(rows)-1].date)

	dates := make([]time.Time, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.date.Before(start) {
			continue
		}
		dates = append(dates, r.date)
		values = append(values, r.price)
	}
	return market.NewSeries(symbol, dates, values)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "20060102", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return market.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price: %w", err)
	}
	return v, nil
}

package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// KLine 日K线
type KLine struct {
	Date   string  `json:"date"`   // 日期 YYYY-MM-DD
	Open   float64 `json:"open"`   // 开盘价
	High   float64 `json:"high"`   // 最高价
	Low    float64 `json:"low"`    // 最低价
	Close  float64 `json:"close"`  // 收盘价
	Volume int64   `json:"volume"` // 成交量
}

// Time parses Date in the local time zone.
func (k KLine) Time() (time.Time, error) {
	return time.ParseInLocation(dateLayout, k.Date, time.Local)
}

// Source 历史日K数据源
type Source interface {
	Name() string
	Fetch(ctx context.Context, ticker string, start, end time.Time) ([]KLine, error)
}

const eastmoneyKLineURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"

// EastmoneySource 东方财富日K接口（A股，代码如 sh600000 / sz000001）
type EastmoneySource struct {
	client  *http.Client
	BaseURL string
}

func NewEastmoneySource() *EastmoneySource {
	return &EastmoneySource{
		client:  &http.Client{Timeout: 15 * time.Second},
		BaseURL: eastmoneyKLineURL,
	}
}

func (s *EastmoneySource) Name() string { return "eastmoney" }

// Fetch 获取 [start, end] 区间的前复权日K
func (s *EastmoneySource) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]KLine, error) {
	secid, err := eastmoneySecID(ticker)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf(
		"%s?secid=%s&fields1=f1,f2,f3,f4,f5,f6&fields2=f51,f52,f53,f54,f55,f56,f57&klt=101&fqt=1&beg=%s&end=%s",
		s.BaseURL, secid, start.Format("20060102"), end.Format("20060102"),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Referer", "https://quote.eastmoney.com/")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eastmoney request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("eastmoney %s: http %d", ticker, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	kl, err := parseEastmoneyKLine(body)
	if err != nil {
		return nil, err
	}
	if kl == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTicker, ticker)
	}
	return kl, nil
}

// sh600000 -> 1.600000, sz000001 -> 0.000001
func eastmoneySecID(code string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(code))
	if len(c) <= 2 {
		return "", fmt.Errorf("%w: bad stock code %q", ErrNoTicker, code)
	}
	switch c[:2] {
	case "sh":
		return "1." + c[2:], nil
	case "sz":
		return "0." + c[2:], nil
	default:
		return "", fmt.Errorf("%w: unknown market prefix in %q", ErrNoTicker, code)
	}
}

// parseEastmoneyKLine returns nil when the response carries no data (unknown code).
func parseEastmoneyKLine(data []byte) ([]KLine, error) {
	var result struct {
		Data *struct {
			Klines []string `json:"klines"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse eastmoney kline: %w", err)
	}
	if result.Data == nil {
		return nil, nil
	}

	klines := make([]KLine, 0, len(result.Data.Klines))
	for _, line := range result.Data.Klines {
		// 格式: 日期,开盘,收盘,最高,最低,成交量,成交额
		parts := strings.Split(line, ",")
		if len(parts) < 6 {
			continue
		}

		open, _ := strconv.ParseFloat(parts[1], 64)
		close, _ := strconv.ParseFloat(parts[2], 64)
		high, _ := strconv.ParseFloat(parts[3], 64)
		low, _ := strconv.ParseFloat(parts[4], 64)
		volume, _ := strconv.ParseInt(parts[5], 10, 64)

		klines = append(klines, KLine{
			Date:   parts[0],
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
	}
	return klines, nil
}

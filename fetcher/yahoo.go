package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// YahooSource Yahoo! Finance 日K接口（如 BTC-USD, AAPL）
type YahooSource struct {
	client  *http.Client
	BaseURL string
}

func NewYahooSource() *YahooSource {
	return &YahooSource{
		client:  &http.Client{Timeout: 15 * time.Second},
		BaseURL: yahooChartURL,
	}
}

func (s *YahooSource) Name() string { return "yahoo" }

type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset int64 `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch 获取 [start, end] 区间日K（含 end 当日）
func (s *YahooSource) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]KLine, error) {
	sym := strings.TrimSpace(ticker)
	if sym == "" {
		return nil, fmt.Errorf("%w: empty ticker", ErrNoTicker)
	}

	q := url.Values{}
	q.Set("period1", fmt.Sprint(start.Unix()))
	q.Set("period2", fmt.Sprint(end.AddDate(0, 0, 1).Unix()))
	q.Set("interval", "1d")
	q.Set("events", "history")
	u := strings.TrimRight(s.BaseURL, "/") + "/" + url.PathEscape(sym) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var r yahooChartResp
	if err := json.Unmarshal(body, &r); err != nil {
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNoTicker, sym)
		}
		return nil, fmt.Errorf("parse yahoo chart (http %d): %w", resp.StatusCode, err)
	}
	if e := r.Chart.Error; e != nil {
		if resp.StatusCode == http.StatusNotFound || strings.EqualFold(e.Code, "Not Found") {
			return nil, fmt.Errorf("%w: %s (%s)", ErrNoTicker, sym, e.Description)
		}
		return nil, fmt.Errorf("yahoo %s: %s: %s", sym, e.Code, e.Description)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("yahoo %s: http %d", sym, resp.StatusCode)
	}
	if len(r.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTicker, sym)
	}

	res := r.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, nil
	}
	quote := res.Indicators.Quote[0]

	klines := make([]KLine, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		o, okO := at(quote.Open, i)
		h, okH := at(quote.High, i)
		l, okL := at(quote.Low, i)
		c, okC := at(quote.Close, i)
		if !okO || !okH || !okL || !okC {
			// 停牌/缺失数据
			continue
		}
		var vol int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			vol = *quote.Volume[i]
		}
		k := KLine{
			Date:   time.Unix(ts+res.Meta.GMTOffset, 0).UTC().Format(dateLayout),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: vol,
		}
		// 盘中最后一根可能与前一根同日
		if n := len(klines); n > 0 && klines[n-1].Date == k.Date {
			klines[n-1] = k
			continue
		}
		klines = append(klines, k)
	}
	return klines, nil
}

func at(xs []*float64, i int) (float64, bool) {
	if i >= len(xs) || xs[i] == nil {
		return 0, false
	}
	return *xs[i], true
}

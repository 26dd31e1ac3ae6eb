package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const yahooChartJSON = `{"chart":{"result":[{"meta":{"gmtoffset":0},
"timestamp":[1641168000,1641254400,1641340800,1641427200],
"indicators":{"quote":[{"open":[10,11,null,12],"high":[10.5,11.5,null,12.5],"low":[9.5,10.5,null,11.5],
"close":[10.2,11.2,null,12.2],"volume":[100,200,null,400]}]}}],"error":null}}`

func TestYahooSourceFetch(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("interval=%q", r.URL.Query().Get("interval"))
		}
		_, _ = w.Write([]byte(yahooChartJSON))
	}))
	defer srv.Close()

	s := NewYahooSource()
	s.BaseURL = srv.URL
	kl, err := s.Fetch(context.Background(), "BTC-USD", time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC), time.Date(2022, 1, 6, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/BTC-USD" {
		t.Fatalf("path=%q", gotPath)
	}
	if len(kl) != 3 {
		t.Fatalf("expected the null bar to be skipped, got %v", kl)
	}
	if kl[0].Date != "2022-01-03" || kl[2].Date != "2022-01-06" || kl[2].Close != 12.2 || kl[2].Volume != 400 {
		t.Fatalf("unexpected bars %#v", kl)
	}
}

func TestYahooSourceUnknownTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	s := NewYahooSource()
	s.BaseURL = srv.URL
	_, err := s.Fetch(context.Background(), "NOPE-XYZ", time.Now().AddDate(0, -1, 0), time.Now())
	if !errors.Is(err, ErrNoTicker) {
		t.Fatalf("expected ErrNoTicker, got %v", err)
	}
}

func TestEastmoneySourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("secid") != "1.600000" || q.Get("beg") != "20220101" || q.Get("end") != "20220131" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(`{"data":{"klines":["2022-01-04,8.60,8.70,8.75,8.55,123456,1.0e8","2022-01-05,8.70,8.66,8.80,8.60,99999,9.0e7"]}}`))
	}))
	defer srv.Close()

	s := NewEastmoneySource()
	s.BaseURL = srv.URL
	kl, err := s.Fetch(context.Background(), "SH600000", time.Date(2022, 1, 1, 0, 0, 0, 0, time.Local), time.Date(2022, 1, 31, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := KLine{Date: "2022-01-04", Open: 8.60, High: 8.75, Low: 8.55, Close: 8.70, Volume: 123456}
	if len(kl) != 2 || kl[0] != want {
		t.Fatalf("unexpected bars %#v", kl)
	}
}

func TestEastmoneyUnknownCode(t *testing.T) {
	kl, err := parseEastmoneyKLine([]byte(`{"rc":0,"data":null}`))
	if err != nil || kl != nil {
		t.Fatalf("null data should parse to nil, got %v %v", kl, err)
	}
	if _, err := eastmoneySecID("hk00700"); !errors.Is(err, ErrNoTicker) {
		t.Fatalf("expected ErrNoTicker for unknown market, got %v", err)
	}
	if id, _ := eastmoneySecID(" sz000001 "); !strings.HasPrefix(id, "0.") {
		t.Fatalf("secid=%q", id)
	}
}

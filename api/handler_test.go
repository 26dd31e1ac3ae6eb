package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"basetrader/backtest"
	"basetrader/config"
	"basetrader/fetcher"
	"basetrader/runstore"
)

type stubLoader struct {
	err error
}

func (l stubLoader) GetHistorical(_ context.Context, _, _ string, _, _ time.Time) ([]fetcher.KLine, error) {
	if l.err != nil {
		return nil, l.err
	}
	closes := []float64{100, 90, 50, 90, 100, 60, 44, 60, 75, 80, 90}
	out := make([]fetcher.KLine, len(closes))
	for i, c := range closes {
		out[i] = fetcher.KLine{
			Date:  time.Date(2022, 1, 1+i, 0, 0, 0, 0, time.Local).Format("2006-01-02"),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: int64(10 * (i + 1)),
		}
	}
	return out, nil
}

func newTestServer(t *testing.T, loader backtest.Loader) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.DefaultConfig
	cfg.StorePath = ""
	return NewServer(&cfg, backtest.NewRunner(loader), runstore.New(), nil)
}

const validRequest = `{"ticker":"TEST","start":"2021-12-01","end":"2022-02-01","valid_days":2,"max_pos":1}`

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestRunBacktestAndFetchRun(t *testing.T) {
	s := newTestServer(t, stubLoader{})

	w := do(s, http.MethodPost, "/api/backtest", validRequest)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/backtest: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			ID     string `json:"id"`
			Report struct {
				Trades  []backtest.Trade        `json:"trades"`
				Display []backtest.StatsDisplay `json:"display"`
			} `json:"report"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.ID == "" || len(resp.Data.Report.Trades) != 2 || len(resp.Data.Report.Display) != 2 {
		t.Fatalf("unexpected response %s", w.Body.String())
	}
	id := resp.Data.ID

	w = do(s, http.MethodGet, "/api/runs", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"count":1`) {
		t.Fatalf("GET /api/runs: %d %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), `"rows"`) {
		t.Fatalf("run listing should not include rows")
	}

	if w = do(s, http.MethodGet, "/api/runs/"+id, ""); w.Code != http.StatusOK {
		t.Fatalf("GET run: %d", w.Code)
	}
	for _, p := range []string{"/chart.svg", "/equity.svg"} {
		w = do(s, http.MethodGet, "/api/runs/"+id+p, "")
		if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/svg+xml" || !strings.Contains(w.Body.String(), "<svg") {
			t.Fatalf("GET %s: %d %q", p, w.Code, w.Header().Get("Content-Type"))
		}
	}
	if w = do(s, http.MethodGet, "/api/runs/missing", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing run: %d", w.Code)
	}
}

func TestRunBacktestErrorStatus(t *testing.T) {
	cases := []struct {
		name   string
		loader backtest.Loader
		body   string
		want   int
	}{
		{"bad json", stubLoader{}, `{"ticker":`, http.StatusBadRequest},
		{"bad max_pos", stubLoader{}, `{"ticker":"TEST","max_pos":0}`, http.StatusBadRequest},
		{"bad price", stubLoader{}, `{"ticker":"TEST","price":"vwap"}`, http.StatusBadRequest},
		{"bad source", stubLoader{err: fetcher.ErrSourceNotSupported}, validRequest, http.StatusBadRequest},
		{"unknown ticker", stubLoader{err: fetcher.ErrNoTicker}, validRequest, http.StatusNotFound},
		{"upstream", stubLoader{err: context.DeadlineExceeded}, validRequest, http.StatusGatewayTimeout},
	}
	for _, c := range cases {
		s := newTestServer(t, c.loader)
		w := do(s, http.MethodPost, "/api/backtest", c.body)
		if w.Code != c.want {
			t.Fatalf("%s: status %d, want %d (%s)", c.name, w.Code, c.want, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), `"error"`) {
			t.Fatalf("%s: missing error body", c.name)
		}
	}
}

func TestStreamBacktest(t *testing.T) {
	s := newTestServer(t, stubLoader{})
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/backtest", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"ticker":"TEST","max_pos":0}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var msg StreamMessage
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "error" {
		t.Fatalf("expected error message, got %#v %v", msg, err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(validRequest)); err != nil {
		t.Fatalf("write: %v", err)
	}
	counts := map[string]int{}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var m StreamMessage
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		counts[m.Type]++
		if m.Type == "done" {
			break
		}
	}
	if counts["meta"] != 1 || counts["row"] != 11 || counts["trade"] != 2 || counts["stats"] != 1 {
		t.Fatalf("unexpected message counts %v", counts)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, stubLoader{})
	if w := do(s, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
}

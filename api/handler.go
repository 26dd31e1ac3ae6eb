package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"basetrader/backtest"
	"basetrader/fetcher"
	"basetrader/runstore"
)

// Backtester 执行一次回测，*backtest.Runner 实现该接口
type Backtester interface {
	Run(ctx context.Context, cfg backtest.RunConfig) (*backtest.Report, error)
}

// BacktestRequest 回测请求，未给出的策略参数使用默认值
type BacktestRequest struct {
	Source       string   `json:"source"`
	Ticker       string   `json:"ticker"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	Price        string   `json:"price"`
	ValidDays    *int     `json:"valid_days"`
	BreakSupport *float64 `json:"break_support"`
	BreakResist  *float64 `json:"break_resist"`
	MaxPos       *int     `json:"max_pos"`
	InitCash     *float64 `json:"init_cash"`
}

// RunConfig 合并默认配置
func (r BacktestRequest) RunConfig(defaultSource string) (backtest.RunConfig, error) {
	cfg := backtest.DefaultRunConfig()
	if defaultSource != "" {
		cfg.Source = defaultSource
	}
	if s := strings.TrimSpace(r.Source); s != "" {
		cfg.Source = strings.ToLower(s)
	}
	if s := strings.TrimSpace(r.Ticker); s != "" {
		cfg.Ticker = s
	}
	if r.Start != "" {
		t, err := backtest.ParseDate(r.Start)
		if err != nil {
			return cfg, fmt.Errorf("%w: invalid start: %v", backtest.ErrInvalidConfig, err)
		}
		cfg.Start = t
	}
	if r.End != "" {
		t, err := backtest.ParseDate(r.End)
		if err != nil {
			return cfg, fmt.Errorf("%w: invalid end: %v", backtest.ErrInvalidConfig, err)
		}
		cfg.End = t
	}
	if r.Price != "" {
		p, ok := backtest.ParsePriceField(r.Price)
		if !ok {
			return cfg, fmt.Errorf("%w: %q", backtest.ErrUnknownPriceField, r.Price)
		}
		cfg.Strategy.Price = p
	}
	if r.ValidDays != nil {
		cfg.Strategy.ValidDays = *r.ValidDays
	}
	if r.BreakSupport != nil {
		cfg.Strategy.BreakSupport = *r.BreakSupport
	}
	if r.BreakResist != nil {
		cfg.Strategy.BreakResist = *r.BreakResist
	}
	if r.MaxPos != nil {
		cfg.Strategy.MaxPos = *r.MaxPos
	}
	if r.InitCash != nil {
		cfg.Strategy.InitCash = *r.InitCash
	}
	return cfg, cfg.Validate()
}

// Handler API处理器
type Handler struct {
	runner        Backtester
	store         *runstore.Store
	storePath     string
	defaultSource string
}

// NewHandler 创建处理器
func NewHandler(runner Backtester, store *runstore.Store, storePath, defaultSource string) *Handler {
	if store == nil {
		store = runstore.New()
	}
	return &Handler{runner: runner, store: store, storePath: storePath, defaultSource: defaultSource}
}

// errStatus 错误到 HTTP 状态码
func errStatus(err error) int {
	switch {
	case backtest.IsInputError(err), errors.Is(err, fetcher.ErrSourceNotSupported):
		return http.StatusBadRequest
	case errors.Is(err, fetcher.ErrNoTicker):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) execute(ctx context.Context, req BacktestRequest) (*runstore.Run, error) {
	cfg, err := req.RunConfig(h.defaultSource)
	if err != nil {
		return nil, err
	}
	rep, err := h.runner.Run(ctx, cfg)
	if err != nil {
		return nil, err
	}
	run := h.store.Add(cfg, rep)
	if err := h.store.SaveToFile(h.storePath); err != nil {
		log.Printf("[STORE] 保存回测记录失败: %v\n", err)
	}
	return run, nil
}

// RunBacktest 执行回测
func (h *Handler) RunBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "请求体格式错误: " + err.Error(),
		})
		return
	}

	run, err := h.execute(c.Request.Context(), req)
	if err != nil {
		c.JSON(errStatus(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": run,
	})
}

// ListRuns 回测记录列表
func (h *Handler) ListRuns(c *gin.Context) {
	runs := h.store.List()

	result := make([]runstore.Summary, 0, len(runs))
	for _, r := range runs {
		result = append(result, r.Summary())
	}

	c.JSON(http.StatusOK, gin.H{
		"code":  0,
		"count": len(result),
		"data":  result,
	})
}

func (h *Handler) lookup(c *gin.Context) (*runstore.Run, bool) {
	id := c.Param("id")
	run, ok := h.store.Get(id)
	if !ok || run.Report == nil || run.Report.Result == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "未找到该回测记录",
			"id":    id,
		})
		return nil, false
	}
	return run, true
}

// GetRun 单个回测记录
func (h *Handler) GetRun(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": run,
	})
}

// GetRunChart 价格/支撑线/买卖点图
func (h *Handler) GetRunChart(c *gin.Context) {
	h.renderSVG(c, backtest.RenderSignalsSVG)
}

// GetRunEquity 资金曲线图
func (h *Handler) GetRunEquity(c *gin.Context) {
	h.renderSVG(c, backtest.RenderEquitySVG)
}

func (h *Handler) renderSVG(c *gin.Context, render func(string, *backtest.Result, backtest.SVGChartOptions) ([]byte, error)) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	svg, err := render(run.Config.Ticker, run.Report.Result, backtest.SVGChartOptions{})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
		})
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", svg)
}

// GetStatus 获取服务状态
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": gin.H{
			"runs":           h.store.Len(),
			"default_source": h.defaultSource,
			"persist":        h.storePath != "",
		},
	})
}

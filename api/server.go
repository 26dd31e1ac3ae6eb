package api

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"basetrader/config"
	"basetrader/runstore"
)

// Server HTTP服务器
type Server struct {
	engine   *gin.Engine
	server   *http.Server
	handler  *Handler
	staticFS fs.FS
}

// NewServer 创建服务器
func NewServer(cfg *config.Config, runner Backtester, store *runstore.Store, staticFS fs.FS) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(loggerMiddleware())

	s := &Server{
		engine:   engine,
		handler:  NewHandler(runner, store, cfg.StorePath, cfg.Source),
		staticFS: staticFS,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: engine,
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	handler := s.handler

	api := s.engine.Group("/api")
	{
		// 回测
		api.POST("/backtest", handler.RunBacktest)

		// 回测记录
		api.GET("/runs", handler.ListRuns)
		api.GET("/runs/:id", handler.GetRun)
		api.GET("/runs/:id/chart.svg", handler.GetRunChart)
		api.GET("/runs/:id/equity.svg", handler.GetRunEquity)

		// 服务状态
		api.GET("/status", handler.GetStatus)
	}

	// 流式回测
	s.engine.GET("/ws/backtest", handler.StreamBacktest)

	// 健康检查
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 静态文件服务 (嵌入的前端)
	if s.staticFS != nil {
		s.engine.StaticFS("/static", http.FS(s.staticFS))
		s.engine.GET("/", func(c *gin.Context) {
			data, err := fs.ReadFile(s.staticFS, "index.html")
			if err != nil {
				c.String(http.StatusNotFound, "index.html not found")
				return
			}
			c.Data(http.StatusOK, "text/html; charset=utf-8", data)
		})
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	log.Printf("[API] 服务启动在 http://localhost%s\n", s.server.Addr)
	log.Println("[API] 可用接口:")
	log.Println("  POST /api/backtest              - 执行回测")
	log.Println("  GET  /api/runs                  - 回测记录列表")
	log.Println("  GET  /api/runs/:id              - 单个回测记录")
	log.Println("  GET  /api/runs/:id/chart.svg    - 价格与买卖点图")
	log.Println("  GET  /api/runs/:id/equity.svg   - 资金曲线图")
	log.Println("  GET  /api/status                - 服务状态")
	log.Println("  GET  /ws/backtest               - 流式回测 (WebSocket)")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// loggerMiddleware 日志中间件
func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		log.Printf("[API] %s %s %d %v\n", c.Request.Method, path, status, latency)
	}
}

// corsMiddleware CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

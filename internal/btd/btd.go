package btd

import (
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"basetrader"
	"basetrader/api"
	"basetrader/backtest"
	"basetrader/config"
	"basetrader/fetcher"
	"basetrader/internal/realtime"
	"basetrader/runstore"
)

func Run(args []string) int {
	flags := flag.NewFlagSet("btd", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	var configPath string
	flags.StringVar(&configPath, "config", "", "配置文件路径(YAML格式)，默认优先使用 ./config.yaml")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	if configPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			configPath = "config.yaml"
		}
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg := config.GetConfig(configPath)
	if cfg.StorePath == config.DefaultConfig.StorePath && cfg.DataDir != config.DefaultConfig.DataDir {
		cfg.StorePath = basetrader.DefaultRunStorePath(cfg.DataDir)
	}

	store := runstore.New()
	if err := store.LoadFromFile(cfg.StorePath); err != nil {
		log.Printf("[WARN] load persisted runs failed: %v\n", err)
	} else if n := store.Len(); n > 0 {
		log.Printf("[STORE] loaded %d runs from %s\n", n, cfg.StorePath)
	}

	collector := fetcher.NewCollector(cfg.DataDir)
	runner := backtest.NewRunner(collector)

	stopSync := make(chan struct{})
	if len(cfg.WatchTickers) > 0 {
		go realtime.RunDataSync(cfg, collector, stopSync, realtime.SyncOptions{})
	}

	log.Println("=== Base Trading 回测服务 (btd) ===")
	log.Printf("[BT] 数据源 %s，缓存目录 %s\n", cfg.Source, cfg.DataDir)

	staticFS, err := basetrader.GetStaticFS()
	if err != nil {
		log.Printf("[WARN] 无法加载前端资源: %v (仅API模式)\n", err)
	}

	var sfs fs.FS
	if err == nil {
		sfs = staticFS
	}

	server := api.NewServer(cfg, runner, store, sfs)
	go func() {
		if err := server.Start(); err != nil {
			log.Printf("[ERROR] HTTP服务启动失败: %v\n", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("正在关闭服务...")
	close(stopSync)
	_ = server.Shutdown()
	if err := store.SaveToFile(cfg.StorePath); err != nil {
		log.Printf("[WARN] persist runs failed: %v\n", err)
	}
	log.Println("服务已关闭")
	return 0
}

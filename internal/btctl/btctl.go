package btctl

import (
	"flag"
	"fmt"
	"log"
	"os"
)

func Run(args []string) int {
	fs := flag.NewFlagSet("btctl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts backtestOptions
	var backtestMode bool

	fs.BoolVar(&backtestMode, "backtest", false, "运行支撑位突破回测并退出")
	fs.StringVar(&opts.configPath, "bt-config", "backtest.yaml", "回测配置文件路径(YAML格式)，文件不存在时使用默认参数")
	fs.StringVar(&opts.outPath, "bt-out", "", "回测输出JSON文件路径(默认不输出，仅打印统计表)")
	fs.StringVar(&opts.csvPath, "csv", "", "逐日明细CSV输出路径")
	fs.StringVar(&opts.chartDir, "chart-dir", "", "SVG图输出目录（价格/支撑线/买卖点 + 资金曲线）")
	fs.IntVar(&opts.maxTrades, "trades", 10, "终端打印最近 N 笔交易（0 不打印）")

	fs.StringVar(&opts.source, "source", "", "覆盖 data.source (yahoo / eastmoney)")
	fs.StringVar(&opts.ticker, "ticker", "", "覆盖 data.ticker")
	fs.StringVar(&opts.start, "start", "", "覆盖 data.start (YYYY-MM-DD)")
	fs.StringVar(&opts.end, "end", "", "覆盖 data.end (YYYY-MM-DD)")
	fs.StringVar(&opts.dataDir, "data-dir", "", "覆盖 data.data_dir（日K缓存目录）")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if backtestMode {
		opts.configSet = flagWasSet(fs, "bt-config")
		if err := runBacktest(opts); err != nil {
			log.Printf("[ERROR] 回测失败: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  basetrader -backtest [-bt-config backtest.yaml] [-bt-out runtime/report.json] [-csv runtime/rows.csv] [-chart-dir runtime/charts]")
	fmt.Fprintln(os.Stderr, "             [-source yahoo] [-ticker BTC-USD] [-start 2021-01-01] [-end 2023-12-31]")
	fmt.Fprintln(os.Stderr, "  basetrader [-config config.yaml]   启动 HTTP 服务")
	return 2
}

func flagWasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

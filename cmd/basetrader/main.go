package main

import (
	"os"
	"strings"

	"basetrader/internal/btctl"
	"basetrader/internal/btd"
)

// Version is injected by build scripts via -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	args := os.Args[1:]
	if shouldRouteToCtl(args) {
		os.Exit(btctl.Run(args))
	}
	os.Exit(btd.Run(args))
}

func shouldRouteToCtl(args []string) bool {
	for _, a := range args {
		a = strings.TrimLeft(a, "-")
		if i := strings.IndexByte(a, '='); i >= 0 {
			a = a[:i]
		}
		switch a {
		case "backtest", "bt-config", "bt-out", "csv", "chart-dir", "ticker", "h", "help":
			return true
		}
	}
	return false
}

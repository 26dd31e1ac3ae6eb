package main

import "testing"

func TestShouldRouteToCtl(t *testing.T) {
	cases := []struct {
		args []string
		want bool
	}{
		{nil, false},
		{[]string{"-config", "config.yaml"}, false},
		{[]string{"-backtest"}, true},
		{[]string{"--bt-config=bt.yaml"}, true},
		{[]string{"-ticker", "BTC-USD"}, true},
		{[]string{"-h"}, true},
	}
	for _, c := range cases {
		if got := shouldRouteToCtl(c.args); got != c.want {
			t.Fatalf("shouldRouteToCtl(%v)=%v, want %v", c.args, got, c.want)
		}
	}
}

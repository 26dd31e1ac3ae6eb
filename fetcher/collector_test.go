package fetcher

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

type fakeSource struct {
	name  string
	bars  []KLine
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(_ context.Context, _ string, start, end time.Time) ([]KLine, error) {
	f.calls++
	var out []KLine
	for _, k := range f.bars {
		t, _ := k.Time()
		if !t.Before(start) && !t.After(end) {
			out = append(out, k)
		}
	}
	return out, nil
}

func day(d int) time.Time {
	return time.Date(2022, 1, d, 0, 0, 0, 0, time.Local)
}

func dailyBars(from, to int) []KLine {
	var out []KLine
	for d := from; d <= to; d++ {
		p := float64(100 + d)
		out = append(out, KLine{Date: day(d).Format(dateLayout), Open: p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: int64(1000 * d)})
	}
	return out
}

func TestCollectorCachesAndFiltersStrictly(t *testing.T) {
	src := &fakeSource{name: "fake", bars: dailyBars(1, 20)}
	c := NewCollector(t.TempDir(), src)
	ctx := context.Background()

	kl, err := c.GetHistorical(ctx, "FAKE", "ABC", day(1), day(10))
	if err != nil {
		t.Fatalf("GetHistorical: %v", err)
	}
	if len(kl) != 10 || src.calls != 1 {
		t.Fatalf("first call: %d bars, %d fetches", len(kl), src.calls)
	}
	if _, err := os.Stat(c.CachePath("ABC")); err != nil {
		t.Fatalf("cache not written: %v", err)
	}

	kl, err = c.GetHistorical(ctx, "fake", "ABC", day(2), day(8))
	if err != nil {
		t.Fatalf("GetHistorical: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("covered window should be served from cache, fetches=%d", src.calls)
	}
	if len(kl) != 5 || kl[0].Date != "2022-01-03" || kl[4].Date != "2022-01-07" {
		t.Fatalf("cache filter should exclude both ends, got %v", kl)
	}
	if kl[0] != dailyBars(3, 3)[0] {
		t.Fatalf("cached bar round trip mismatch: %#v", kl[0])
	}

	kl, err = c.GetHistorical(ctx, "fake", "ABC", day(5), day(15))
	if err != nil {
		t.Fatalf("GetHistorical: %v", err)
	}
	if src.calls != 2 || len(kl) != 11 {
		t.Fatalf("uncovered window should refetch: fetches=%d bars=%d", src.calls, len(kl))
	}
	cached, err := ReadCSV(c.CachePath("ABC"))
	if err != nil || len(cached) != 11 || cached[0].Date != "2022-01-05" {
		t.Fatalf("cache should be rewritten with the new window: %v %v", len(cached), err)
	}
}

func TestCollectorErrors(t *testing.T) {
	c := NewCollector(t.TempDir(), &fakeSource{name: "fake"})
	ctx := context.Background()

	if _, err := c.GetHistorical(ctx, "bloomberg", "ABC", day(1), day(5)); !errors.Is(err, ErrSourceNotSupported) {
		t.Fatalf("expected ErrSourceNotSupported, got %v", err)
	}
	if _, err := c.GetHistorical(ctx, "fake", "NOPE", day(1), day(5)); !errors.Is(err, ErrNoTicker) {
		t.Fatalf("expected ErrNoTicker for empty data, got %v", err)
	}
}

func TestCachePathIsSanitized(t *testing.T) {
	c := NewCollector("cache")
	if got := c.CachePath("../etc/passwd"); got != "cache/__etc_passwd.csv" {
		t.Fatalf("CachePath=%q", got)
	}
}

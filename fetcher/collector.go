package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoTicker 数据源中不存在该标的
	ErrNoTicker = errors.New("ticker not available")
	// ErrSourceNotSupported 不支持的数据源
	ErrSourceNotSupported = errors.New("data source not supported")
)

var csvHeader = []string{"Date", "Open", "High", "Low", "Close", "Volume"}

// Collector 历史日K采集器，按标的缓存为 CSV
type Collector struct {
	dataDir string
	sources map[string]Source
}

// NewCollector 创建采集器；未传入数据源时使用 Yahoo 与东方财富
func NewCollector(dataDir string, sources ...Source) *Collector {
	if strings.TrimSpace(dataDir) == "" {
		dataDir = "data"
	}
	if len(sources) == 0 {
		sources = []Source{NewYahooSource(), NewEastmoneySource()}
	}
	m := make(map[string]Source, len(sources))
	for _, s := range sources {
		m[strings.ToLower(s.Name())] = s
	}
	return &Collector{dataDir: dataDir, sources: m}
}

// Sources 返回已注册的数据源名称
func (c *Collector) Sources() []string {
	out := make([]string, 0, len(c.sources))
	for name := range c.sources {
		out = append(out, name)
	}
	return out
}

// CachePath 标的缓存文件路径
func (c *Collector) CachePath(ticker string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(strings.TrimSpace(ticker))
	return filepath.Join(c.dataDir, name+".csv")
}

// GetHistorical 获取 [start, end] 区间日K。
// 缓存覆盖该区间时直接过滤缓存（start < date < end），否则重新拉取并覆盖缓存。
func (c *Collector) GetHistorical(ctx context.Context, source, ticker string, start, end time.Time) ([]KLine, error) {
	src, ok := c.sources[strings.ToLower(strings.TrimSpace(source))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSourceNotSupported, source)
	}

	path := c.CachePath(ticker)
	cached, err := ReadCSV(path)
	switch {
	case err == nil && len(cached) > 0:
		first, ferr := cached[0].Time()
		last, lerr := cached[len(cached)-1].Time()
		if ferr == nil && lerr == nil && !first.After(start) && !last.Before(end) {
			return filterBetween(cached, start, end), nil
		}
	case err != nil && !errors.Is(err, os.ErrNotExist):
		log.Printf("[FETCH] ignore unreadable cache %s: %v\n", path, err)
	}

	kl, err := src.Fetch(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	if len(kl) == 0 {
		return nil, fmt.Errorf("%w: %s returned no bars for %s", ErrNoTicker, src.Name(), ticker)
	}

	if err := WriteCSV(path, kl); err != nil {
		log.Printf("[FETCH] write cache %s failed: %v\n", path, err)
	} else {
		log.Printf("[FETCH] %s %s: %d bars cached to %s\n", src.Name(), ticker, len(kl), path)
	}
	return kl, nil
}

func filterBetween(kl []KLine, start, end time.Time) []KLine {
	out := make([]KLine, 0, len(kl))
	for _, k := range kl {
		t, err := k.Time()
		if err != nil {
			continue
		}
		if t.After(start) && t.Before(end) {
			out = append(out, k)
		}
	}
	return out
}

// ReadCSV 读取 Date,Open,High,Low,Close,Volume 格式的缓存
func ReadCSV(path string) ([]KLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []KLine
	header := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if header {
			header = false
			if len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "date") {
				continue
			}
		}
		if len(rec) < 6 {
			return nil, fmt.Errorf("read %s: short record %v", path, rec)
		}

		k := KLine{Date: strings.TrimSpace(rec[0])}
		vals := make([]float64, 4)
		for i := range vals {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("read %s: %s: %w", path, k.Date, err)
			}
			vals[i] = v
		}
		k.Open, k.High, k.Low, k.Close = vals[0], vals[1], vals[2], vals[3]
		vol, err := strconv.ParseFloat(strings.TrimSpace(rec[5]), 64)
		if err != nil {
			return nil, fmt.Errorf("read %s: %s: %w", path, k.Date, err)
		}
		k.Volume = int64(vol)
		out = append(out, k)
	}
	return out, nil
}

// WriteCSV 原子写入缓存文件
func WriteCSV(path string, kl []KLine) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".kline-*.csv")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, k := range kl {
		if err := w.Write([]string{
			k.Date,
			strconv.FormatFloat(k.Open, 'f', -1, 64),
			strconv.FormatFloat(k.High, 'f', -1, 64),
			strconv.FormatFloat(k.Low, 'f', -1, 64),
			strconv.FormatFloat(k.Close, 'f', -1, 64),
			strconv.FormatInt(k.Volume, 10),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

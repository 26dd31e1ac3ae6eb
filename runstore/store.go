package runstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"basetrader/backtest"
)

// Run is one stored backtest.
type Run struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	Config    backtest.RunConfig  `json:"config"`
	Report    *backtest.Report    `json:"report"`
}

// Summary is the listing form of a Run, without the per-step rows.
type Summary struct {
	ID        string                  `json:"id"`
	CreatedAt time.Time               `json:"created_at"`
	Source    string                  `json:"source"`
	Ticker    string                  `json:"ticker"`
	Start     string                  `json:"start"`
	End       string                  `json:"end"`
	Bars      int                     `json:"bars"`
	Trades    int                     `json:"trades"`
	Stats     []backtest.StatsDisplay `json:"stats"`
}

func (r *Run) Summary() Summary {
	s := Summary{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Source:    r.Config.Source,
		Ticker:    r.Config.Ticker,
		Start:     r.Config.Start.Format("2006-01-02"),
		End:       r.Config.End.Format("2006-01-02"),
	}
	if rep := r.Report; rep != nil {
		s.Bars = rep.Bars
		s.Stats = rep.Display
		if rep.Result != nil {
			s.Trades = len(rep.Trades)
		}
	}
	return s
}

// Store keeps runs in memory, keyed by id.
type Store struct {
	runs sync.Map // map[string]*Run
	mu   sync.Mutex
}

func New() *Store {
	return &Store{}
}

// Add stores rep under a fresh id.
func (s *Store) Add(cfg backtest.RunConfig, rep *backtest.Report) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Config:    cfg,
		Report:    rep,
	}
	s.runs.Store(run.ID, run)
	return run
}

func (s *Store) Get(id string) (*Run, bool) {
	if v, ok := s.runs.Load(id); ok {
		return v.(*Run), true
	}
	return nil, false
}

// List returns all runs, newest first.
func (s *Store) List() []*Run {
	var out []*Run
	s.runs.Range(func(_, value any) bool {
		out = append(out, value.(*Run))
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) Len() int {
	n := 0
	s.runs.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

type persistedRuns struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Items   []*Run    `json:"items"`
}

func (s *Store) LoadFromFile(path string) error {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil
	}

	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}

	var v persistedRuns
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	for _, it := range v.Items {
		if it == nil || strings.TrimSpace(it.ID) == "" {
			continue
		}
		s.runs.Store(it.ID, it)
	}
	return nil
}

func (s *Store) SaveToFile(path string) error {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	items := s.List()
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })

	payload := persistedRuns{
		Version: 1,
		SavedAt: time.Now(),
		Items:   items,
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	dir := filepath.Dir(p)
	tmp, err := os.CreateTemp(dir, ".runs-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(b); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, p)
}

package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

type tradeJSON struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	Outcome     string    `json:"outcome"`
	Mode        string    `json:"mode"`
	Kind        string    `json:"kind"`
	Quantity    float64   `json:"quantity"`
	PMPrice     float64   `json:"pm_price"`
	KalshiPrice float64   `json:"kalshi_price"`
	Profit      float64   `json:"profit"`
	Success     bool      `json:"success"`
	Message     string    `json:"message,omitempty"`
	ExecutedAt  time.Time `json:"executed_at"`
}

func toTradeJSON(rec domain.TradeRecord) tradeJSON {
	return tradeJSON{
		ID:          rec.ID,
		EventID:     rec.EventID,
		Outcome:     rec.Outcome,
		Mode:        string(rec.Mode),
		Kind:        string(rec.Kind),
		Quantity:    rec.Quantity,
		PMPrice:     rec.PolymarketPrice,
		KalshiPrice: rec.KalshiPrice,
		Profit:      rec.Profit,
		Success:     rec.Success,
		Message:     rec.Message,
		ExecutedAt:  rec.ExecutedAt,
	}
}

func (t tradeJSON) toDomain() domain.TradeRecord {
	return domain.TradeRecord{
		ID:              t.ID,
		EventID:         t.EventID,
		Outcome:         t.Outcome,
		Mode:            domain.ExecutionMode(t.Mode),
		Kind:            domain.TradeKind(t.Kind),
		Quantity:        t.Quantity,
		PolymarketPrice: t.PMPrice,
		KalshiPrice:     t.KalshiPrice,
		Profit:          t.Profit,
		Success:         t.Success,
		Message:         t.Message,
		ExecutedAt:      t.ExecutedAt,
	}
}

// TradeStore implements domain.TradeStore on an append-only JSONL file. Each
// insert appends one line; reads scan the whole file. Intended for the same
// no-database deployments as the snapshot position store.
type TradeStore struct {
	path string
	mu   sync.Mutex
}

var _ domain.TradeStore = (*TradeStore)(nil)

// NewTradeStore creates the store, ensuring the parent directory exists.
func NewTradeStore(path string) (*TradeStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("file: create trade log dir: %w", err)
		}
	}
	return &TradeStore{path: path}, nil
}

// Insert appends the record to the log.
func (s *TradeStore) Insert(_ context.Context, rec domain.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("file: open trade log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(toTradeJSON(rec))
	if err != nil {
		return fmt.Errorf("file: encode trade %s: %w", rec.ID, err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("file: append trade %s: %w", rec.ID, err)
	}
	return nil
}

// ListRecent returns up to limit trades, newest first.
func (s *TradeStore) ListRecent(_ context.Context, limit int) ([]domain.TradeRecord, error) {
	recs, err := s.readAll()
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ExecutedAt.After(recs[j].ExecutedAt) })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// ListBefore returns all trades executed strictly before the cutoff, oldest
// first.
func (s *TradeStore) ListBefore(_ context.Context, before time.Time) ([]domain.TradeRecord, error) {
	recs, err := s.readAll()
	if err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, r := range recs {
		if r.ExecutedAt.Before(before) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecutedAt.Before(out[j].ExecutedAt) })
	return out, nil
}

// DeleteBefore rewrites the log without trades executed before the cutoff
// and reports how many were dropped.
func (s *TradeStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.readAllLocked()
	if err != nil {
		return 0, err
	}

	var kept []domain.TradeRecord
	var dropped int64
	for _, r := range recs {
		if r.ExecutedAt.Before(before) {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	if dropped == 0 {
		return 0, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "trades-*.jsonl")
	if err != nil {
		return 0, fmt.Errorf("file: create temp trade log: %w", err)
	}
	w := bufio.NewWriter(tmp)
	for _, r := range kept {
		line, err := json.Marshal(toTradeJSON(r))
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return 0, fmt.Errorf("file: encode trade %s: %w", r.ID, err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("file: flush trade log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("file: close temp trade log: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("file: replace trade log: %w", err)
	}
	return dropped, nil
}

// Summary aggregates the full log.
func (s *TradeStore) Summary(ctx context.Context) (domain.TradeStats, error) {
	recs, err := s.readAll()
	if err != nil {
		return domain.TradeStats{}, err
	}

	var stats domain.TradeStats
	for _, r := range recs {
		stats.Trades++
		if r.Success && r.Profit > 0 {
			stats.Wins++
		}
		stats.TotalProfit += r.Profit
		if stats.FirstTrade.IsZero() || r.ExecutedAt.Before(stats.FirstTrade) {
			stats.FirstTrade = r.ExecutedAt
		}
		if r.ExecutedAt.After(stats.LastTrade) {
			stats.LastTrade = r.ExecutedAt
		}
	}
	if stats.Trades > 0 {
		stats.AvgProfit = stats.TotalProfit / float64(stats.Trades)
	}
	return stats, nil
}

func (s *TradeStore) readAll() ([]domain.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAllLocked()
}

func (s *TradeStore) readAllLocked() ([]domain.TradeRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("file: open trade log: %w", err)
	}
	defer f.Close()

	var recs []domain.TradeRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var t tradeJSON
		if err := json.Unmarshal(line, &t); err != nil {
			return nil, fmt.Errorf("file: decode trade log line: %w", err)
		}
		recs = append(recs, t.toDomain())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("file: read trade log: %w", err)
	}
	return recs, nil
}

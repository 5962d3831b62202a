// Package file implements a JSON-snapshot position store for deployments
// that run without PostgreSQL. The full position set is rewritten to disk on
// every mutation, so the on-disk file is always a complete snapshot.
package file

import (
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

// snapshot is the on-disk format.
type snapshot struct {
	SavedAt   time.Time            `json:"saved_at"`
	Positions []positionJSON       `json:"positions"`
}

type positionJSON struct {
	ID              string    `json:"id"`
	EventID         string    `json:"event_id"`
	Outcome         string    `json:"outcome"`
	PMTokenID       string    `json:"pm_token_id"`
	KalshiTicker    string    `json:"kalshi_ticker"`
	Mode            string    `json:"mode"`
	PMPrice         float64   `json:"pm_price"`
	KalshiPrice     float64   `json:"kalshi_price"`
	MatchedQuantity float64   `json:"matched_quantity"`
	EntryCost       float64   `json:"entry_cost"`
	ExpectedProfit  float64   `json:"expected_profit"`
	OpenedAt        time.Time `json:"opened_at"`
}

// PositionStore implements domain.PositionStore on a single JSON file.
type PositionStore struct {
	path string

	mu        sync.Mutex
	positions map[string]domain.ArbitragePosition
}

// NewPositionStore creates the store and loads any existing snapshot at path.
// A missing file is treated as an empty position set.
func NewPositionStore(path string) (*PositionStore, error) {
	s := &PositionStore{
		path:      path,
		positions: make(map[string]domain.ArbitragePosition),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("file: read snapshot %s: %w", path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("file: parse snapshot %s: %w", path, err)
	}

	for _, pj := range snap.Positions {
		p := fromJSON(pj)
		s.positions[p.ID] = p
	}

	return s, nil
}

// Save stores the position and rewrites the snapshot.
func (s *PositionStore) Save(_ context.Context, pos domain.ArbitragePosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[pos.ID] = pos
	return s.flushLocked()
}

// Delete removes a position and rewrites the snapshot. It returns
// domain.ErrNotFound when the ID is unknown.
func (s *PositionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[id]; !ok {
		return fmt.Errorf("file: position %s: %w", id, domain.ErrNotFound)
	}

	delete(s.positions, id)
	return s.flushLocked()
}

// List returns all positions ordered by open time.
func (s *PositionStore) List(_ context.Context) ([]domain.ArbitragePosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ArbitragePosition, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out, nil
}

// flushLocked writes the snapshot atomically: to a temp file in the same
// directory, then rename. Caller must hold s.mu.
func (s *PositionStore) flushLocked() error {
	snap := snapshot{
		SavedAt:   time.Now().UTC(),
		Positions: make([]positionJSON, 0, len(s.positions)),
	}
	for _, p := range s.positions {
		snap.Positions = append(snap.Positions, toJSON(p))
	}
	sort.Slice(snap.Positions, func(i, j int) bool {
		return snap.Positions[i].OpenedAt.Before(snap.Positions[j].OpenedAt)
	})

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("file: marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("file: create snapshot dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".positions-*.json")
	if err != nil {
		return fmt.Errorf("file: create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file: close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file: replace snapshot %s: %w", s.path, err)
	}

	return nil
}

func toJSON(p domain.ArbitragePosition) positionJSON {
	return positionJSON{
		ID:              p.ID,
		EventID:         p.Pair.EventID,
		Outcome:         p.Pair.Outcome,
		PMTokenID:       p.Pair.PolymarketTokenID,
		KalshiTicker:    p.Pair.KalshiTicker,
		Mode:            string(p.Mode),
		PMPrice:         p.PolymarketPrice,
		KalshiPrice:     p.KalshiPrice,
		MatchedQuantity: p.MatchedQuantity,
		EntryCost:       p.EntryCost,
		ExpectedProfit:  p.ExpectedProfit,
		OpenedAt:        p.OpenedAt,
	}
}

func fromJSON(pj positionJSON) domain.ArbitragePosition {
	return domain.ArbitragePosition{
		ID: pj.ID,
		Pair: domain.ContractPair{
			EventID:           pj.EventID,
			Outcome:           pj.Outcome,
			PolymarketTokenID: pj.PMTokenID,
			KalshiTicker:      pj.KalshiTicker,
		},
		Mode:            domain.ExecutionMode(pj.Mode),
		PolymarketPrice: pj.PMPrice,
		KalshiPrice:     pj.KalshiPrice,
		MatchedQuantity: pj.MatchedQuantity,
		EntryCost:       pj.EntryCost,
		ExpectedProfit:  pj.ExpectedProfit,
		OpenedAt:        pj.OpenedAt,
	}
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)

// Package memory provides in-process implementations of the cache
// interfaces for single-instance deployments that run without Redis.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

// QuoteCache is a process-local domain.QuoteCache.
type QuoteCache struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
}

func NewQuoteCache() *QuoteCache {
	return &QuoteCache{
		quotes: make(map[string]domain.Quote),
	}
}

func quoteKey(venue domain.Venue, contractID string) string {
	return string(venue) + ":" + contractID
}

func (qc *QuoteCache) SetQuote(_ context.Context, q domain.Quote) error {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	qc.quotes[quoteKey(q.Venue, q.ContractID)] = q
	return nil
}

func (qc *QuoteCache) GetQuote(_ context.Context, venue domain.Venue, contractID string) (domain.Quote, error) {
	qc.mu.RLock()
	defer qc.mu.RUnlock()

	q, ok := qc.quotes[quoteKey(venue, contractID)]
	if !ok {
		return domain.Quote{}, fmt.Errorf("memory: quote %s:%s: %w", venue, contractID, domain.ErrNotFound)
	}
	return q, nil
}

var _ domain.QuoteCache = (*QuoteCache)(nil)

// LockManager is a process-local domain.LockManager. Locks expire after
// their TTL so a crashed goroutine cannot wedge a pair forever.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]time.Time // key -> expiry
}

func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[string]time.Time),
	}
}

func (lm *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if expiry, held := lm.locks[key]; held && time.Now().Before(expiry) {
		return nil, domain.ErrLockHeld
	}

	lm.locks[key] = time.Now().Add(ttl)

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			lm.mu.Lock()
			defer lm.mu.Unlock()
			delete(lm.locks, key)
		})
	}

	return unlock, nil
}

var _ domain.LockManager = (*LockManager)(nil)

package domain

import (
	"context"
	"time"
)

// QuoteCache provides fast access to the latest top-of-book quotes,
// keyed by venue and contract ID.
type QuoteCache interface {
	SetQuote(ctx context.Context, q Quote) error
	GetQuote(ctx context.Context, venue Venue, contractID string) (Quote, error)
}

// LockManager provides distributed locking so that only one instance
// trades a contract pair at a time.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub between bot components and instances.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter throttles operations per key, shared across instances.
type RateLimiter interface {
	// Allow reports whether one more operation for key fits inside the
	// sliding window, counting it if so.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// Wait blocks until an operation for key is allowed or ctx is done.
	Wait(ctx context.Context, key string) error
}

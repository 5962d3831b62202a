package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/arbbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// quoteTTL bounds how long a quote survives without a refresh. A quote that
// old is useless for arbitrage anyway, and expiry keeps dead contracts from
// accumulating.
const quoteTTL = 5 * time.Minute

// QuoteCache implements domain.QuoteCache on Redis so that multiple bot
// instances can share the latest top-of-book per venue and contract.
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(venue domain.Venue, contractID string) string {
	return fmt.Sprintf("quote:%s:%s", venue, contractID)
}

// SetQuote stores the quote as JSON under quote:<venue>:<contract> with a TTL.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("redis: marshal quote: %w", err)
	}

	key := quoteKey(q.Venue, q.ContractID)
	if err := qc.rdb.Set(ctx, key, data, quoteTTL).Err(); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", key, err)
	}
	return nil
}

// GetQuote returns the latest quote for the venue and contract. It returns
// domain.ErrNotFound when no quote has been stored or it has expired.
func (qc *QuoteCache) GetQuote(ctx context.Context, venue domain.Venue, contractID string) (domain.Quote, error) {
	key := quoteKey(venue, contractID)

	data, err := qc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.Quote{}, fmt.Errorf("redis: quote %s: %w", key, domain.ErrNotFound)
		}
		return domain.Quote{}, fmt.Errorf("redis: get quote %s: %w", key, err)
	}

	var q domain.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: unmarshal quote %s: %w", key, err)
	}

	return q, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)

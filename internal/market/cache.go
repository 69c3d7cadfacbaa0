package market

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"uphold-trade-bot-go/internal/metrics"
	"uphold-trade-bot-go/internal/uphold"
)

// Quote is a parsed point-in-time view of one pair. Stale marks a quote
// served from cache after its TTL because the upstream fetch failed.
type Quote struct {
	Pair       string    `json:"pair"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	Last       float64   `json:"last"`
	Stale      bool      `json:"stale,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// Cache memoizes quotes per pair with a TTL. Lookups inside the TTL are
// served from memory; expired or missing entries are refreshed from the
// API. When the refresh fails a stale entry is still served, flagged.
type Cache struct {
	client uphold.RestClientInterface
	logger *zap.Logger

	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]Quote
}

// NewCache creates a quote cache backed by the given client.
func NewCache(client uphold.RestClientInterface, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		client:  client,
		logger:  logger,
		ttl:     ttl,
		entries: make(map[string]Quote),
	}
}

// SetTTL adjusts the expiry window. Applies from the next lookup.
func (c *Cache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	c.ttl = ttl
	c.mu.Unlock()
}

// Get returns the quote for a pair, fetching it from the API when the
// cached entry is expired or missing. On fetch failure an expired entry
// is still returned, marked stale; without one the error is reported.
func (c *Cache) Get(ctx context.Context, pair string) (Quote, error) {
	if q, ok := c.cached(pair); ok {
		metrics.CacheHits.Inc()
		return q, nil
	}
	metrics.CacheMisses.Inc()

	q, err := c.refresh(ctx, pair)
	if err == nil {
		return q, nil
	}

	c.mu.RLock()
	stale, ok := c.entries[pair]
	c.mu.RUnlock()
	if ok {
		stale.Stale = true
		c.logger.Warn("Serving stale quote after failed refresh",
			zap.String("pair", pair),
			zap.Time("observed_at", stale.ObservedAt),
			zap.Error(err),
		)
		return stale, nil
	}

	return Quote{}, fmt.Errorf("no usable quote for '%s': %w", pair, err)
}

// GetMany returns quotes for the given pairs, fetching only those whose
// cache entry is expired or missing. Pairs that fail to resolve are
// dropped from the result; the batch only errors when nothing resolves.
func (c *Cache) GetMany(ctx context.Context, pairs []string) (map[string]Quote, error) {
	result := make(map[string]Quote, len(pairs))
	var toFetch []string

	c.mu.RLock()
	for _, pair := range pairs {
		if q, ok := c.entries[pair]; ok && time.Since(q.ObservedAt) < c.ttl {
			result[pair] = q
		} else {
			toFetch = append(toFetch, pair)
		}
	}
	c.mu.RUnlock()
	metrics.CacheHits.Add(float64(len(result)))

	if len(toFetch) > 0 {
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, pair := range toFetch {
			g.Go(func() error {
				q, err := c.Get(gctx, pair)
				if err != nil {
					c.logger.Warn("Skipping pair without market data",
						zap.String("pair", pair), zap.Error(err))
					return nil
				}
				mu.Lock()
				result[pair] = q
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	if len(result) == 0 && len(pairs) > 0 {
		return nil, fmt.Errorf("no market data for any of %d pairs: %w", len(pairs), uphold.ErrUnavailable)
	}
	return result, nil
}

// Snapshot returns a copy of every cached quote, including expired ones.
func (c *Cache) Snapshot() map[string]Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Quote, len(c.entries))
	for pair, q := range c.entries {
		out[pair] = q
	}
	return out
}

func (c *Cache) cached(pair string) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.entries[pair]
	if !ok || time.Since(q.ObservedAt) >= c.ttl {
		return Quote{}, false
	}
	return q, true
}

func (c *Cache) refresh(ctx context.Context, pair string) (Quote, error) {
	ticker, err := c.client.GetTicker(ctx, pair)
	if err != nil {
		return Quote{}, err
	}

	q, err := parseTicker(ticker)
	if err != nil {
		return Quote{}, err
	}
	q.ObservedAt = time.Now()

	c.mu.Lock()
	c.entries[q.Pair] = q
	c.mu.Unlock()
	return q, nil
}

func parseTicker(t *uphold.Ticker) (Quote, error) {
	bid, err := strconv.ParseFloat(t.Bid, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("malformed bid '%s' for '%s'", t.Bid, t.Pair)
	}
	ask, err := strconv.ParseFloat(t.Ask, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("malformed ask '%s' for '%s'", t.Ask, t.Pair)
	}
	last, err := strconv.ParseFloat(t.Last, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("malformed last '%s' for '%s'", t.Last, t.Pair)
	}

	return Quote{Pair: t.Pair, Bid: bid, Ask: ask, Last: last}, nil
}

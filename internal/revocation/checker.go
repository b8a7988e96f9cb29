package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog/log"

	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/metrics"
	"github.com/classhub/trustgate/internal/token"
)

var _ token.RevocationChecker = (*Checker)(nil)

const DefaultTimeout = 250 * time.Millisecond

// Checker consults a RevocationStore on behalf of verifiers.
//
// It fails open: when the store errors or does not answer within the timeout,
// the token is treated as not revoked and verification continues on its
// signature and expiry alone. Every such fallback is logged at WARN.
//
// An optional hit cache remembers IDs the store reported as revoked. Entries
// only ever go from absent to present, so a cached hit stays correct; an
// evicted hit costs one more store lookup.
type Checker struct {
	store   core.RevocationStore
	timeout time.Duration
	hits    *ristretto.Cache[string, struct{}]
	hitTTL  time.Duration
}

func NewChecker(store core.RevocationStore, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		store:   store,
		timeout: timeout,
	}
}

// NewCachedChecker is NewChecker with a hit cache of up to maxHits IDs,
// each kept for hitTTL. Use it in front of a remote store.
func NewCachedChecker(store core.RevocationStore, timeout, hitTTL time.Duration, maxHits int64) (*Checker, error) {
	if hitTTL <= 0 || maxHits <= 0 {
		return nil, fmt.Errorf("hit cache needs a positive ttl and size, got %s and %d", hitTTL, maxHits)
	}
	hits, err := ristretto.NewCache(&ristretto.Config[string, struct{}]{
		NumCounters:        maxHits * 10,
		MaxCost:            maxHits,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating revocation hit cache: %w", err)
	}
	c := NewChecker(store, timeout)
	c.hits = hits
	c.hitTTL = hitTTL
	return c, nil
}

func (c *Checker) IsRevoked(ctx context.Context, tokenID string) bool {
	if c.hits != nil {
		if _, ok := c.hits.Get(tokenID); ok {
			return true
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	revoked, err := c.store.Contains(lookupCtx, tokenID)
	if err != nil {
		metrics.RevocationFailOpen.Inc()
		log.Ctx(ctx).Warn().
			Err(err).
			Str("jti", tokenID).
			Msg("revocation store unavailable, accepting token on signature alone")
		return false
	}
	if revoked && c.hits != nil {
		c.hits.SetWithTTL(tokenID, struct{}{}, 1, c.hitTTL)
	}
	return revoked
}

// Close releases the hit cache, if any.
func (c *Checker) Close() {
	if c.hits != nil {
		c.hits.Close()
	}
}

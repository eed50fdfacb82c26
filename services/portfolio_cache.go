package services

import (
	"context"
	"fmt"
	"time"

	"rental-platform-api/predictive"
)

// CacheStore is the subset of CacheService the portfolio cache needs.
type CacheStore interface {
	Available() bool
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Int(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// PortfolioCache keys every cached summary by the owner's current generation.
// Invalidate bumps the generation, so a summary computed from older history
// is written under a key that is never read again.
type PortfolioCache struct {
	store CacheStore
	ttl   time.Duration
}

func NewPortfolioCache(store CacheStore, ttl time.Duration) *PortfolioCache {
	return &PortfolioCache{store: store, ttl: ttl}
}

func (c *PortfolioCache) enabled() bool {
	return c != nil && c.store != nil && c.store.Available() && c.ttl > 0
}

// Generation returns the owner's current generation. Read it before computing
// a summary and pass it to Store.
func (c *PortfolioCache) Generation(ctx context.Context, ownerID uint) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	return c.store.Int(ctx, portfolioGenerationKey(ownerID))
}

// Load reports a hit only for a summary stored under the current generation.
func (c *PortfolioCache) Load(ctx context.Context, ownerID uint, months int) (predictive.PortfolioSummary, bool) {
	if !c.enabled() {
		return predictive.PortfolioSummary{}, false
	}
	gen, err := c.Generation(ctx, ownerID)
	if err != nil {
		return predictive.PortfolioSummary{}, false
	}
	var summary predictive.PortfolioSummary
	if err := c.store.Get(ctx, portfolioCacheKey(ownerID, gen, months), &summary); err != nil {
		return predictive.PortfolioSummary{}, false
	}
	return summary, true
}

func (c *PortfolioCache) Store(ctx context.Context, ownerID uint, months int, gen int64, summary predictive.PortfolioSummary) error {
	if !c.enabled() {
		return nil
	}
	return c.store.Set(ctx, portfolioCacheKey(ownerID, gen, months), summary, c.ttl)
}

func (c *PortfolioCache) Invalidate(ctx context.Context, ownerID uint) error {
	if c == nil || c.store == nil || !c.store.Available() {
		return nil
	}
	_, err := c.store.Incr(ctx, portfolioGenerationKey(ownerID))
	return err
}

func portfolioGenerationKey(ownerID uint) string {
	return fmt.Sprintf("predictive:portfolio:gen:%d", ownerID)
}

func portfolioCacheKey(ownerID uint, gen int64, months int) string {
	return fmt.Sprintf("predictive:portfolio:%d:%d:%d", ownerID, gen, months)
}

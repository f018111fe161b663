package stats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadcentral/leadcentral/pkg/logging"
)

const orgStatsKey = "leadcentral:stats:org"

// CachedAggregator caches the org-wide payload in Redis for a short TTL.
// The admin dashboard polls it on every page load; a slightly stale view
// is acceptable while per-agent stats stay live. Any cache failure falls
// through to a live computation.
type CachedAggregator struct {
	inner  *Aggregator
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedAggregator wraps agg with a Redis cache. client may be nil, in
// which case every call computes live.
func NewCachedAggregator(agg *Aggregator, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedAggregator {
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedAggregator{inner: agg, client: client, ttl: ttl, logger: logger}
}

// AgentStats is never cached; it delegates to the live aggregator.
func (c *CachedAggregator) AgentStats(ctx context.Context, agentID string) (*AgentStats, error) {
	return c.inner.AgentStats(ctx, agentID)
}

// Prospecteurs delegates to the live aggregator.
func (c *CachedAggregator) Prospecteurs(ctx context.Context) ([]*ProspecteurOverview, error) {
	return c.inner.Prospecteurs(ctx)
}

// OrgStats returns the cached payload when fresh, otherwise recomputes
// and stores it.
func (c *CachedAggregator) OrgStats(ctx context.Context) (*OrgStats, error) {
	if c.client != nil {
		raw, err := c.client.Get(ctx, orgStatsKey).Bytes()
		if err == nil {
			var cached OrgStats
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			c.logger.Warn("stats cache read failed", "error", err)
		}
	}

	out, err := c.inner.OrgStats(ctx)
	if err != nil {
		return nil, err
	}

	if c.client != nil {
		if raw, err := json.Marshal(out); err == nil {
			if err := c.client.Set(ctx, orgStatsKey, raw, c.ttl).Err(); err != nil {
				c.logger.Warn("stats cache write failed", "error", err)
			}
		}
	}
	return out, nil
}

// Invalidate drops the cached org payload. Write paths call it so the
// dashboard converges faster than the TTL.
func (c *CachedAggregator) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, orgStatsKey).Err(); err != nil {
		c.logger.Warn("stats cache invalidate failed", "error", err)
	}
}

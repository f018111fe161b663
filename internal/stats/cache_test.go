package stats

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadcentral/leadcentral/internal/prospects"
	"github.com/leadcentral/leadcentral/pkg/logging"
)

func newCacheFixture(t *testing.T) (*statsFixture, *CachedAggregator, *miniredis.Miniredis) {
	t.Helper()
	f := newStatsFixture()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cached := NewCachedAggregator(f.agg, client, time.Minute, nil)
	return f, cached, mr
}

func TestOrgStatsCached(t *testing.T) {
	f, cached, _ := newCacheFixture(t)
	f.addAgent(t, "agent-1")
	f.addProspect(t, "p1", "agent-1", prospects.StatusPrincipale)
	ctx := context.Background()

	first, err := cached.OrgStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalProspects)

	// A write behind the cache's back is invisible until invalidation.
	f.addProspect(t, "p2", "agent-1", prospects.StatusPrincipale)
	stale, err := cached.OrgStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stale.TotalProspects)

	cached.Invalidate(ctx)
	fresh, err := cached.OrgStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalProspects)
}

func TestOrgStatsMissIsNotAFailure(t *testing.T) {
	f := newStatsFixture()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var logs bytes.Buffer
	cached := NewCachedAggregator(f.agg, client, time.Minute, logging.NewWithWriter(&logs, "warn"))

	// A cold cache is an ordinary miss, not a cache failure.
	_, err := cached.OrgStats(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "cache read failed")
}

func TestOrgStatsCacheExpires(t *testing.T) {
	f, cached, mr := newCacheFixture(t)
	f.addAgent(t, "agent-1")
	ctx := context.Background()

	_, err := cached.OrgStats(ctx)
	require.NoError(t, err)

	f.addProspect(t, "p1", "agent-1", prospects.StatusPrincipale)
	mr.FastForward(2 * time.Minute)

	fresh, err := cached.OrgStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.TotalProspects)
}

func TestOrgStatsCacheUnavailable(t *testing.T) {
	f, cached, mr := newCacheFixture(t)
	f.addAgent(t, "agent-1")
	f.addProspect(t, "p1", "agent-1", prospects.StatusPrincipale)
	ctx := context.Background()

	// A down cache degrades to live computation.
	mr.Close()
	got, err := cached.OrgStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalProspects)
}

func TestAgentStatsNeverCached(t *testing.T) {
	f, cached, _ := newCacheFixture(t)
	f.addAgent(t, "agent-1")
	ctx := context.Background()

	before, err := cached.AgentStats(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 0, before.ProspectsCount)

	f.addProspect(t, "p1", "agent-1", prospects.StatusPrincipale)
	after, err := cached.AgentStats(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 1, after.ProspectsCount)
}

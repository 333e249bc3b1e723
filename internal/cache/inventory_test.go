package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/cra-planner/internal/config"
	"github.com/andresuchdata/cra-planner/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestMemoryInventoryCacheExpires(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
	c := NewMemoryInventoryCache(time.Hour, clock.Now)
	ctx := context.Background()

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache")

	records := []domain.InventoryRecord{{NP: "A1", Warehouse: "GENERAL CULIACAN", OnHand: 3}}
	require.NoError(t, c.Set(ctx, records))

	clock.t = clock.t.Add(59 * time.Minute)
	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, records, got)

	clock.t = clock.t.Add(time.Minute)
	_, ok, _ = c.Get(ctx)
	assert.False(t, ok, "snapshot older than the ttl is reloaded")
}

func TestMemoryInventoryCacheInvalidate(t *testing.T) {
	c := NewMemoryInventoryCache(0, nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, []domain.InventoryRecord{{NP: "A1"}}))
	require.NoError(t, c.Invalidate(ctx))

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewInventoryCacheSelection(t *testing.T) {
	c, err := NewInventoryCache(config.CacheConfig{})
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), []domain.InventoryRecord{{NP: "A1"}}))
	_, ok, _ := c.Get(context.Background())
	assert.False(t, ok, "disabled cache stores nothing")

	c, err = NewInventoryCache(config.CacheConfig{Enabled: true})
	require.NoError(t, err)
	assert.IsType(t, &MemoryInventoryCache{}, c)
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPassword: "s", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:pw@redis.internal:6380/1"})
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", opts.Addr)
	assert.Equal(t, 1, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)

	assert.Equal(t, time.Hour, inventoryTTL(config.CacheConfig{}))
}

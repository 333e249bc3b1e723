package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/cra-planner/internal/config"
	"github.com/andresuchdata/cra-planner/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	inventoryKeyPrefix = "inventory:"
	inventorySnapshot  = inventoryKeyPrefix + "snapshot"
)

// InventoryCache holds the parsed master inventory snapshot between runs.
type InventoryCache interface {
	Get(ctx context.Context) ([]domain.InventoryRecord, bool, error)
	Set(ctx context.Context, records []domain.InventoryRecord) error
	Invalidate(ctx context.Context) error
}

// NewInventoryCache picks the cache backend: "redis" shares the snapshot
// between instances, anything else keeps it in process memory. A disabled
// cache stores nothing.
func NewInventoryCache(cfg config.CacheConfig) (InventoryCache, error) {
	if !cfg.Enabled {
		return NewNoopInventoryCache(), nil
	}
	if cfg.Backend != "redis" {
		return NewMemoryInventoryCache(inventoryTTL(cfg), time.Now), nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &redisInventoryCache{client: client, ttl: ttl}, nil
}

type redisInventoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (c *redisInventoryCache) Get(ctx context.Context) ([]domain.InventoryRecord, bool, error) {
	payload, err := c.client.Get(ctx, inventorySnapshot).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var records []domain.InventoryRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false, fmt.Errorf("decode inventory cache: %w", err)
	}

	return records, true, nil
}

func (c *redisInventoryCache) Set(ctx context.Context, records []domain.InventoryRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode inventory cache: %w", err)
	}

	if err := c.client.Set(ctx, inventorySnapshot, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisInventoryCache) Invalidate(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, inventoryKeyPrefix)
}

// MemoryInventoryCache keeps the snapshot in process memory.
type MemoryInventoryCache struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	records  []domain.InventoryRecord
	storedAt time.Time
	loaded   bool
}

func NewMemoryInventoryCache(ttl time.Duration, now func() time.Time) *MemoryInventoryCache {
	if ttl <= 0 {
		ttl = defaultInventoryTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryInventoryCache{ttl: ttl, now: now}
}

func (c *MemoryInventoryCache) Get(ctx context.Context) ([]domain.InventoryRecord, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.loaded || c.now().Sub(c.storedAt) >= c.ttl {
		return nil, false, nil
	}
	return c.records, true, nil
}

func (c *MemoryInventoryCache) Set(ctx context.Context, records []domain.InventoryRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = records
	c.storedAt = c.now()
	c.loaded = true
	return nil
}

func (c *MemoryInventoryCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = nil
	c.loaded = false
	return nil
}

type noopInventoryCache struct{}

func NewNoopInventoryCache() InventoryCache {
	return &noopInventoryCache{}
}

func (n *noopInventoryCache) Get(ctx context.Context) ([]domain.InventoryRecord, bool, error) {
	return nil, false, nil
}

func (n *noopInventoryCache) Set(ctx context.Context, records []domain.InventoryRecord) error {
	return nil
}

func (n *noopInventoryCache) Invalidate(ctx context.Context) error {
	return nil
}

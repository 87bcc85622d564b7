package services

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	goredis "github.com/redis/go-redis/v9"
)

// ZoneCache holds the ordered active-zone list read by every location ping.
type ZoneCache interface {
	Get(ctx context.Context) ([]models.GeofenceZone, bool, error)
	Set(ctx context.Context, zones []models.GeofenceZone) error
	Invalidate(ctx context.Context) error
}

// MemoryZoneCache is a process-local ZoneCache.
type MemoryZoneCache struct {
	mu      sync.RWMutex
	zones   []models.GeofenceZone
	expires time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryZoneCache(ttl time.Duration) *MemoryZoneCache {
	return &MemoryZoneCache{ttl: ttl, now: time.Now}
}

func (c *MemoryZoneCache) Get(_ context.Context) ([]models.GeofenceZone, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.zones == nil || c.now().After(c.expires) {
		return nil, false, nil
	}
	return slices.Clone(c.zones), true, nil
}

func (c *MemoryZoneCache) Set(_ context.Context, zones []models.GeofenceZone) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zones = slices.Clone(zones)
	if c.zones == nil {
		c.zones = []models.GeofenceZone{}
	}
	c.expires = c.now().Add(c.ttl)
	return nil
}

func (c *MemoryZoneCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zones = nil
	return nil
}

const activeZonesKey = "crimewatch:zones:active"

// RedisZoneCache shares the active-zone list between server instances so a
// zone write on one instance is visible to all of them after invalidation.
type RedisZoneCache struct {
	rdb goredis.UniversalClient
	key string
	ttl time.Duration
}

func NewRedisZoneCache(rdb goredis.UniversalClient, ttl time.Duration) *RedisZoneCache {
	return &RedisZoneCache{rdb: rdb, key: activeZonesKey, ttl: ttl}
}

func (c *RedisZoneCache) Get(ctx context.Context) ([]models.GeofenceZone, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var zones []models.GeofenceZone
	if err := json.Unmarshal(raw, &zones); err != nil {
		return nil, false, err
	}
	return zones, true, nil
}

func (c *RedisZoneCache) Set(ctx context.Context, zones []models.GeofenceZone) error {
	if zones == nil {
		zones = []models.GeofenceZone{}
	}
	raw, err := json.Marshal(zones)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key, raw, c.ttl).Err()
}

func (c *RedisZoneCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key).Err()
}

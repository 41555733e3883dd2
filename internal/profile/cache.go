package profile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"solar-bess-sizer/internal/model"

	"go.uber.org/zap"
)

// CacheEntry is a generated profile and its expiry.
type CacheEntry struct {
	Profile   model.Profile
	ExpiresAt time.Time
}

// Cache holds generated profiles keyed by location and year.
// A nil *Cache is valid and never hits.
type Cache struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewCache returns a cache whose entries live for ttl. ttl <= 0 keeps entries forever.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		store: make(map[string]*CacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// CacheKey identifies a profile. Coordinates are rounded to 4 decimals (~11 m).
func CacheKey(site Site, year int) string {
	keyStr := fmt.Sprintf("%.4f:%.4f:%.1f:%d", site.Latitude, site.Longitude, site.AltitudeM, year)
	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:])
}

// Get returns a copy of a cached profile if present and not expired.
func (c *Cache) Get(key string) (model.Profile, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.store[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().After(entry.ExpiresAt) {
		return nil, false
	}
	return append(model.Profile(nil), entry.Profile...), true
}

func (c *Cache) Set(key string, p model.Profile) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = &CacheEntry{
		Profile:   append(model.Profile(nil), p...),
		ExpiresAt: c.now().Add(c.ttl),
	}
}

func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*CacheEntry)
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Run evicts expired entries every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if c == nil || c.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.evict()
		}
	}
}

func (c *Cache) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.store {
		if now.After(entry.ExpiresAt) {
			delete(c.store, key)
		}
	}
}

// Provider returns the availability profile for a site and year.
type Provider interface {
	Profile(ctx context.Context, site Site, year int) (model.Profile, error)
}

// ClearSkyProvider generates half-year clear-sky profiles and memoizes them.
type ClearSkyProvider struct {
	Cache *Cache
	// FullYear generates Jan 1 - Dec 31 instead of the half-year horizon.
	FullYear bool
	Logger   *zap.Logger
}

func (p *ClearSkyProvider) Profile(ctx context.Context, site Site, year int) (model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	key := CacheKey(site, year)
	if p.FullYear {
		key += ":full"
	}
	if cached, ok := p.Cache.Get(key); ok {
		log.Debug("profile cache hit", zap.Float64("lat", site.Latitude), zap.Float64("lon", site.Longitude), zap.Int("year", year))
		return cached, nil
	}

	h := HalfYear(year)
	if p.FullYear {
		h = FullYear(year)
	}
	prof, err := ClearSky(site, h)
	if err != nil {
		return nil, fmt.Errorf("clear-sky profile %d: %w", year, err)
	}
	p.Cache.Set(key, prof)
	log.Debug("profile generated",
		zap.Float64("lat", site.Latitude), zap.Float64("lon", site.Longitude),
		zap.Int("year", year), zap.Int("periods", prof.Len()))
	return prof, nil
}

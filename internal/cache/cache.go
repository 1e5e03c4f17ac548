// Package cache provides the TTL cache injected into pricing, discount and
// statistics lookups.
package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Default TTLs per lookup kind
const (
	CatalogTTL       = time.Hour
	ValidIDsTTL      = time.Hour
	CustomerStatsTTL = 30 * time.Minute
	DiscountsTTL     = 5 * time.Minute
)

// Cache is a key-value store with per-entry expiry.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	DeletePrefix(prefix string)
}

type memoryCache struct {
	c *gocache.Cache
}

// NewMemory returns an in-process cache; cleanup runs every interval.
func NewMemory(cleanup time.Duration) Cache {
	return &memoryCache{c: gocache.New(gocache.NoExpiration, cleanup)}
}

func (m *memoryCache) Get(key string) (interface{}, bool) {
	return m.c.Get(key)
}

func (m *memoryCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(key, value, ttl)
}

func (m *memoryCache) Delete(key string) {
	m.c.Delete(key)
}

func (m *memoryCache) DeletePrefix(prefix string) {
	for k := range m.c.Items() {
		if strings.HasPrefix(k, prefix) {
			m.c.Delete(k)
		}
	}
}

type noop struct{}

// Noop never stores anything.
func Noop() Cache { return noop{} }

func (noop) Get(string) (interface{}, bool)         { return nil, false }
func (noop) Set(string, interface{}, time.Duration) {}
func (noop) Delete(string)                          {}
func (noop) DeletePrefix(string)                    {}

// Key joins parts with ':'.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

package speech

import (
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	provider "github.com/MrWong99/yuetip/pkg/provider/speech"
)

// DefaultCacheSize is the number of audio payloads kept when no size is
// configured.
const DefaultCacheSize = 20

// CacheKey identifies one finished payload.
type CacheKey struct {
	Engine provider.Engine
	Rate   float64
	Text   string
}

// String returns a compact form used for single-flight grouping and logs.
func (k CacheKey) String() string {
	return string(k.Engine) + "|" + strconv.FormatFloat(k.Rate, 'g', -1, 64) + "|" + k.Text
}

// Cache holds finished audio payloads and evicts the key inserted earliest.
// Lookups never refresh a key. It is safe for concurrent use.
type Cache struct {
	entries *lru.Cache[CacheKey, provider.Audio]
}

// NewCache returns a cache holding at most size payloads. A size of zero or
// less selects [DefaultCacheSize].
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[CacheKey, provider.Audio](size)
	if err != nil {
		return nil, fmt.Errorf("speech: new cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Get returns the payload stored under k without touching its position.
func (c *Cache) Get(k CacheKey) (provider.Audio, bool) {
	return c.entries.Peek(k)
}

// Put stores a under k. An existing key keeps its original insertion
// position, so re-putting never postpones its eviction.
func (c *Cache) Put(k CacheKey, a provider.Audio) {
	c.entries.PeekOrAdd(k, a)
}

// Contains reports whether k is cached.
func (c *Cache) Contains(k CacheKey) bool { return c.entries.Contains(k) }

// Len returns the number of cached payloads.
func (c *Cache) Len() int { return c.entries.Len() }

// Keys returns the cached keys from oldest to newest.
func (c *Cache) Keys() []CacheKey { return c.entries.Keys() }

// Purge empties the cache.
func (c *Cache) Purge() { c.entries.Purge() }

package cache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/yash/flightinsight/internal/metrics"
	"github.com/yash/flightinsight/pkg/models"
)

// DefaultTTL matches the dashboard's five minute refresh horizon.
const DefaultTTL = 5 * time.Minute

// Key identifies one fetch request.
type Key struct {
	Source    models.Source
	Country   string
	TimeRange models.TimeRange
	Airport   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.Source, k.Country, k.TimeRange, k.Airport)
}

// TTLCache memoizes values per Key for a fixed time-to-live. Concurrent
// misses on the same key share one computation.
type TTLCache[V any] struct {
	items *gocache.Cache
	group singleflight.Group
	ttl   time.Duration
}

// New creates a cache whose entries expire after ttl. A non-positive ttl
// uses DefaultTTL.
func New[V any](ttl time.Duration) *TTLCache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTLCache[V]{
		items: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// TTL returns the configured time-to-live.
func (c *TTLCache[V]) TTL() time.Duration { return c.ttl }

// Get returns the live value for key.
func (c *TTLCache[V]) Get(key Key) (V, bool) {
	var zero V
	v, ok := c.items.Get(key.String())
	if !ok {
		return zero, false
	}
	return v.(V), true
}

// Set stores a value under key with the cache TTL.
func (c *TTLCache[V]) Set(key Key, v V) {
	c.items.Set(key.String(), v, gocache.DefaultExpiration)
}

// GetOrCompute returns the cached value for key, or calls compute and caches
// its result. Values are cached only when compute returns a nil error. hit
// reports whether the value came from the cache.
func (c *TTLCache[V]) GetOrCompute(key Key, compute func() (V, error)) (v V, hit bool, err error) {
	if v, ok := c.Get(key); ok {
		metrics.CacheHits.Inc()
		return v, true, nil
	}
	metrics.CacheMisses.Inc()

	res, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		v, err := compute()
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})
	v, _ = res.(V)
	return v, false, err
}

// Delete removes key.
func (c *TTLCache[V]) Delete(key Key) {
	c.items.Delete(key.String())
}

// Flush removes every entry.
func (c *TTLCache[V]) Flush() {
	c.items.Flush()
}

// Len returns the number of entries, expired ones included until the janitor
// runs.
func (c *TTLCache[V]) Len() int {
	return c.items.ItemCount()
}

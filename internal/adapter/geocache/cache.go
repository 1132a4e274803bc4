// Package geocache memoizes reverse geocoding lookups.
package geocache

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache. Concurrent
// lookups of the same coordinate pair share one backend call.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache
	group   singleflight.Group
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// Key returns the memoization key for a coordinate pair.
func Key(lat, lon float64) string {
	return fmt.Sprintf("%.6f,%.6f", lat, lon)
}

func (c *CachedGeocoder) CountryCode(ctx context.Context, lat, lon float64) (string, error) {
	key := Key(lat, lon)
	if code, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return code, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		code, err := c.inner.CountryCode(ctx, lat, lon)
		if err != nil {
			return "", err
		}
		// Only cache non-empty results so transient "not found" responses can be retried.
		if strings.TrimSpace(code) != "" {
			c.cache.put(key, code)
		}
		return code, nil
	})
	if shared {
		c.metrics.GeocodeCache.WithLabelValues("shared").Inc()
	} else {
		c.metrics.GeocodeCache.WithLabelValues("miss").Inc()
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Len reports the number of cached entries.
func (c *CachedGeocoder) Len() int {
	return c.cache.len()
}

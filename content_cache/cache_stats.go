package content_cache

import (
	"sync"
	"time"
)

type cacheStats struct {
	mutex         sync.RWMutex
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	Evictions     int64
	LastResetTime time.Time
}

// Stats is a snapshot of cache performance counters.
type Stats struct {
	Entries       int
	Capacity      int
	Policy        Policy
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	Evictions     int64
	HitRate       float64 // percent
	Uptime        time.Duration
}

func (c *ContentCache) recordCacheHit() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.TotalRequests++
	c.stats.CacheHits++
}

func (c *ContentCache) recordCacheMiss() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.TotalRequests++
	c.stats.CacheMisses++
}

func (c *ContentCache) recordEviction() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Evictions++
}

// Stats returns the current performance counters.
func (c *ContentCache) Stats() Stats {
	entries := c.Len()

	c.stats.mutex.RLock()
	defer c.stats.mutex.RUnlock()

	hitRate := 0.0
	if c.stats.TotalRequests > 0 {
		hitRate = float64(c.stats.CacheHits) / float64(c.stats.TotalRequests) * 100
	}

	return Stats{
		Entries:       entries,
		Capacity:      c.capacity,
		Policy:        c.policy,
		TotalRequests: c.stats.TotalRequests,
		CacheHits:     c.stats.CacheHits,
		CacheMisses:   c.stats.CacheMisses,
		Evictions:     c.stats.Evictions,
		HitRate:       hitRate,
		Uptime:        time.Since(c.stats.LastResetTime),
	}
}

// ResetStats zeroes all performance counters.
func (c *ContentCache) ResetStats() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()

	c.stats.TotalRequests = 0
	c.stats.CacheHits = 0
	c.stats.CacheMisses = 0
	c.stats.Evictions = 0
	c.stats.LastResetTime = time.Now()
}

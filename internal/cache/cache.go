// Package cache provides the process-local cache every outbound Docker Hub
// call goes through: a TTL + LRU store bounded by an estimated byte size
// (Memory), and the cache-aside helper Fetch that composes it with any
// producer function.
package cache

import "time"

// Cache is the contract components use to read and write cached values.
// Implementations must treat expired entries as absent.
type Cache interface {
	// Get returns the live value for key and marks it recently used.
	Get(key string) (any, bool)
	// Set stores value under key. A ttl <= 0 selects the default TTL.
	Set(key string, value any, ttl time.Duration)
	// Has reports whether a live entry exists. It does not touch recency.
	Has(key string) bool
	// Delete removes key and reports whether an entry was removed.
	Delete(key string) bool
	Len() int
	Clear()
	Stats() Stats
}

// Stats is a point-in-time view of cache usage.
type Stats struct {
	// Size is the number of stored entries.
	Size int `json:"size"`
	// MemoryUsage is the estimated payload size in bytes.
	MemoryUsage int64 `json:"memory_usage"`
	// HitRate is hits / (hits + misses) since creation or the last Clear.
	HitRate   float64 `json:"hit_rate"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	// Evictions counts live entries dropped to respect the size bound.
	Evictions uint64 `json:"evictions"`
}

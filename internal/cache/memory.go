package cache

import (
	"container/list"
	"encoding/json"
	"sync"
	"time"

	"github.com/ferro-labs/dockerhub-mcp/internal/metrics"
)

// Defaults applied by NewMemory for zero-valued Options fields.
const (
	DefaultTTL             = time.Hour
	DefaultMaxSize         = 100 << 20
	DefaultCleanupInterval = 5 * time.Minute
)

// fallbackEntrySize is charged for values that cannot be JSON encoded.
const fallbackEntrySize = 1 << 10

// Options configures a Memory cache.
type Options struct {
	DefaultTTL time.Duration
	// MaxSize bounds the estimated payload in bytes. Negative disables the bound.
	MaxSize int64
	// CleanupInterval is the period of the expired-entry sweep. Negative
	// disables the sweep; expiry is then only checked lazily.
	CleanupInterval time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type memoryEntry struct {
	key        string
	value      any
	size       int64
	storedAt   time.Time
	ttl        time.Duration
	lastAccess time.Time
}

func (e *memoryEntry) live(now time.Time) bool {
	return now.Before(e.storedAt.Add(e.ttl))
}

// Memory is a thread-safe in-memory cache with per-entry TTL, a periodic
// expiry sweep, and least-recently-accessed eviction once the estimated
// size exceeds MaxSize. The front of the eviction list is the most
// recently accessed entry.
type Memory struct {
	mu        sync.Mutex
	ttl       time.Duration
	maxSize   int64
	used      int64
	items     map[string]*list.Element
	evictList *list.List
	now       func() time.Time

	hits, misses, evictions uint64

	stop      chan struct{}
	done      chan struct{}
	destroyed bool
	once      sync.Once
}

// NewMemory creates a cache and starts its cleanup sweep. Call Destroy to
// stop the sweep.
func NewMemory(opts Options) *Memory {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.MaxSize == 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.CleanupInterval == 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Memory{
		ttl:       opts.DefaultTTL,
		maxSize:   opts.MaxSize,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		now:       opts.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if opts.CleanupInterval > 0 {
		go m.sweep(opts.CleanupInterval)
	} else {
		close(m.done)
	}
	return m
}

func (m *Memory) sweep(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.PurgeExpired()
		}
	}
}

// Get returns the cached value for key, or false if missing or expired.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		m.recordMiss()
		return nil, false
	}
	entry := elem.Value.(*memoryEntry)
	now := m.now()
	if !entry.live(now) {
		m.removeElement(elem)
		m.recordMiss()
		return nil, false
	}

	entry.lastAccess = now
	m.evictList.MoveToFront(elem)
	m.hits++
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return entry.value, true
}

// Has reports whether key holds a live entry. Expired entries found here
// are removed, but recency is left untouched.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		return false
	}
	if !elem.Value.(*memoryEntry).live(m.now()) {
		m.removeElement(elem)
		return false
	}
	return true
}

// Set stores value under key, replacing any previous entry. Values whose
// estimated size alone exceeds MaxSize are not stored.
func (m *Memory) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.ttl
	}
	size := estimateSize(key, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}

	if elem, ok := m.items[key]; ok {
		m.removeElement(elem)
	}
	if m.maxSize > 0 && size > m.maxSize {
		return
	}

	now := m.now()
	if m.maxSize > 0 && m.used+size > m.maxSize {
		m.purgeExpiredLocked(now)
		for m.used+size > m.maxSize && m.evictList.Len() > 0 {
			m.removeOldest()
		}
	}

	entry := &memoryEntry{
		key:        key,
		value:      value,
		size:       size,
		storedAt:   now,
		ttl:        ttl,
		lastAccess: now,
	}
	m.items[key] = m.evictList.PushFront(entry)
	m.used += size
	metrics.CacheBytes.Set(float64(m.used))
}

// Delete removes key and reports whether it was present.
func (m *Memory) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		return false
	}
	m.removeElement(elem)
	return true
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictList.Len()
}

// Clear removes all entries and resets size accounting and hit counters.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

func (m *Memory) clearLocked() {
	m.items = make(map[string]*list.Element)
	m.evictList.Init()
	m.used = 0
	m.hits, m.misses, m.evictions = 0, 0, 0
	metrics.CacheBytes.Set(0)
}

// Stats returns current usage figures.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rate float64
	if total := m.hits + m.misses; total > 0 {
		rate = float64(m.hits) / float64(total)
	}
	return Stats{
		Size:        m.evictList.Len(),
		MemoryUsage: m.used,
		HitRate:     rate,
		Hits:        m.hits,
		Misses:      m.misses,
		Evictions:   m.evictions,
	}
}

// PurgeExpired removes every expired entry and returns how many were removed.
func (m *Memory) PurgeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purgeExpiredLocked(m.now())
}

// Destroy stops the cleanup sweep and drops all entries. The cache stays
// empty afterwards: Set is ignored. Calling Destroy again is a no-op.
func (m *Memory) Destroy() {
	m.once.Do(func() {
		close(m.stop)
		<-m.done
		m.mu.Lock()
		defer m.mu.Unlock()
		m.destroyed = true
		m.clearLocked()
	})
}

func (m *Memory) purgeExpiredLocked(now time.Time) int {
	removed := 0
	for elem := m.evictList.Back(); elem != nil; {
		prev := elem.Prev()
		if !elem.Value.(*memoryEntry).live(now) {
			m.removeElement(elem)
			removed++
		}
		elem = prev
	}
	if removed > 0 {
		metrics.CacheEvictions.WithLabelValues("expired").Add(float64(removed))
	}
	return removed
}

func (m *Memory) removeOldest() {
	if elem := m.evictList.Back(); elem != nil {
		m.removeElement(elem)
		m.evictions++
		metrics.CacheEvictions.WithLabelValues("size").Inc()
	}
}

func (m *Memory) removeElement(elem *list.Element) {
	m.evictList.Remove(elem)
	entry := elem.Value.(*memoryEntry)
	delete(m.items, entry.key)
	m.used -= entry.size
	metrics.CacheBytes.Set(float64(m.used))
}

func (m *Memory) recordMiss() {
	m.misses++
	metrics.CacheLookups.WithLabelValues("miss").Inc()
}

// estimateSize approximates the memory cost of an entry by its JSON length.
func estimateSize(key string, value any) int64 {
	b, err := json.Marshal(value)
	if err != nil {
		return int64(len(key)) + fallbackEntrySize
	}
	return int64(len(key) + len(b))
}

package cache

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader performs cache-aside lookups against a Cache.
//
// Without single-flight, two concurrent misses on the same key both run
// their fetcher and the last write wins. With single-flight enabled,
// concurrent misses share the first caller's fetch (and its context).
type Loader struct {
	cache  Cache
	logger *slog.Logger
	group  *singleflight.Group
}

// NewLoader returns a Loader over c. A nil logger discards debug output.
func NewLoader(c Cache, logger *slog.Logger, singleFlight bool) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Loader{cache: c, logger: logger}
	if singleFlight {
		l.group = &singleflight.Group{}
	}
	return l
}

// Cache returns the underlying cache.
func (l *Loader) Cache() Cache { return l.cache }

// Fetch returns the cached value for key or, on a miss, calls fetch once,
// stores its result with ttl (the cache default when ttl <= 0) and returns
// it. fetch is never called on a hit. A fetch error is returned unchanged
// and nothing is stored. A cached value of a different type counts as a
// miss and is overwritten.
func Fetch[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, label string, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			if label != "" {
				l.logger.DebugContext(ctx, "cache hit", "operation", label, "key", key)
			}
			return typed, nil
		}
	}

	fill := func() (T, error) {
		v, err := fetch(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		l.cache.Set(key, v, ttl)
		return v, nil
	}

	if l.group == nil {
		return fill()
	}
	v, err, _ := l.group.Do(key, func() (any, error) { return fill() })
	if err != nil {
		var zero T
		return zero, err
	}
	typed, _ := v.(T)
	return typed, nil
}

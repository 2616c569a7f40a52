package hubmcp

import (
	"context"
	"errors"

	"github.com/ferro-labs/dockerhub-mcp/github"
	"github.com/ferro-labs/dockerhub-mcp/hub"
	"github.com/ferro-labs/dockerhub-mcp/internal/circuitbreaker"
	"github.com/ferro-labs/dockerhub-mcp/internal/metrics"
	"github.com/ferro-labs/dockerhub-mcp/internal/ratelimit"
	"github.com/ferro-labs/dockerhub-mcp/internal/retry"
)

// guard runs an outbound call through the rate limiter, circuit breaker
// and retry engine of one upstream.
type guard struct {
	upstream string
	limiter  *ratelimit.Limiter
	breaker  *circuitbreaker.CircuitBreaker
	retry    retry.Options
}

func guarded[T any](ctx context.Context, g *guard, op string, call func(context.Context) (T, error)) (T, error) {
	opts := g.retry
	opts.Label = op
	return retry.Do(ctx, opts, func(ctx context.Context) (T, error) {
		var zero T
		if g.limiter != nil {
			waited, err := g.limiter.Wait(ctx)
			metrics.RateLimitWaits.WithLabelValues(g.upstream).Observe(waited.Seconds())
			if err != nil {
				return zero, err
			}
		}
		if !g.breaker.Allow() {
			metrics.UpstreamRequests.WithLabelValues(op, "circuit_open").Inc()
			return zero, hub.NewNetworkError(g.upstream, circuitbreaker.ErrCircuitOpen)
		}

		v, err := call(ctx)
		if err != nil {
			kind := hub.KindOf(err)
			// Client-side outcomes say nothing about upstream health.
			if countsAsFailure(kind) && !errors.Is(err, context.Canceled) {
				g.breaker.RecordFailure()
			} else {
				g.breaker.RecordSuccess()
			}
			metrics.UpstreamRequests.WithLabelValues(op, kind.String()).Inc()
			return zero, err
		}
		g.breaker.RecordSuccess()
		metrics.UpstreamRequests.WithLabelValues(op, "ok").Inc()
		return v, nil
	})
}

func countsAsFailure(k hub.Kind) bool {
	switch k {
	case hub.KindServer, hub.KindNetwork, hub.KindRateLimited, hub.KindUnknown:
		return true
	default:
		return false
	}
}

// guardedRegistry wraps a Registry with a guard.
type guardedRegistry struct {
	next  Registry
	guard *guard
}

func (r *guardedRegistry) GetRepository(ctx context.Context, namespace, name string) (*hub.Repository, error) {
	return guarded(ctx, r.guard, "get_repository", func(ctx context.Context) (*hub.Repository, error) {
		return r.next.GetRepository(ctx, namespace, name)
	})
}

func (r *guardedRegistry) GetTags(ctx context.Context, namespace, name string, page, pageSize int) (*hub.TagList, error) {
	return guarded(ctx, r.guard, "get_tags", func(ctx context.Context) (*hub.TagList, error) {
		return r.next.GetTags(ctx, namespace, name, page, pageSize)
	})
}

func (r *guardedRegistry) GetTagDetails(ctx context.Context, namespace, name, tag string) (*hub.Tag, error) {
	return guarded(ctx, r.guard, "get_tag_details", func(ctx context.Context) (*hub.Tag, error) {
		return r.next.GetTagDetails(ctx, namespace, name, tag)
	})
}

func (r *guardedRegistry) SearchRepositories(ctx context.Context, q hub.SearchQuery) (*hub.SearchResults, error) {
	return guarded(ctx, r.guard, "search_repositories", func(ctx context.Context) (*hub.SearchResults, error) {
		return r.next.SearchRepositories(ctx, q)
	})
}

// guardedReadmes wraps a ReadmeSource with a guard.
type guardedReadmes struct {
	next  ReadmeSource
	guard *guard
}

func (r *guardedReadmes) FetchReadme(ctx context.Context, repo github.Repo) (string, error) {
	return guarded(ctx, r.guard, "fetch_readme", func(ctx context.Context) (string, error) {
		return r.next.FetchReadme(ctx, repo)
	})
}

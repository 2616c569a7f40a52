// Package hubmcp answers questions about Docker Hub images for AI agents.
//
// The Service type is the main entry point: create one with New and call
// GetReadme, GetInfo or Search. Every upstream call goes through a
// cache-aside lookup (internal/cache) and, on a miss, through an outbound
// guard that paces requests, trips a circuit breaker on repeated failures
// and retries transient errors with exponential backoff (internal/retry).
//
// The MCP tool layer in internal/mcpserver exposes these operations as the
// get_readme, get_info and search tools. Configuration is loaded from a YAML
// or JSON file with [LoadConfig].
package hubmcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ferro-labs/dockerhub-mcp/github"
	"github.com/ferro-labs/dockerhub-mcp/hub"
	"github.com/ferro-labs/dockerhub-mcp/internal/cache"
	"github.com/ferro-labs/dockerhub-mcp/internal/circuitbreaker"
	"github.com/ferro-labs/dockerhub-mcp/internal/ratelimit"
	"github.com/ferro-labs/dockerhub-mcp/internal/retry"
	"github.com/ferro-labs/dockerhub-mcp/internal/version"
)

// Registry is the Docker Hub surface the service consumes. *hub.Client
// implements it.
type Registry interface {
	GetRepository(ctx context.Context, namespace, name string) (*hub.Repository, error)
	GetTags(ctx context.Context, namespace, name string, page, pageSize int) (*hub.TagList, error)
	GetTagDetails(ctx context.Context, namespace, name, tag string) (*hub.Tag, error)
	SearchRepositories(ctx context.Context, q hub.SearchQuery) (*hub.SearchResults, error)
}

// ReadmeSource fetches a README from a source-control host. An empty string
// with a nil error means the repository has no README. *github.Client
// implements it.
type ReadmeSource interface {
	FetchReadme(ctx context.Context, repo github.Repo) (string, error)
}

// Upstream names used for breakers, metrics and logs.
const (
	UpstreamDockerHub = "dockerhub"
	UpstreamGitHub    = "github"
)

// Options carries optional collaborators for New. Zero values are built
// from the Config.
type Options struct {
	Registry Registry
	Readmes  ReadmeSource
	Cache    cache.Cache
	Logger   *slog.Logger
	// Now overrides the clock used for cache keys and the default cache.
	Now func() time.Time
	// Sleep overrides the wait between retries.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Service implements the three Docker Hub tools.
type Service struct {
	cfg      Config
	registry Registry
	readmes  ReadmeSource
	loader   *cache.Loader
	guards   []*guard
	logger   *slog.Logger
	now      func() time.Time

	ownedCache *cache.Memory
	closeOnce  sync.Once
}

// New creates a Service from cfg. Collaborators missing from opts are
// constructed: a Docker Hub client, a GitHub README client when
// cfg.GitHub.Enabled, and an in-memory cache. Registry and README calls are
// wrapped with the outbound guard either way.
func New(cfg Config, opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Service{cfg: cfg, logger: logger, now: now}

	registry := opts.Registry
	if registry == nil {
		c, err := hub.NewClient(hub.ClientOptions{
			BaseURL:   cfg.DockerHub.BaseURL,
			Token:     cfg.DockerHub.Token,
			Timeout:   cfg.DockerHub.RequestTimeout.Std(),
			UserAgent: version.UserAgent(),
		})
		if err != nil {
			return nil, fmt.Errorf("docker hub client: %w", err)
		}
		registry = c
	}

	readmes := opts.Readmes
	if readmes == nil && cfg.GitHub.Enabled {
		c, err := github.NewClient(github.Options{
			BaseURL:   cfg.GitHub.BaseURL,
			Token:     cfg.GitHub.Token,
			Timeout:   cfg.DockerHub.RequestTimeout.Std(),
			UserAgent: version.UserAgent(),
		})
		if err != nil {
			return nil, fmt.Errorf("github client: %w", err)
		}
		readmes = c
	}

	c := opts.Cache
	if c == nil {
		s.ownedCache = cache.NewMemory(cache.Options{
			DefaultTTL:      cfg.Cache.DefaultTTL.Std(),
			MaxSize:         cfg.Cache.MaxSize,
			CleanupInterval: cfg.Cache.CleanupInterval.Std(),
			Now:             now,
		})
		c = s.ownedCache
	}
	s.loader = cache.NewLoader(c, logger, cfg.Cache.SingleFlight)

	retryOpts := retry.Options{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay.Std(),
		Logger:     logger,
		Sleep:      opts.Sleep,
	}
	hubGuard := newGuard(UpstreamDockerHub, cfg.Upstream, retryOpts)
	s.registry = &guardedRegistry{next: registry, guard: hubGuard}
	s.guards = append(s.guards, hubGuard)
	if readmes != nil {
		ghGuard := newGuard(UpstreamGitHub, cfg.Upstream, retryOpts)
		s.readmes = &guardedReadmes{next: readmes, guard: ghGuard}
		s.guards = append(s.guards, ghGuard)
	}
	return s, nil
}

// newGuard builds the limiter and breaker for one upstream.
func newGuard(upstream string, cfg UpstreamConfig, retryOpts retry.Options) *guard {
	g := &guard{
		upstream: upstream,
		breaker: circuitbreaker.New(upstream, circuitbreaker.Config{
			FailureThreshold: cfg.FailureThreshold,
			Timeout:          cfg.BreakerTimeout.Std(),
		}),
		retry: retryOpts,
	}
	if cfg.RequestsPerSecond > 0 {
		g.limiter = ratelimit.New(cfg.RequestsPerSecond, cfg.Burst)
	}
	return g
}

// Config returns the configuration the service was built with.
func (s *Service) Config() Config { return s.cfg }

// CacheStats reports usage of the response cache.
func (s *Service) CacheStats() cache.Stats { return s.loader.Cache().Stats() }

// ClearCache drops every cached response.
func (s *Service) ClearCache() { s.loader.Cache().Clear() }

// UpstreamStatus reports the circuit breaker state of one upstream.
type UpstreamStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// Upstreams returns the breaker state of each configured upstream.
func (s *Service) Upstreams() []UpstreamStatus {
	out := make([]UpstreamStatus, 0, len(s.guards))
	for _, g := range s.guards {
		out = append(out, UpstreamStatus{Name: g.upstream, State: g.breaker.State().String()})
	}
	return out
}

// Close releases the cache sweep if the service created the cache. It is
// safe to call more than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		if s.ownedCache != nil {
			s.ownedCache.Destroy()
		}
	})
	return nil
}

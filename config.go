package hubmcp

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the Docker Hub MCP server.
type Config struct {
	// DockerHub configures the primary registry API.
	DockerHub DockerHubConfig `json:"dockerhub" yaml:"dockerhub"`
	// GitHub configures the fallback README source.
	GitHub GitHubConfig `json:"github" yaml:"github"`
	Cache  CacheConfig  `json:"cache" yaml:"cache"`
	Retry  RetryConfig  `json:"retry" yaml:"retry"`
	// Upstream guards outbound calls with a rate limiter and circuit breaker.
	Upstream UpstreamConfig `json:"upstream" yaml:"upstream"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Server   ServerConfig   `json:"server" yaml:"server"`
}

// DockerHubConfig configures the Docker Hub client.
type DockerHubConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	// Token is a Docker Hub personal access token sent as a bearer token.
	Token          string   `json:"token,omitempty" yaml:"token,omitempty"`
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`
}

// GitHubConfig configures README fallback lookups on GitHub.
type GitHubConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	BaseURL string `json:"base_url" yaml:"base_url"`
	Token   string `json:"token,omitempty" yaml:"token,omitempty"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	// DefaultTTL applies when a caller does not pass a TTL.
	DefaultTTL Duration `json:"default_ttl" yaml:"default_ttl"`
	// InfoTTL applies to repository, tag and README responses.
	InfoTTL Duration `json:"info_ttl" yaml:"info_ttl"`
	// SearchTTL applies to search responses.
	SearchTTL Duration `json:"search_ttl" yaml:"search_ttl"`
	// MaxSize bounds the estimated payload size in bytes.
	MaxSize         int64    `json:"max_size" yaml:"max_size"`
	CleanupInterval Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
	// SingleFlight collapses concurrent misses for the same key into one fetch.
	SingleFlight bool `json:"single_flight" yaml:"single_flight"`
}

// RetryConfig configures the retry engine.
type RetryConfig struct {
	MaxRetries int      `json:"max_retries" yaml:"max_retries"`
	BaseDelay  Duration `json:"base_delay" yaml:"base_delay"`
}

// UpstreamConfig configures outbound pacing and failure isolation.
type UpstreamConfig struct {
	// RequestsPerSecond paces outbound calls; 0 disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             float64 `json:"burst" yaml:"burst"`
	// FailureThreshold opens the breaker after that many consecutive failures.
	FailureThreshold int      `json:"failure_threshold" yaml:"failure_threshold"`
	BreakerTimeout   Duration `json:"breaker_timeout" yaml:"breaker_timeout"`
}

// JournalConfig configures the tool-call journal.
type JournalConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Driver is "sqlite" (default) or "postgres".
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// Transport names accepted by ServerConfig.Transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ServerConfig configures the MCP transport.
type ServerConfig struct {
	Transport string `json:"transport" yaml:"transport"`
	Addr      string `json:"addr" yaml:"addr"`
	// ClientRequestsPerSecond limits each HTTP client; 0 disables the limit.
	ClientRequestsPerSecond float64 `json:"client_requests_per_second" yaml:"client_requests_per_second"`
	// AdminToken enables the /admin API for bearers of this token.
	AdminToken string `json:"admin_token,omitempty" yaml:"admin_token,omitempty"`
}

// Default configuration values.
const (
	DefaultInfoTTL         = 5 * time.Minute
	DefaultSearchTTL       = 10 * time.Minute
	DefaultCacheTTL        = time.Hour
	DefaultCacheMaxSize    = 100 << 20
	DefaultCleanupInterval = 5 * time.Minute
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryBaseDelay  = time.Second
	DefaultAddr            = ":8080"
)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		DockerHub: DockerHubConfig{
			BaseURL:        "https://hub.docker.com",
			RequestTimeout: Duration(DefaultRequestTimeout),
		},
		GitHub: GitHubConfig{
			Enabled: true,
			BaseURL: "https://api.github.com",
		},
		Cache: CacheConfig{
			DefaultTTL:      Duration(DefaultCacheTTL),
			InfoTTL:         Duration(DefaultInfoTTL),
			SearchTTL:       Duration(DefaultSearchTTL),
			MaxSize:         DefaultCacheMaxSize,
			CleanupInterval: Duration(DefaultCleanupInterval),
		},
		Retry: RetryConfig{
			MaxRetries: DefaultMaxRetries,
			BaseDelay:  Duration(DefaultRetryBaseDelay),
		},
		Upstream: UpstreamConfig{
			RequestsPerSecond: 10,
			Burst:             20,
			FailureThreshold:  5,
			BreakerTimeout:    Duration(30 * time.Second),
		},
		Journal: JournalConfig{
			Driver: "sqlite",
		},
		Server: ServerConfig{
			Transport: TransportStdio,
			Addr:      DefaultAddr,
		},
	}
}

// Duration is a time.Duration written as a Go duration string ("5m", "1s")
// in config files.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"5m\": %w", err)
	}
	return d.parse(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"5m\": %w", err)
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

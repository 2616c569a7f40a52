package hubmcp

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var configSchemaJSON []byte

var (
	configSchemaOnce sync.Once
	configSchema     *jsonschema.Schema
	configSchemaErr  error
)

func compiledConfigSchema() (*jsonschema.Schema, error) {
	configSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("config.schema.json", bytes.NewReader(configSchemaJSON)); err != nil {
			configSchemaErr = fmt.Errorf("loading config schema: %w", err)
			return
		}
		configSchema, configSchemaErr = c.Compile("config.schema.json")
	})
	return configSchema, configSchemaErr
}

// LoadConfig reads a config file, checks it against the embedded JSON
// Schema and overlays it on DefaultConfig. Fields absent from the file keep
// their defaults. Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data, filepath.Ext(path))
}

// ParseConfig is LoadConfig for in-memory documents. ext selects the format.
func ParseConfig(data []byte, ext string) (*Config, error) {
	var doc any
	switch ext = strings.ToLower(ext); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML config: %w", err)
	}
	return &cfg, nil
}

// validateDocument checks a decoded YAML or JSON document against the
// config schema. The document is round-tripped through JSON so YAML
// scalars take the types the validator expects.
func validateDocument(doc any) error {
	if doc == nil {
		return nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var normalized any
	if err := dec.Decode(&normalized); err != nil {
		return fmt.Errorf("normalizing config: %w", err)
	}

	schema, err := compiledConfigSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(normalized); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("config does not match schema: %s", describeValidation(ve))
		}
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}

// describeValidation flattens the leaf causes of a schema error into one line.
func describeValidation(ve *jsonschema.ValidationError) string {
	var parts []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			parts = append(parts, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(parts, "; ")
}

// ValidateConfig checks a Config for values the server cannot run with.
func ValidateConfig(cfg Config) error {
	if err := checkBaseURL("dockerhub.base_url", cfg.DockerHub.BaseURL); err != nil {
		return err
	}
	if cfg.GitHub.Enabled {
		if err := checkBaseURL("github.base_url", cfg.GitHub.BaseURL); err != nil {
			return err
		}
	}

	if cfg.DockerHub.RequestTimeout.Std() <= 0 {
		return fmt.Errorf("dockerhub.request_timeout must be positive")
	}
	if cfg.Cache.DefaultTTL.Std() <= 0 || cfg.Cache.InfoTTL.Std() <= 0 || cfg.Cache.SearchTTL.Std() <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if cfg.Cache.MaxSize == 0 {
		return fmt.Errorf("cache.max_size must be non-zero (negative disables the bound)")
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0")
	}
	if cfg.Retry.BaseDelay.Std() < 0 {
		return fmt.Errorf("retry.base_delay must be >= 0")
	}
	if cfg.Upstream.RequestsPerSecond < 0 || cfg.Upstream.Burst < 0 {
		return fmt.Errorf("upstream rate limit values must be >= 0")
	}

	switch cfg.Journal.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown journal driver: %q", cfg.Journal.Driver)
	}
	if cfg.Journal.Enabled && cfg.Journal.Driver == "postgres" && cfg.Journal.DSN == "" {
		return fmt.Errorf("journal.dsn is required for the postgres driver")
	}

	switch cfg.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unknown server transport: %q", cfg.Server.Transport)
	}
	if cfg.Server.Transport == TransportHTTP && cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required for the http transport")
	}
	return nil
}

func checkBaseURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, raw)
	}
	return nil
}

// ApplyEnv overrides cfg from environment variables. Unset variables leave
// the current value alone; malformed values are reported.
func ApplyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("DOCKERHUB_TOKEN"); ok {
		cfg.DockerHub.Token = v
	}
	if v, ok := os.LookupEnv("DOCKERHUB_BASE_URL"); ok && v != "" {
		cfg.DockerHub.BaseURL = v
	}
	if v, ok := os.LookupEnv("GITHUB_TOKEN"); ok {
		cfg.GitHub.Token = v
	}
	if v, ok := os.LookupEnv("HUBMCP_CACHE_MAX_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("HUBMCP_CACHE_MAX_SIZE: %w", err)
		}
		cfg.Cache.MaxSize = n
	}
	if err := envDuration("HUBMCP_REQUEST_TIMEOUT", &cfg.DockerHub.RequestTimeout); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("HUBMCP_MAX_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HUBMCP_MAX_RETRIES: %w", err)
		}
		cfg.Retry.MaxRetries = n
	}
	if err := envDuration("HUBMCP_RETRY_BASE_DELAY", &cfg.Retry.BaseDelay); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("HUBMCP_JOURNAL_DRIVER"); ok && v != "" {
		cfg.Journal.Driver = strings.ToLower(v)
		cfg.Journal.Enabled = true
	}
	if v, ok := os.LookupEnv("HUBMCP_JOURNAL_DSN"); ok && v != "" {
		cfg.Journal.DSN = v
		cfg.Journal.Enabled = true
	}
	if v, ok := os.LookupEnv("HUBMCP_ADMIN_TOKEN"); ok {
		cfg.Server.AdminToken = v
	}
	return nil
}

func envDuration(key string, dst *Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = Duration(d)
	return nil
}

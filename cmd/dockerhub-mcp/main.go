// Package main provides the dockerhub-mcp command: an MCP server exposing
// Docker Hub image lookups as tools, plus helpers to validate config files
// and inspect the tool-call journal.
package main

import (
	"os"
	"path/filepath"

	hubmcp "github.com/ferro-labs/dockerhub-mcp"
	"github.com/ferro-labs/dockerhub-mcp/internal/logging"
	"github.com/ferro-labs/dockerhub-mcp/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   version.Name,
		Short: "Docker Hub MCP server",
		Long: `dockerhub-mcp serves Docker Hub image lookups to MCP clients.

Tools: get_readme (README with usage examples), get_info (package-style
metadata) and search (scored image search). Responses are cached in
memory; upstream calls are retried and guarded by a circuit breaker.`,
		Version:      version.String(),
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logging.Setup(flags.logLevel, flags.logFormat)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", os.Getenv("HUBMCP_CONFIG"), "config file (JSON or YAML); env HUBMCP_CONFIG")
	pf.StringVar(&flags.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", envOr("LOG_FORMAT", "json"), "log format: json or text")

	root.AddCommand(
		newServeCmd(flags),
		newValidateCmd(),
		newHistoryCmd(flags),
		newVersionCmd(),
	)
	return root
}

// loadConfig builds the effective configuration: defaults, then the file
// at path if any, then environment overrides. The result is validated.
func loadConfig(path string) (*hubmcp.Config, error) {
	cfg := hubmcp.DefaultConfig()
	if path != "" {
		loaded, err := hubmcp.LoadConfig(filepath.Clean(path))
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if err := hubmcp.ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := hubmcp.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file (JSON/YAML)",
		Long: `Validate a configuration file against the config schema and the
server's own checks. Environment overrides are applied first, so the
printed summary is what "serve" would run with.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args[0])
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			github := "disabled"
			if cfg.GitHub.Enabled {
				github = cfg.GitHub.BaseURL
			}
			journal := "disabled"
			if cfg.Journal.Enabled {
				journal = cfg.Journal.Driver
			}
			_, _ = fmt.Fprintln(out, "✓ Config is valid")
			_, _ = fmt.Fprintf(out, "  Docker Hub: %s\n", cfg.DockerHub.BaseURL)
			_, _ = fmt.Fprintf(out, "  GitHub:     %s\n", github)
			_, _ = fmt.Fprintf(out, "  Cache:      ttl=%s info=%s search=%s max_size=%d\n",
				cfg.Cache.DefaultTTL, cfg.Cache.InfoTTL, cfg.Cache.SearchTTL, cfg.Cache.MaxSize)
			_, _ = fmt.Fprintf(out, "  Retry:      max_retries=%d base_delay=%s\n", cfg.Retry.MaxRetries, cfg.Retry.BaseDelay)
			_, _ = fmt.Fprintf(out, "  Journal:    %s\n", journal)
			_, _ = fmt.Fprintf(out, "  Transport:  %s\n", cfg.Server.Transport)
			return nil
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	hubmcp "github.com/ferro-labs/dockerhub-mcp"
	"github.com/ferro-labs/dockerhub-mcp/internal/journal"
	"github.com/ferro-labs/dockerhub-mcp/internal/logging"
	"github.com/ferro-labs/dockerhub-mcp/internal/mcpserver"
	"github.com/ferro-labs/dockerhub-mcp/internal/version"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	var (
		transport string
		addr      string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the MCP server over stdio (default) or streamable HTTP.

With --transport http the server also exposes /health, /metrics,
/cache/stats and, when an admin token is configured, /admin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("transport") {
				cfg.Server.Transport = transport
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if err := hubmcp.ValidateConfig(*cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *cfg, logging.Logger)
		},
	}
	cmd.Flags().StringVarP(&transport, "transport", "t", hubmcp.TransportStdio, "transport: stdio or http")
	cmd.Flags().StringVar(&addr, "addr", hubmcp.DefaultAddr, "listen address for the http transport")
	return cmd
}

func serve(ctx context.Context, cfg hubmcp.Config, logger *slog.Logger) error {
	svc, err := hubmcp.New(cfg, hubmcp.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer func() { _ = svc.Close() }()

	var store *journal.SQLStore
	if cfg.Journal.Enabled {
		store, err = journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer func() { _ = store.Close() }()
		logger.Info("journal enabled", "driver", cfg.Journal.Driver)
	}

	opts := mcpserver.Options{Logger: logger}
	if store != nil {
		opts.Journal = store
	}
	srv := mcpserver.New(svc, opts)

	if cfg.Server.Transport == hubmcp.TransportStdio {
		logger.Info("serving MCP over stdio", "version", version.Short())
		if err := srv.RunStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	handlerOpts := mcpserver.HandlerOptions{
		ClientRequestsPerSecond: cfg.Server.ClientRequestsPerSecond,
		AdminToken:              cfg.Server.AdminToken,
	}
	if store != nil {
		handlerOpts.Calls = store
		handlerOpts.CallAdmin = store
	}
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(handlerOpts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err.Error())
		}
	}()

	logger.Info("serving MCP over HTTP",
		"version", version.Short(),
		"addr", cfg.Server.Addr,
		"admin", cfg.Server.AdminToken != "",
	)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

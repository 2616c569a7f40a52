// Package mcpserver exposes the Docker Hub service as MCP tools.
//
// Each tool call is given a trace ID, timed into the Prometheus tool
// metrics and recorded in the tool-call journal. Tool failures are returned
// as MCP tool errors whose text starts with the error kind code
// (for example "not_found: ..."), so agents can branch on it.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	hubmcp "github.com/ferro-labs/dockerhub-mcp"
	"github.com/ferro-labs/dockerhub-mcp/hub"
	"github.com/ferro-labs/dockerhub-mcp/internal/journal"
	"github.com/ferro-labs/dockerhub-mcp/internal/logging"
	"github.com/ferro-labs/dockerhub-mcp/internal/metrics"
	"github.com/ferro-labs/dockerhub-mcp/internal/version"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names.
const (
	ToolGetReadme = "get_readme"
	ToolGetInfo   = "get_info"
	ToolSearch    = "search"
)

// Outcomes recorded in metrics and the journal besides error kind codes.
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
)

// Options configures New.
type Options struct {
	// Journal records every tool call. Nil disables recording.
	Journal journal.Writer
	Logger  *slog.Logger
}

// Server wraps an MCP server with the three Docker Hub tools registered.
type Server struct {
	svc     *hubmcp.Service
	journal journal.Writer
	logger  *slog.Logger
	mcp     *mcp.Server
}

// New creates a Server for svc.
func New(svc *hubmcp.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	jw := opts.Journal
	if jw == nil {
		jw = journal.NoopWriter{}
	}

	s := &Server{
		svc:     svc,
		journal: jw,
		logger:  logger,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    version.Name,
			Title:   "Docker Hub",
			Version: version.Short(),
		}, &mcp.ServerOptions{
			Instructions: "Look up Docker Hub images: README and usage examples (get_readme), " +
				"package-style metadata (get_info) and scored search results (search).",
			Logger: logger,
		}),
	}

	addTool(s, &mcp.Tool{
		Name:        ToolGetReadme,
		Title:       "Get image README",
		Description: "Fetch the README of a Docker Hub image with extracted usage examples and installation commands.",
	}, svc.GetReadme)
	addTool(s, &mcp.Tool{
		Name:        ToolGetInfo,
		Title:       "Get image info",
		Description: "Fetch metadata of a Docker Hub image: latest tag, author, keywords and recent tags.",
	}, svc.GetInfo)
	addTool(s, &mcp.Tool{
		Name:        ToolSearch,
		Title:       "Search images",
		Description: "Search Docker Hub for images, scored by quality and popularity.",
	}, svc.Search)

	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcp.Server { return s.mcp }

// RunStdio serves MCP over stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// addTool registers run as a tool. The output has no declared schema so
// results are passed through as structured content unchanged.
func addTool[In, Out any](s *Server, tool *mcp.Tool, run func(context.Context, In) (Out, error)) {
	mcp.AddTool(s.mcp, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		ctx, traceID := logging.EnsureTraceID(ctx)
		logger := logging.FromContext(ctx, s.logger)
		start := time.Now()

		out, err := run(ctx, in)

		elapsed := time.Since(start)
		outcome := OutcomeSuccess
		switch {
		case err != nil:
			outcome = hub.KindOf(err).String()
		case !found(out):
			outcome = OutcomeNotFound
		}
		metrics.ToolCalls.WithLabelValues(tool.Name, outcome).Inc()
		metrics.ToolDuration.WithLabelValues(tool.Name).Observe(elapsed.Seconds())
		s.record(ctx, traceID, tool.Name, in, outcome, err, elapsed)

		if err != nil {
			logger.WarnContext(ctx, "tool call failed",
				"tool", tool.Name,
				"outcome", outcome,
				"duration_ms", elapsed.Milliseconds(),
				"error", err.Error(),
			)
			return toolError(err), nil, nil
		}
		logger.InfoContext(ctx, "tool call",
			"tool", tool.Name,
			"outcome", outcome,
			"duration_ms", elapsed.Milliseconds(),
		)
		return nil, out, nil
	})
}

// found is false for results that report a missing image.
func found(out any) bool {
	switch r := out.(type) {
	case *hubmcp.ReadmeResult:
		return r.Exists
	case *hubmcp.InfoResult:
		return r.Exists
	}
	return true
}

func (s *Server) record(ctx context.Context, traceID, tool string, args any, outcome string, callErr error, elapsed time.Duration) {
	raw, err := json.Marshal(args)
	if err != nil {
		raw = []byte("{}")
	}
	entry := journal.Entry{
		TraceID:    traceID,
		Tool:       tool,
		Arguments:  string(raw),
		Outcome:    outcome,
		DurationMS: elapsed.Milliseconds(),
	}
	if callErr != nil {
		entry.ErrorMessage = callErr.Error()
	}
	// The call's own context may already be cancelled; the record should
	// still land.
	if err := s.journal.Write(context.WithoutCancel(ctx), entry); err != nil {
		logging.FromContext(ctx, s.logger).ErrorContext(ctx, "journal write failed", "tool", tool, "error", err.Error())
	}
}

// toolError renders err as an MCP tool error. *hub.Error messages already
// start with their kind code; other errors get it prepended.
func toolError(err error) *mcp.CallToolResult {
	msg := err.Error()
	if _, ok := err.(*hub.Error); !ok {
		msg = hub.KindOf(err).String() + ": " + msg
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

package mcpserver

import (
	"encoding/json"
	"net/http"

	"github.com/ferro-labs/dockerhub-mcp/internal/admin"
	"github.com/ferro-labs/dockerhub-mcp/internal/journal"
	"github.com/ferro-labs/dockerhub-mcp/internal/logging"
	"github.com/ferro-labs/dockerhub-mcp/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// clientBurst is the per-client burst when ClientRequestsPerSecond is set.
const clientBurst = 10

// HandlerOptions configures Handler.
type HandlerOptions struct {
	// ClientRequestsPerSecond limits each remote address on /mcp; 0
	// disables the limit.
	ClientRequestsPerSecond float64
	// AdminToken mounts the /admin API when non-empty.
	AdminToken string
	// Calls and CallAdmin back the /admin/calls routes.
	Calls     journal.Reader
	CallAdmin journal.Maintainer
}

// Handler builds the HTTP router: the streamable MCP endpoint on /mcp,
// /health, /metrics, /cache/stats and, when a token is configured, /admin.
func (s *Server) Handler(opts HandlerOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/cache/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.svc.CacheStats())
	})

	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, &mcp.StreamableHTTPOptions{Logger: s.logger})
	r.Group(func(r chi.Router) {
		if opts.ClientRequestsPerSecond > 0 {
			r.Use(ratelimit.Middleware(ratelimit.NewStore(opts.ClientRequestsPerSecond, clientBurst)))
		}
		r.Handle("/mcp", mcpHandler)
	})

	if opts.AdminToken != "" {
		handlers := &admin.Handlers{
			Service:   s.svc,
			Calls:     opts.Calls,
			CallAdmin: opts.CallAdmin,
		}
		r.Route("/admin", func(r chi.Router) {
			r.Use(admin.AuthMiddleware(opts.AdminToken))
			r.Mount("/", handlers.Routes())
		})
	}

	return r
}

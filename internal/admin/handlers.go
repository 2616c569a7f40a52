// Package admin provides the operator HTTP API: cache statistics and
// reset, upstream circuit breaker states, and the tool-call journal.
// All admin routes are protected by bearer-token authentication via
// AuthMiddleware.
package admin

import (
	"net/http"
	"strconv"
	"time"

	hubmcp "github.com/ferro-labs/dockerhub-mcp"
	"github.com/ferro-labs/dockerhub-mcp/internal/cache"
	"github.com/ferro-labs/dockerhub-mcp/internal/journal"
	"github.com/go-chi/chi/v5"
)

// Service is the part of *hubmcp.Service the admin API inspects.
type Service interface {
	CacheStats() cache.Stats
	ClearCache()
	Upstreams() []hubmcp.UpstreamStatus
}

// Handlers holds dependencies for admin HTTP handlers. Calls and CallAdmin
// are nil when the journal is disabled.
type Handlers struct {
	Service   Service
	Calls     journal.Reader
	CallAdmin journal.Maintainer
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Routes returns a chi.Router with all admin endpoints mounted.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/cache", h.cacheStats)
	r.Delete("/cache", h.clearCache)
	r.Get("/upstreams", h.upstreams)
	r.Get("/calls", h.listCalls)
	r.Delete("/calls", h.deleteCalls)
	return r
}

func (h *Handlers) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.CacheStats())
}

func (h *Handlers) clearCache(w http.ResponseWriter, _ *http.Request) {
	before := h.Service.CacheStats().Size
	h.Service.ClearCache()
	writeJSON(w, http.StatusOK, map[string]any{"cleared": before})
}

func (h *Handlers) upstreams(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": h.Service.Upstreams()})
}

func (h *Handlers) listCalls(w http.ResponseWriter, r *http.Request) {
	if h.Calls == nil {
		writeError(w, http.StatusNotImplemented, "tool-call journal is not enabled", "not_implemented_error", "not_implemented")
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit: must be a positive integer", "invalid_request_error", "invalid_request")
			return
		}
		limit = min(parsed, maxListLimit)
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset: must be a non-negative integer", "invalid_request_error", "invalid_request")
			return
		}
		offset = parsed
	}

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since: must be RFC3339 format", "invalid_request_error", "invalid_request")
			return
		}
		since = &parsed
	}

	result, err := h.Calls.List(r.Context(), journal.Query{
		Limit:   limit,
		Offset:  offset,
		Tool:    r.URL.Query().Get("tool"),
		Outcome: r.URL.Query().Get("outcome"),
		Since:   since,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tool calls", "server_error", "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": result.Data,
		"summary": map[string]any{
			"total_entries":    result.Total,
			"returned_entries": len(result.Data),
		},
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
		},
	})
}

func (h *Handlers) deleteCalls(w http.ResponseWriter, r *http.Request) {
	if h.CallAdmin == nil {
		writeError(w, http.StatusNotImplemented, "tool-call journal is not enabled", "not_implemented_error", "not_implemented")
		return
	}

	beforeRaw := r.URL.Query().Get("before")
	if beforeRaw == "" {
		writeError(w, http.StatusBadRequest, "before is required and must be RFC3339 format", "invalid_request_error", "invalid_request")
		return
	}
	before, err := time.Parse(time.RFC3339, beforeRaw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid before: must be RFC3339 format", "invalid_request_error", "invalid_request")
		return
	}

	tool := r.URL.Query().Get("tool")
	deleted, err := h.CallAdmin.Delete(r.Context(), journal.MaintenanceQuery{Before: &before, Tool: tool})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete tool calls", "server_error", "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
		"filters": map[string]any{
			"before": beforeRaw,
			"tool":   tool,
		},
	})
}

package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	hubmcp "github.com/ferro-labs/dockerhub-mcp"
	"github.com/ferro-labs/dockerhub-mcp/internal/cache"
	"github.com/ferro-labs/dockerhub-mcp/internal/journal"
	"github.com/go-chi/chi/v5"
)

const testToken = "admin-token"

type fakeService struct {
	stats   cache.Stats
	cleared int
}

func (f *fakeService) CacheStats() cache.Stats { return f.stats }

func (f *fakeService) ClearCache() {
	f.cleared++
	f.stats = cache.Stats{}
}

func (f *fakeService) Upstreams() []hubmcp.UpstreamStatus {
	return []hubmcp.UpstreamStatus{{Name: "dockerhub", State: "closed"}, {Name: "github", State: "open"}}
}

func setupTestRouter(t *testing.T, withJournal bool) (*Handlers, *fakeService, chi.Router) {
	t.Helper()
	svc := &fakeService{stats: cache.Stats{Size: 3, MemoryUsage: 1024, HitRate: 0.5}}
	h := &Handlers{Service: svc}
	if withJournal {
		store, err := journal.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
		if err != nil {
			t.Fatalf("NewSQLiteStore() error: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		h.Calls = store
		h.CallAdmin = store

		base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
		for i, tool := range []string{"get_readme", "search", "get_info", "search"} {
			err := store.Write(context.Background(), journal.Entry{
				Tool:      tool,
				Outcome:   "success",
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			})
			if err != nil {
				t.Fatalf("Write() error: %v", err)
			}
		}
	}
	r := chi.NewRouter()
	r.Use(AuthMiddleware(testToken))
	r.Mount("/admin", h.Routes())
	return h, svc, r
}

func authedRequest(method, url string) *http.Request {
	req := httptest.NewRequest(method, url, nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestCacheStats(t *testing.T) {
	_, _, r := setupTestRouter(t, false)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, authedRequest(http.MethodGet, "/admin/cache"))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var stats cache.Stats
	decode(t, rr, &stats)
	if stats.Size != 3 || stats.MemoryUsage != 1024 || stats.HitRate != 0.5 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestClearCache(t *testing.T) {
	_, svc, r := setupTestRouter(t, false)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, authedRequest(http.MethodDelete, "/admin/cache"))

	if rr.Code != http.StatusOK || svc.cleared != 1 {
		t.Fatalf("status = %d cleared = %d", rr.Code, svc.cleared)
	}
	var body map[string]int
	decode(t, rr, &body)
	if body["cleared"] != 3 {
		t.Errorf("body = %v", body)
	}
}

func TestUpstreams(t *testing.T) {
	_, _, r := setupTestRouter(t, false)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, authedRequest(http.MethodGet, "/admin/upstreams"))

	var body struct {
		Data []hubmcp.UpstreamStatus `json:"data"`
	}
	decode(t, rr, &body)
	if len(body.Data) != 2 || body.Data[1].State != "open" {
		t.Errorf("upstreams = %+v", body.Data)
	}
}

func TestRoutesRequireToken(t *testing.T) {
	_, svc, r := setupTestRouter(t, false)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/admin/cache", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if svc.cleared != 0 {
		t.Error("cache cleared without a token")
	}
}

func TestCalls_JournalDisabled(t *testing.T) {
	_, _, r := setupTestRouter(t, false)
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, authedRequest(method, "/admin/calls?before=2026-10-01T00:00:00Z"))
		if rr.Code != http.StatusNotImplemented {
			t.Errorf("%s status = %d, want 501", method, rr.Code)
		}
	}
}

func TestListCalls(t *testing.T) {
	_, _, r := setupTestRouter(t, true)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, authedRequest(http.MethodGet, "/admin/calls?tool=search&limit=1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Data    []journal.Entry `json:"data"`
		Summary struct {
			Total    int `json:"total_entries"`
			Returned int `json:"returned_entries"`
		} `json:"summary"`
	}
	decode(t, rr, &body)
	if body.Summary.Total != 2 || body.Summary.Returned != 1 {
		t.Errorf("summary = %+v", body.Summary)
	}
	if len(body.Data) != 1 || body.Data[0].Tool != "search" {
		t.Errorf("data = %+v", body.Data)
	}
	if !body.Data[0].CreatedAt.Equal(time.Date(2026, 10, 1, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("expected newest search first, got %v", body.Data[0].CreatedAt)
	}
}

func TestListCalls_BadParams(t *testing.T) {
	_, _, r := setupTestRouter(t, true)
	for _, q := range []string{"limit=0", "limit=x", "offset=-1", "since=yesterday"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, authedRequest(http.MethodGet, "/admin/calls?"+q))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rr.Code)
		}
	}
}

func TestDeleteCalls(t *testing.T) {
	_, _, r := setupTestRouter(t, true)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, authedRequest(http.MethodDelete, "/admin/calls"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing before: status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, authedRequest(http.MethodDelete, "/admin/calls?before=2026-10-01T14:00:00Z"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Deleted int64 `json:"deleted"`
	}
	decode(t, rr, &body)
	if body.Deleted != 2 {
		t.Errorf("deleted = %d, want 2", body.Deleted)
	}
}

package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	hubmcp "github.com/ferro-labs/dockerhub-mcp"
	"github.com/ferro-labs/dockerhub-mcp/hub"
	"github.com/ferro-labs/dockerhub-mcp/internal/journal"
	"github.com/ferro-labs/dockerhub-mcp/internal/metrics"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	dto "github.com/prometheus/client_model/go"
)

type stubRegistry struct{}

func (stubRegistry) GetRepository(_ context.Context, namespace, name string) (*hub.Repository, error) {
	if namespace != "library" || name != "nginx" {
		return nil, hub.NewNotFoundError("image " + namespace + "/" + name)
	}
	return &hub.Repository{
		Namespace:   "library",
		Name:        "nginx",
		Description: "Official build of Nginx.",
		FullDescription: "# Nginx\n\n## Usage\n\n" +
			"```bash\ndocker run -d -p 8080:80 nginx\n```\n",
	}, nil
}

func (stubRegistry) GetTags(_ context.Context, _, _ string, _, _ int) (*hub.TagList, error) {
	return &hub.TagList{Results: []hub.Tag{{Name: "latest"}}}, nil
}

func (stubRegistry) GetTagDetails(_ context.Context, namespace, name, tag string) (*hub.Tag, error) {
	return nil, hub.NewNotFoundError("tag " + namespace + "/" + name + ":" + tag)
}

func (stubRegistry) SearchRepositories(_ context.Context, q hub.SearchQuery) (*hub.SearchResults, error) {
	return &hub.SearchResults{Results: []hub.SearchResult{
		{RepoName: q.Query, IsOfficial: true, PullCount: 1000},
	}}, nil
}

type memJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (m *memJournal) Write(_ context.Context, e journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memJournal) last(t *testing.T) journal.Entry {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		t.Fatal("no journal entries")
	}
	return m.entries[len(m.entries)-1]
}

func newTestServer(t *testing.T) (*Server, *memJournal) {
	t.Helper()
	cfg := hubmcp.DefaultConfig()
	cfg.GitHub.Enabled = false
	cfg.Upstream.RequestsPerSecond = 0
	svc, err := hubmcp.New(cfg, hubmcp.Options{Registry: stubRegistry{}})
	if err != nil {
		t.Fatalf("hubmcp.New() error: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	j := &memJournal{}
	return New(svc, Options{Journal: j}), j
}

func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	ct, st := mcp.NewInMemoryTransports()
	ss, err := s.MCP().Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s) error: %v", name, err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

func counterValue(t *testing.T, tool, outcome string) float64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.ToolCalls.WithLabelValues(tool, outcome).Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestListTools(t *testing.T) {
	s, _ := newTestServer(t)
	cs := connect(t, s)

	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() error: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
		if tool.InputSchema == nil {
			t.Errorf("%s has no input schema", tool.Name)
		}
	}
	for _, want := range []string{ToolGetReadme, ToolGetInfo, ToolSearch} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}
}

func TestGetReadmeTool(t *testing.T) {
	s, j := newTestServer(t)
	cs := connect(t, s)
	before := counterValue(t, ToolGetReadme, OutcomeSuccess)

	res := callTool(t, cs, ToolGetReadme, map[string]any{"package_name": "nginx"})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var out hubmcp.ReadmeResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !out.Exists || len(out.UsageExamples) != 1 || out.UsageExamples[0].Title != "Run Container" {
		t.Errorf("result = %+v", out)
	}

	entry := j.last(t)
	if entry.Tool != ToolGetReadme || entry.Outcome != OutcomeSuccess || entry.TraceID == "" {
		t.Errorf("journal entry = %+v", entry)
	}
	if !strings.Contains(entry.Arguments, `"package_name":"nginx"`) {
		t.Errorf("arguments = %s", entry.Arguments)
	}
	if got := counterValue(t, ToolGetReadme, OutcomeSuccess) - before; got != 1 {
		t.Errorf("tool call counter delta = %v, want 1", got)
	}
}

func TestGetInfoTool_NotFound(t *testing.T) {
	s, j := newTestServer(t)
	cs := connect(t, s)

	res := callTool(t, cs, ToolGetInfo, map[string]any{"package_name": "acme/ghost"})
	if res.IsError {
		t.Fatalf("not found must not be a tool error: %s", resultText(t, res))
	}
	var out hubmcp.InfoResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if out.Exists {
		t.Error("expected exists=false")
	}
	if entry := j.last(t); entry.Outcome != OutcomeNotFound {
		t.Errorf("outcome = %q, want not_found", entry.Outcome)
	}
}

func TestSearchTool_ValidationError(t *testing.T) {
	s, j := newTestServer(t)
	cs := connect(t, s)

	res := callTool(t, cs, ToolSearch, map[string]any{"query": "nginx", "limit": 500})
	if !res.IsError {
		t.Fatal("expected tool error")
	}
	if text := resultText(t, res); !strings.HasPrefix(text, "validation_error:") {
		t.Errorf("error text = %q", text)
	}
	entry := j.last(t)
	if entry.Outcome != "validation_error" || entry.ErrorMessage == "" {
		t.Errorf("journal entry = %+v", entry)
	}
}

func TestToolError_PrefixesKind(t *testing.T) {
	res := toolError(io.ErrUnexpectedEOF)
	tc := res.Content[0].(*mcp.TextContent)
	if !res.IsError || tc.Text != "unknown: unexpected EOF" {
		t.Errorf("toolError() = %+v %q", res, tc.Text)
	}

	res = toolError(hub.NewNotFoundError("image acme/x"))
	tc = res.Content[0].(*mcp.TextContent)
	if !strings.HasPrefix(tc.Text, "not_found: ") {
		t.Errorf("toolError() text = %q", tc.Text)
	}
}

func TestHandler_Routes(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler(HandlerOptions{})

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/health", http.StatusOK, "OK"},
		{"/cache/stats", http.StatusOK, `"hit_rate"`},
		{"/metrics", http.StatusOK, "go_goroutines"},
		{"/admin/upstreams", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body %q does not contain %q", rr.Body.String(), tt.wantBody)
			}
		})
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestHandler_Admin(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler(HandlerOptions{AdminToken: "s3cret"})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/upstreams", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("without token: status = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/upstreams", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"dockerhub"`) {
		t.Errorf("with token: status = %d body = %s", rr.Code, rr.Body.String())
	}
}

func TestHandler_ClientRateLimit(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler(HandlerOptions{ClientRequestsPerSecond: 0.001})

	var limited bool
	for range clientBurst + 1 {
		req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Error("expected a 429 once the burst is spent")
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("/health must not be rate limited, got %d", rr.Code)
	}
}

func TestHandler_StreamableHTTP(t *testing.T) {
	s, j := newTestServer(t)
	srv := httptest.NewServer(s.Handler(HandlerOptions{}))
	defer srv.Close()

	ctx := context.Background()
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: srv.URL + "/mcp"}, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = cs.Close() }()

	res := callTool(t, cs, ToolSearch, map[string]any{"query": "redis", "limit": 5})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var out hubmcp.SearchResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if out.Total != 1 || out.Packages[0].Name != "redis" {
		t.Errorf("result = %+v", out)
	}
	if entry := j.last(t); entry.Tool != ToolSearch || entry.Outcome != OutcomeSuccess {
		t.Errorf("journal entry = %+v", entry)
	}
}

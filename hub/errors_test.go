package hub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func responseWith(status int, headers map[string]string) *http.Response {
	rec := httptest.NewRecorder()
	for k, v := range headers {
		rec.Header().Set(k, v)
	}
	rec.WriteHeader(status)
	return rec.Result()
}

func TestCheckResponse(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		headers    map[string]string
		wantKind   Kind
		wantNil    bool
		retryAfter time.Duration
	}{
		{"ok", 200, nil, 0, true, 0},
		{"no content", 204, nil, 0, true, 0},
		{"not found", 404, nil, KindNotFound, false, 0},
		{"rate limited with hint", 429, map[string]string{"Retry-After": "7"}, KindRateLimited, false, 7 * time.Second},
		{"rate limited without hint", 429, nil, KindRateLimited, false, 0},
		{"rate limited with date hint", 429, map[string]string{"Retry-After": "Wed, 21 Oct 2015 07:28:00 GMT"}, KindRateLimited, false, 0},
		{"internal error", 500, nil, KindServer, false, 0},
		{"bad gateway", 502, nil, KindServer, false, 0},
		{"unavailable", 503, nil, KindServer, false, 0},
		{"gateway timeout", 504, nil, KindServer, false, 0},
		{"unauthorized", 401, nil, KindClient, false, 0},
		{"not implemented", 501, nil, KindClient, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckResponse(responseWith(tt.status, tt.headers), "image library/nginx")
			if tt.wantNil {
				if err != nil {
					t.Fatalf("CheckResponse() = %v, want nil", err)
				}
				return
			}
			var he *Error
			if !errors.As(err, &he) {
				t.Fatalf("CheckResponse() = %T, want *Error", err)
			}
			if he.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", he.Kind, tt.wantKind)
			}
			if he.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", he.StatusCode, tt.status)
			}
			if he.RetryAfter != tt.retryAfter {
				t.Errorf("retry after = %v, want %v", he.RetryAfter, tt.retryAfter)
			}
		})
	}
}

func TestCheckResponse_NotFoundMessageNamesSubject(t *testing.T) {
	err := CheckResponse(responseWith(404, nil), "tag library/nginx:nope")
	want := "not_found: tag library/nginx:nope not found (status 404)"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"wrapped hub error", fmt.Errorf("ctx: %w", NewNotFoundError("x")), KindNotFound},
		{"deadline", context.DeadlineExceeded, KindNetwork},
		{"network", NewNetworkError("x", errors.New("connection refused")), KindNetwork},
		{"validation", NewValidationError("limit", "too big"), KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKind_Retryable(t *testing.T) {
	retryable := map[Kind]bool{
		KindUnknown:     true,
		KindValidation:  false,
		KindNotFound:    false,
		KindRateLimited: true,
		KindServer:      true,
		KindClient:      false,
		KindNetwork:     true,
	}
	for k, want := range retryable {
		if got := k.Retryable(); got != want {
			t.Errorf("%v.Retryable() = %v, want %v", k, got, want)
		}
	}
}

func TestRetryAfterOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Kind: KindRateLimited, RetryAfter: 3 * time.Second})
	d, ok := RetryAfterOf(err)
	if !ok || d != 3*time.Second {
		t.Errorf("RetryAfterOf() = %v, %v; want 3s, true", d, ok)
	}
	if _, ok := RetryAfterOf(&Error{Kind: KindRateLimited}); ok {
		t.Error("expected no hint when RetryAfter is zero")
	}
	if _, ok := RetryAfterOf(&Error{Kind: KindServer, RetryAfter: time.Second}); ok {
		t.Error("expected no hint for non rate-limit errors")
	}
}

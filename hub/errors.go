package hub

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Kind is the closed set of error classes produced at the Docker Hub boundary.
// Retry decisions switch on Kind instead of inspecting messages.
type Kind int

// Kind constants.
const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindRateLimited
	KindServer
	KindClient
	KindNetwork
)

// String returns the machine-readable code for k.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server_error"
	case KindClient:
		return "client_error"
	case KindNetwork:
		return "network_error"
	default:
		return "unknown"
	}
}

// Retryable reports whether errors of kind k are worth another attempt.
// Unknown errors are retried until attempts run out.
func (k Kind) Retryable() bool {
	switch k {
	case KindValidation, KindNotFound, KindClient:
		return false
	default:
		return true
	}
}

// Error is a classified Docker Hub (or GitHub) error.
type Error struct {
	Kind       Kind
	StatusCode int
	// RetryAfter is the server-provided wait hint. Zero when none was sent.
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// NewValidationError reports a bad tool argument.
func NewValidationError(field, reason string) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf("invalid %s: %s", field, reason)}
}

// NewNotFoundError reports a missing image or tag.
func NewNotFoundError(subject string) *Error {
	return &Error{Kind: KindNotFound, StatusCode: http.StatusNotFound, Message: subject + " not found"}
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(subject string, err error) *Error {
	return &Error{Kind: KindNetwork, Message: "request for " + subject + " failed", Err: err}
}

// KindOf classifies err. Errors that are not *Error are inspected for
// transport failures; everything else is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var he *Error
	if errors.As(err, &he) {
		return he.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return KindNetwork
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return KindNetwork
	}
	return KindUnknown
}

// RetryAfterOf returns the server wait hint carried by err, if any.
func RetryAfterOf(err error) (time.Duration, bool) {
	var he *Error
	if errors.As(err, &he) && he.Kind == KindRateLimited && he.RetryAfter > 0 {
		return he.RetryAfter, true
	}
	return 0, false
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// CheckResponse maps a non-2xx response to a classified *Error. subject
// names the image or tag being fetched and is embedded in the message.
// It returns nil for 2xx responses.
func CheckResponse(resp *http.Response, subject string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return NewNotFoundError(subject)
	case http.StatusTooManyRequests:
		e := &Error{
			Kind:       KindRateLimited,
			StatusCode: resp.StatusCode,
			Message:    "rate limit exceeded while fetching " + subject,
		}
		if v := strings.TrimSpace(resp.Header.Get("Retry-After")); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
				e.RetryAfter = time.Duration(secs) * time.Second
				e.Message = fmt.Sprintf("%s, retry after %ds", e.Message, secs)
			}
		}
		return e
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &Error{
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Message:    "upstream error while fetching " + subject,
		}
	default:
		return &Error{
			Kind:       KindClient,
			StatusCode: resp.StatusCode,
			Message:    "unexpected response while fetching " + subject,
		}
	}
}

// Package retry re-runs failing upstream calls with exponential backoff.
//
// Errors are classified once with hub.KindOf. Validation, not-found and
// other client errors fail immediately. Rate-limit errors wait for the
// server's Retry-After hint when one was sent. Network, server and
// unknown errors back off exponentially: the n-th retry waits
// BaseDelay * 2^(n-1). The last error is returned unchanged.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/ferro-labs/dockerhub-mcp/hub"
	"github.com/ferro-labs/dockerhub-mcp/internal/metrics"
)

// Defaults used when Options fields are zero.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// Options configures Do.
type Options struct {
	// MaxRetries is the number of retries after the first attempt. Zero
	// means a single attempt; use Default to get DefaultMaxRetries.
	MaxRetries int
	BaseDelay  time.Duration
	// Label names the operation in logs and metrics.
	Label  string
	Logger *slog.Logger
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default returns Options with the default retry budget.
func Default(label string, logger *slog.Logger) Options {
	return Options{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		Label:      label,
		Logger:     logger,
	}
}

// Backoff returns the wait before the n-th retry (n starting at 1).
func Backoff(base time.Duration, n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return base << (n - 1)
}

// Do calls op until it succeeds, fails with a non-retryable error, or
// MaxRetries retries have been spent. Attempts never overlap. If ctx is
// cancelled while waiting, the context error is returned.
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	maxRetries := max(opts.MaxRetries, 0)
	total := maxRetries + 1

	var (
		zero    T
		lastErr error
		made    int
	)
	for attempt := 1; attempt <= total; attempt++ {
		made = attempt
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		kind := hub.KindOf(err)
		if !kind.Retryable() {
			return zero, err
		}
		if ctx.Err() != nil || attempt == total {
			break
		}

		delay := Backoff(opts.BaseDelay, attempt)
		if hint, ok := hub.RetryAfterOf(err); ok {
			delay = hint
		}
		metrics.Retries.WithLabelValues(opts.Label, kind.String()).Inc()
		logger.WarnContext(ctx, "operation failed, retrying",
			"operation", opts.Label,
			"attempt", attempt+1,
			"of", total,
			"delay_ms", delay.Milliseconds(),
			"error_kind", kind.String(),
			"error", err.Error(),
		)
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	logger.ErrorContext(ctx, "operation failed after retries",
		"operation", opts.Label,
		"attempts", made,
		"of", total,
		"error_kind", hub.KindOf(lastErr).String(),
		"error", lastErr.Error(),
	)
	return zero, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package circuitbreaker

import (
	"testing"
	"time"

	"github.com/ferro-labs/dockerhub-mcp/internal/metrics"
	dto "github.com/prometheus/client_model/go"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(name string, failures int, timeout time.Duration) (*CircuitBreaker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(name, Config{FailureThreshold: failures, SuccessThreshold: 1, Timeout: timeout, Now: clk.now}), clk
}

func gaugeValue(t *testing.T, upstream string) float64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.CircuitBreakerState.WithLabelValues(upstream).Write(&m); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestInitialStateClosed(t *testing.T) {
	cb, _ := newTestBreaker("initial", 3, 10*time.Second)
	if cb.State() != StateClosed {
		t.Fatalf("expected closed, got %s", cb.State())
	}
	if !cb.Allow() {
		t.Fatal("expected Allow=true when closed")
	}
	if cb.Upstream() != "initial" {
		t.Errorf("upstream = %q", cb.Upstream())
	}
}

func TestOpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker("opens", 3, 10*time.Second)
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open after 3 failures, got %s", cb.State())
	}
	if cb.Allow() {
		t.Fatal("expected Allow=false when open")
	}
	if got := gaugeValue(t, "opens"); got != float64(StateOpen) {
		t.Errorf("state gauge = %v, want %v", got, float64(StateOpen))
	}
}

func TestTransitionsToHalfOpenAfterTimeout(t *testing.T) {
	cb, clk := newTestBreaker("halfopen", 1, time.Second)
	cb.RecordFailure()
	clk.advance(500 * time.Millisecond)
	if cb.Allow() {
		t.Fatal("expected Allow=false before timeout")
	}
	clk.advance(time.Second)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half_open after timeout, got %s", cb.State())
	}
	if !cb.Allow() {
		t.Fatal("expected Allow=true when half_open")
	}
}

func TestClosesAfterSuccessInHalfOpen(t *testing.T) {
	cb, clk := newTestBreaker("closes", 1, time.Second)
	cb.RecordFailure()
	clk.advance(2 * time.Second)
	_ = cb.State() // trigger half-open transition
	cb.RecordSuccess()
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after success in half_open, got %s", cb.State())
	}
	if got := gaugeValue(t, "closes"); got != float64(StateClosed) {
		t.Errorf("state gauge = %v, want 0", got)
	}
}

func TestReopensOnFailureInHalfOpen(t *testing.T) {
	cb, clk := newTestBreaker("reopens", 1, time.Second)
	cb.RecordFailure()
	clk.advance(2 * time.Second)
	_ = cb.State() // trigger half-open transition
	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("expected open after failure in half_open, got %s", cb.State())
	}
}

func TestSuccessResetFailureCount(t *testing.T) {
	cb, _ := newTestBreaker("reset", 3, 10*time.Second)
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != StateClosed {
		t.Fatalf("expected still closed (failure count reset), got %s", cb.State())
	}
}

func TestDefaultsApplied(t *testing.T) {
	cb := New("defaults", Config{})
	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed below default threshold, got %s", cb.State())
	}
	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("expected open at default threshold, got %s", cb.State())
	}
}

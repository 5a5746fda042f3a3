package uploader

import (
	"testing"
	"time"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := NewCircuitBreaker(3, time.Minute)
	if b.State() != StateClosed {
		t.Fatalf("State() = %v, want %v", b.State(), StateClosed)
	}
	for i := 0; i < 10; i++ {
		if !b.Allow() {
			t.Fatalf("Allow() = false in closed state")
		}
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewCircuitBreaker(3, time.Minute)

	b.Record(false)
	b.Record(false)
	if b.State() != StateClosed {
		t.Fatalf("opened below threshold: State() = %v", b.State())
	}

	b.Record(false)
	if b.State() != StateOpen {
		t.Fatalf("State() = %v after %d failures, want %v", b.State(), 3, StateOpen)
	}
	if b.Allow() {
		t.Fatal("Allow() = true while open and within cooldown")
	}
	if !b.Tripped() {
		t.Fatal("Tripped() = false after opening")
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewCircuitBreaker(3, time.Minute)

	b.Record(false)
	b.Record(false)
	b.Record(true)
	b.Record(false)
	b.Record(false)

	if b.State() != StateClosed {
		t.Fatalf("State() = %v, want %v (success must reset the streak)", b.State(), StateClosed)
	}
}

func TestBreakerHalfOpenAdmitsSingleProbe(t *testing.T) {
	b := NewCircuitBreaker(1, 10*time.Millisecond)
	b.Record(false)
	if b.State() != StateOpen {
		t.Fatalf("State() = %v, want %v", b.State(), StateOpen)
	}

	time.Sleep(20 * time.Millisecond)

	if !b.Allow() {
		t.Fatal("Allow() = false after cooldown elapsed")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("State() = %v, want %v", b.State(), StateHalfOpen)
	}
	if b.Allow() {
		t.Fatal("second Allow() = true while the probe is still in flight")
	}
}

func TestBreakerProbeSuccessCloses(t *testing.T) {
	b := NewCircuitBreaker(1, 10*time.Millisecond)
	b.Record(false)
	time.Sleep(20 * time.Millisecond)

	if !b.Allow() {
		t.Fatal("probe not admitted")
	}
	b.Record(true)

	if b.State() != StateClosed {
		t.Fatalf("State() = %v after successful probe, want %v", b.State(), StateClosed)
	}
	if !b.Allow() {
		t.Fatal("Allow() = false after recovery")
	}
	if !b.Tripped() {
		t.Fatal("Tripped() must stay latched after recovery")
	}
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	b := NewCircuitBreaker(1, 10*time.Millisecond)
	b.Record(false)
	time.Sleep(20 * time.Millisecond)

	if !b.Allow() {
		t.Fatal("probe not admitted")
	}
	b.Record(false)

	if b.State() != StateOpen {
		t.Fatalf("State() = %v after failed probe, want %v", b.State(), StateOpen)
	}
	if b.Allow() {
		t.Fatal("Allow() = true immediately after a failed probe")
	}
}

func TestBreakerIgnoresStragglersWhileOpen(t *testing.T) {
	b := NewCircuitBreaker(1, time.Minute)
	b.Record(false)

	// A success from an attempt admitted before the breaker opened must not
	// close it.
	b.Record(true)
	if b.State() != StateOpen {
		t.Fatalf("State() = %v, want %v", b.State(), StateOpen)
	}
}

func TestCircuitStateString(t *testing.T) {
	tests := []struct {
		state CircuitState
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{CircuitState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

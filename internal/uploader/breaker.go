package uploader

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CircuitState is the breaker's position.
type CircuitState int

const (
	// StateClosed: attempts pass through; failures are counted.
	StateClosed CircuitState = iota
	// StateOpen: attempts fail fast until the cooldown elapses.
	StateOpen
	// StateHalfOpen: exactly one probe attempt is in flight.
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker halts new store attempts after sustained failure. One
// instance is shared by all tasks in a batch; every transition happens under
// a single mutex so no two tasks can both claim the half-open probe slot.
type CircuitBreaker struct {
	mu sync.Mutex

	state     CircuitState
	threshold int
	cooldown  time.Duration

	consecutiveFailures int
	openedAt            time.Time
	probeInFlight       bool
	// tripped latches once the breaker has ever opened, for BatchResult.
	tripped bool
}

// NewCircuitBreaker creates a breaker in the Closed state.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:     StateClosed,
		threshold: threshold,
		cooldown:  cooldown,
	}
}

// Allow reports whether an attempt may proceed. While Open it returns false
// until the cooldown elapses; the first caller after that becomes the
// half-open probe and subsequent callers keep failing fast until the probe
// resolves via Record.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.openedAt) < b.cooldown {
			return false
		}
		b.state = StateHalfOpen
		b.probeInFlight = true
		log.Debug().Msg("Circuit breaker half-open, admitting probe")
		return true
	case StateHalfOpen:
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true
	default:
		return false
	}
}

// Record reports the outcome of an attempt that Allow admitted.
func (b *CircuitBreaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if success {
			b.consecutiveFailures = 0
			return
		}
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.threshold {
			b.open()
		}
	case StateHalfOpen:
		b.probeInFlight = false
		if success {
			b.state = StateClosed
			b.consecutiveFailures = 0
			log.Info().Msg("Circuit breaker closed after successful probe")
			return
		}
		b.open()
	case StateOpen:
		// A straggler from before the breaker opened; its outcome carries no
		// new information about the destination.
	}
}

// open transitions to Open. Callers must hold b.mu.
func (b *CircuitBreaker) open() {
	b.state = StateOpen
	b.openedAt = time.Now()
	b.probeInFlight = false
	b.tripped = true
	log.Warn().
		Int("consecutive_failures", b.consecutiveFailures).
		Dur("cooldown", b.cooldown).
		Msg("Circuit breaker opened")
}

// State returns the current state.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Tripped reports whether the breaker has ever opened.
func (b *CircuitBreaker) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped
}

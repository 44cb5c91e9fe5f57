package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// StateChangeFunc is called outside the breaker lock after every transition.
type StateChangeFunc func(name string, from, to CircuitState)

// CircuitBreaker guards one upstream (Yahoo, the schedule feed, blob storage).
// A nil *CircuitBreaker lets every call through, which is how a disabled breaker is represented.
type CircuitBreaker struct {
	name     string
	cfg      CircuitBreakerConfig
	onChange StateChangeFunc
	now      func() time.Time

	mu        sync.Mutex
	state     CircuitState
	failures  int
	openedAt  time.Time
	probes    int
	successes int
}

// NewCircuitBreaker returns nil when cfg.Enabled is false.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, onChange StateChangeFunc) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	return &CircuitBreaker{
		name:     name,
		cfg:      NormalizeCircuitBreakerConfig(cfg),
		onChange: onChange,
		now:      time.Now,
		state:    CircuitStateClosed,
	}
}

func (b *CircuitBreaker) Allow() error {
	if b == nil {
		return nil
	}

	b.mu.Lock()
	from := b.state
	if b.state == CircuitStateOpen {
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.setLocked(CircuitStateHalfOpen)
	}
	if b.state == CircuitStateHalfOpen && b.probes >= b.cfg.HalfOpenMaxReq {
		b.mu.Unlock()
		b.notify(from, CircuitStateHalfOpen)
		return ErrCircuitOpen
	}
	if b.state == CircuitStateHalfOpen {
		b.probes++
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	if b == nil {
		return
	}

	b.mu.Lock()
	from := b.state
	switch b.state {
	case CircuitStateClosed:
		b.failures = 0
	case CircuitStateHalfOpen:
		b.successes++
		if b.probes > 0 {
			b.probes--
		}
		if b.successes >= b.cfg.HalfOpenMaxReq && b.probes == 0 {
			b.setLocked(CircuitStateClosed)
		}
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

func (b *CircuitBreaker) RecordFailure() {
	if b == nil {
		return
	}

	b.mu.Lock()
	from := b.state
	switch b.state {
	case CircuitStateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.setLocked(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		b.setLocked(CircuitStateOpen)
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

func (b *CircuitBreaker) State() CircuitState {
	if b == nil {
		return CircuitStateClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

// setLocked requires b.mu.
func (b *CircuitBreaker) setLocked(state CircuitState) {
	b.state = state
	b.probes = 0
	b.successes = 0
	switch state {
	case CircuitStateOpen:
		b.openedAt = b.now()
	case CircuitStateClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	}
}

func (b *CircuitBreaker) notify(from, to CircuitState) {
	if from != to && b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}

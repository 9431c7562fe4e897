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

// CircuitBreaker trips after consecutive upstream failures. Once the open
// timeout elapses it admits up to HalfOpenMaxReq probes and closes again
// when all of them succeed.
type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig
	now  func() time.Time

	mu            sync.Mutex
	onStateChange func(name string, from, to CircuitState)
	state         CircuitState
	failures      int
	openedAt      time.Time
	probes        int
	probeWins     int
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	return &CircuitBreaker{
		cfg: CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: failureThreshold,
			OpenTimeout:      openTimeout,
			HalfOpenMaxReq:   halfOpenMaxReq,
		}.withDefaults(),
		state: CircuitStateClosed,
		now:   time.Now,
	}
}

// NewCircuitBreakerFromConfig returns nil when the breaker is disabled.
func NewCircuitBreakerFromConfig(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	b := NewCircuitBreaker(cfg.FailureThreshold, cfg.OpenTimeout, cfg.HalfOpenMaxReq)
	b.name = name
	return b
}

// OnStateChange registers a hook invoked outside the breaker lock.
func (b *CircuitBreaker) OnStateChange(fn func(name string, from, to CircuitState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// Execute runs fn when the breaker allows it. Errors for which isFailure
// returns false are passed through without counting against the breaker.
// A nil breaker always runs fn.
func (b *CircuitBreaker) Execute(fn func() error, isFailure func(error) bool) error {
	if b == nil {
		return fn()
	}
	if err := b.Allow(); err != nil {
		return err
	}

	err := fn()
	if err != nil && (isFailure == nil || isFailure(err)) {
		b.RecordFailure()
	} else {
		b.RecordSuccess()
	}
	return err
}

func (b *CircuitBreaker) Allow() error {
	var err error
	b.transition(func() {
		if b.state == CircuitStateOpen {
			if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
				err = ErrCircuitOpen
				return
			}
			b.enter(CircuitStateHalfOpen)
		}
		if b.state == CircuitStateHalfOpen {
			if b.probes >= b.cfg.HalfOpenMaxReq {
				err = ErrCircuitOpen
				return
			}
			b.probes++
		}
	})
	return err
}

func (b *CircuitBreaker) RecordSuccess() {
	b.transition(func() {
		switch b.state {
		case CircuitStateClosed:
			b.failures = 0
		case CircuitStateHalfOpen:
			b.probes = max(b.probes-1, 0)
			b.probeWins++
			if b.probeWins >= b.cfg.HalfOpenMaxReq && b.probes == 0 {
				b.enter(CircuitStateClosed)
			}
		}
	})
}

func (b *CircuitBreaker) RecordFailure() {
	b.transition(func() {
		switch b.state {
		case CircuitStateClosed:
			b.failures++
			if b.failures >= b.cfg.FailureThreshold {
				b.enter(CircuitStateOpen)
			}
		case CircuitStateHalfOpen:
			b.enter(CircuitStateOpen)
		case CircuitStateOpen:
			b.openedAt = b.now()
		}
	})
}

// State reports half-open for an open breaker whose timeout has elapsed,
// even before the next Allow moves it there.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

// transition runs step under the lock and fires the state hook afterwards
// when the state changed.
func (b *CircuitBreaker) transition(step func()) {
	b.mu.Lock()
	from := b.state
	step()
	to := b.state
	hook := b.onStateChange
	b.mu.Unlock()

	if hook != nil && from != to {
		hook(b.name, from, to)
	}
}

// enter resets the per-state counters. Callers hold the lock.
func (b *CircuitBreaker) enter(state CircuitState) {
	b.state = state
	b.probes = 0
	b.probeWins = 0
	switch state {
	case CircuitStateClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

// Package circuitbreaker tracks per-gateway health for the transport harness
// and short-circuits calls to gateways that keep failing. In-memory only; a
// process restart resets all circuits.
package circuitbreaker

import (
	"sync"
	"time"
)

// State is the circuit state for one gateway.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

const (
	defaultFailureThreshold         = 5
	defaultOpenStateTimeout         = 30 * time.Second
	defaultHalfOpenSuccessThreshold = 2
)

type gatewayState struct {
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	lastFailureTime      time.Time
	openUntil            time.Time
}

// CircuitBreaker monitors gateway health and refuses calls to gateways whose
// circuit is open.
type CircuitBreaker struct {
	mu                       sync.RWMutex
	gateways                 map[string]*gatewayState
	failureThreshold         int
	openStateTimeout         time.Duration
	halfOpenSuccessThreshold int
}

// NewCircuitBreaker creates a CircuitBreaker with default settings.
func NewCircuitBreaker() *CircuitBreaker {
	return NewCircuitBreakerWithSettings(defaultFailureThreshold, defaultOpenStateTimeout, defaultHalfOpenSuccessThreshold)
}

// NewCircuitBreakerWithSettings creates a CircuitBreaker with custom settings.
func NewCircuitBreakerWithSettings(failThreshold int, openTimeout time.Duration, halfOpenSuccess int) *CircuitBreaker {
	return &CircuitBreaker{
		gateways:                 make(map[string]*gatewayState),
		failureThreshold:         failThreshold,
		openStateTimeout:         openTimeout,
		halfOpenSuccessThreshold: halfOpenSuccess,
	}
}

// getGatewayState assumes the caller holds the write lock.
func (cb *CircuitBreaker) getGatewayState(gateway string) *gatewayState {
	gs, exists := cb.gateways[gateway]
	if !exists {
		gs = &gatewayState{state: Closed}
		cb.gateways[gateway] = gs
	}
	return gs
}

// IsHealthy reports whether calls to the gateway are currently allowed.
// An expired Open circuit transitions to HalfOpen here.
func (cb *CircuitBreaker) IsHealthy(gateway string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	gs := cb.getGatewayState(gateway)
	switch gs.state {
	case Closed:
		return true
	case Open:
		if time.Now().After(gs.openUntil) {
			gs.state = HalfOpen
			gs.consecutiveSuccesses = 0
			return true
		}
		return false
	case HalfOpen:
		return true
	default:
		gs.state = Closed
		return true
	}
}

// RecordFailure records a failed call against the gateway.
func (cb *CircuitBreaker) RecordFailure(gateway string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	gs := cb.getGatewayState(gateway)
	gs.lastFailureTime = time.Now()

	switch gs.state {
	case Closed:
		gs.consecutiveFailures++
		if gs.consecutiveFailures >= cb.failureThreshold {
			gs.state = Open
			gs.openUntil = time.Now().Add(cb.openStateTimeout)
		}
	case HalfOpen:
		// A failure while probing re-opens the circuit immediately.
		gs.state = Open
		gs.openUntil = time.Now().Add(cb.openStateTimeout)
		gs.consecutiveFailures = 0
		gs.consecutiveSuccesses = 0
	case Open:
		return
	}
}

// RecordSuccess records a successful call against the gateway.
func (cb *CircuitBreaker) RecordSuccess(gateway string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	gs := cb.getGatewayState(gateway)
	switch gs.state {
	case Closed:
		gs.consecutiveFailures = 0
	case HalfOpen:
		gs.consecutiveSuccesses++
		if gs.consecutiveSuccesses >= cb.halfOpenSuccessThreshold {
			gs.state = Closed
			gs.consecutiveFailures = 0
			gs.consecutiveSuccesses = 0
		}
	case Open:
		// Success only matters in HalfOpen or Closed; IsHealthy should have
		// prevented the call while Open.
		return
	}
}

// GetState returns the current circuit state for a gateway without
// transitioning it. For monitoring and tests.
func (cb *CircuitBreaker) GetState(gateway string) State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	gs, exists := cb.gateways[gateway]
	if !exists {
		return Closed
	}
	return gs.state
}

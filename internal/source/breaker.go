package source

import (
	"errors"
	"sync"
	"time"

	"github.com/fleet-fines/internal/logging"
)

// BreakerState represents the circuit breaker state
type BreakerState string

const (
	// BreakerClosed means requests are allowed
	BreakerClosed BreakerState = "closed"
	// BreakerOpen means requests are blocked
	BreakerOpen BreakerState = "open"
	// BreakerHalfOpen means the breaker is testing if the source has recovered
	BreakerHalfOpen BreakerState = "half_open"
)

// ErrBreakerOpen is returned when the circuit breaker is open
var ErrBreakerOpen = errors.New("circuit breaker is open")

// BreakerConfig configures a circuit breaker
type BreakerConfig struct {
	Name             string
	MaxFailures      int
	Timeout          time.Duration
	HalfOpenMaxCalls int
}

// DefaultBreakerConfig returns a default breaker configuration
func DefaultBreakerConfig(name string) *BreakerConfig {
	return &BreakerConfig{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 2,
	}
}

// Breaker guards the source connection against hammering a failing system.
type Breaker struct {
	name             string
	maxFailures      int
	timeout          time.Duration
	halfOpenMaxCalls int

	mu               sync.Mutex
	state            BreakerState
	consecutiveFails int
	halfOpenCalls    int
	lastStateChange  time.Time
}

// NewBreaker creates a new circuit breaker
func NewBreaker(cfg *BreakerConfig) *Breaker {
	return &Breaker{
		name:             cfg.Name,
		maxFailures:      cfg.MaxFailures,
		timeout:          cfg.Timeout,
		halfOpenMaxCalls: cfg.HalfOpenMaxCalls,
		state:            BreakerClosed,
		lastStateChange:  time.Now(),
	}
}

// Execute runs fn if the circuit allows it and records the outcome.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.beforeRequest(); err != nil {
		return err
	}

	err := fn()
	b.afterRequest(err)
	return err
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) beforeRequest() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if time.Since(b.lastStateChange) > b.timeout {
			b.setState(BreakerHalfOpen)
			return nil
		}
		return ErrBreakerOpen

	case BreakerHalfOpen:
		if b.halfOpenCalls >= b.halfOpenMaxCalls {
			return ErrBreakerOpen
		}
		b.halfOpenCalls++
		return nil

	default:
		return nil
	}
}

func (b *Breaker) afterRequest(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.consecutiveFails = 0
		if b.state == BreakerHalfOpen {
			b.setState(BreakerClosed)
		}
		return
	}

	b.consecutiveFails++
	if b.state == BreakerHalfOpen || b.consecutiveFails >= b.maxFailures {
		b.setState(BreakerOpen)
	}
}

// setState transitions the breaker. Caller must hold the mutex.
func (b *Breaker) setState(state BreakerState) {
	if b.state == state {
		return
	}
	b.state = state
	b.lastStateChange = time.Now()
	b.halfOpenCalls = 0
	if state == BreakerClosed {
		b.consecutiveFails = 0
	}

	logging.Global().WithFields(map[string]interface{}{
		"breaker": b.name,
		"state":   string(state),
	}).Info("Circuit breaker state changed")
}

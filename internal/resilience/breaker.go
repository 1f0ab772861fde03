package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/core/domain"
)

// State enumerates circuit breaker states.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String implements fmt.Stringer for log and metric labels.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a circuit breaker instance.
type BreakerConfig struct {
	// WindowSize is the number of most recent call outcomes considered when
	// computing the failure rate.
	WindowSize int
	// MinCalls gates the failure-rate evaluation: the breaker stays closed
	// until at least this many outcomes have been recorded.
	MinCalls int
	// FailureRateThreshold opens the breaker once failures/window reaches it.
	FailureRateThreshold float64
	// OpenWait is how long the breaker rejects calls before probing again.
	OpenWait time.Duration
	// HalfOpenTrials is the number of probe calls admitted while half-open.
	HalfOpenTrials int
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.WindowSize <= 0 {
		c.WindowSize = 10
	}
	if c.MinCalls <= 0 {
		c.MinCalls = 5
	}
	if c.FailureRateThreshold <= 0 {
		c.FailureRateThreshold = 0.5
	}
	if c.OpenWait <= 0 {
		c.OpenWait = 5 * time.Second
	}
	if c.HalfOpenTrials <= 0 {
		c.HalfOpenTrials = 3
	}
	return c
}

// CircuitBreaker guards one logical remote dependency. A single instance is
// constructed at process start and shared by reference across every call
// site targeting that dependency; all state transitions happen under one
// mutex so exactly one transition fires however many callers observe the
// threshold crossed concurrently.
type CircuitBreaker struct {
	name    string
	cfg     BreakerConfig
	logger  *zap.Logger
	metrics *BreakerMetrics
	now     func() time.Time

	mu             sync.Mutex
	state          State
	window         []bool // true = failure
	openedAt       time.Time
	trialsStarted  int
	trialSuccesses int
}

// BreakerOption configures optional breaker collaborators.
type BreakerOption func(*CircuitBreaker)

// WithBreakerMetrics attaches Prometheus instrumentation.
func WithBreakerMetrics(metrics *BreakerMetrics) BreakerOption {
	return func(b *CircuitBreaker) {
		b.metrics = metrics
	}
}

// WithBreakerClock overrides the clock for deterministic tests.
func WithBreakerClock(clock func() time.Time) BreakerOption {
	return func(b *CircuitBreaker) {
		if clock != nil {
			b.now = clock
		}
	}
}

// NewCircuitBreaker constructs a closed breaker for the named dependency.
func NewCircuitBreaker(name string, cfg BreakerConfig, logger *zap.Logger, opts ...BreakerOption) *CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker := &CircuitBreaker{
		name:   name,
		cfg:    cfg.withDefaults(),
		logger: logger,
		state:  StateClosed,
		now:    func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		if opt != nil {
			opt(breaker)
		}
	}

	if breaker.metrics != nil {
		breaker.metrics.setState(name, StateClosed)
	}

	return breaker
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn under the breaker. While open it rejects immediately with
// ErrUnavailable without invoking fn; while half-open it admits up to the
// configured number of trials. The outcome of one Execute call counts as a
// single entry in the sliding window, so a retry loop must run inside fn.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(err != nil)
	return err
}

// admit decides whether a call may proceed, transitioning OPEN -> HALF_OPEN
// lazily once the wait has elapsed.
func (b *CircuitBreaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.OpenWait {
			if b.metrics != nil {
				b.metrics.incShortCircuit(b.name)
			}
			return fmt.Errorf("circuit breaker %s is open: %w", b.name, domain.ErrUnavailable)
		}
		b.transition(StateHalfOpen)
		b.trialsStarted = 1
		return nil
	case StateHalfOpen:
		if b.trialsStarted >= b.cfg.HalfOpenTrials {
			if b.metrics != nil {
				b.metrics.incShortCircuit(b.name)
			}
			return fmt.Errorf("circuit breaker %s is probing: %w", b.name, domain.ErrUnavailable)
		}
		b.trialsStarted++
		return nil
	default:
		return fmt.Errorf("circuit breaker %s in unknown state: %w", b.name, domain.ErrUnavailable)
	}
}

// record feeds one call outcome into the state machine.
func (b *CircuitBreaker) record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.window = append(b.window, failed)
		if len(b.window) > b.cfg.WindowSize {
			b.window = b.window[len(b.window)-b.cfg.WindowSize:]
		}
		if len(b.window) >= b.cfg.MinCalls && b.failureRate() >= b.cfg.FailureRateThreshold {
			b.trip()
		}
	case StateHalfOpen:
		if failed {
			// A single failed probe reopens the breaker and restarts the wait.
			b.trip()
			return
		}
		b.trialSuccesses++
		if b.trialSuccesses >= b.cfg.HalfOpenTrials {
			b.transition(StateClosed)
			b.window = nil
		}
	case StateOpen:
		// A call admitted before the trip completed; its outcome no longer
		// influences the open state.
	}
}

func (b *CircuitBreaker) failureRate() float64 {
	failures := 0
	for _, failed := range b.window {
		if failed {
			failures++
		}
	}
	if len(b.window) == 0 {
		return 0
	}
	return float64(failures) / float64(len(b.window))
}

func (b *CircuitBreaker) trip() {
	b.transition(StateOpen)
	b.openedAt = b.now()
	b.window = nil
}

// transition must be called with the mutex held.
func (b *CircuitBreaker) transition(next State) {
	prev := b.state
	b.state = next
	b.trialsStarted = 0
	b.trialSuccesses = 0

	b.logger.Info("circuit breaker transition",
		zap.String("breaker", b.name),
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
	)

	if b.metrics != nil {
		b.metrics.setState(b.name, next)
		b.metrics.incTransition(b.name, next)
	}
}

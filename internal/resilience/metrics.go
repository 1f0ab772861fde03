package resilience

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// BreakerMetricsOptions configures breaker instrumentation.
type BreakerMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// BreakerMetrics exposes Prometheus collectors for circuit breaker activity.
type BreakerMetrics struct {
	state         *prometheus.GaugeVec
	transitions   *prometheus.CounterVec
	shortCircuits *prometheus.CounterVec
}

// NewBreakerMetrics constructs and registers breaker collectors.
func NewBreakerMetrics(opts BreakerMetricsOptions) (*BreakerMetrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "genzf"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "breaker",
		Name:      "state",
		Help:      "Current circuit breaker state (0 closed, 1 open, 2 half-open).",
	}, []string{"breaker"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "breaker",
		Name:      "transitions_total",
		Help:      "Circuit breaker state transitions partitioned by target state.",
	}, []string{"breaker", "to"})

	shortCircuits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "breaker",
		Name:      "short_circuits_total",
		Help:      "Calls rejected without reaching the remote dependency.",
	}, []string{"breaker"})

	metrics := &BreakerMetrics{}

	var err error
	if metrics.state, err = registerGauge(reg, state); err != nil {
		return nil, err
	}
	if metrics.transitions, err = registerCounter(reg, transitions); err != nil {
		return nil, err
	}
	if metrics.shortCircuits, err = registerCounter(reg, shortCircuits); err != nil {
		return nil, err
	}

	return metrics, nil
}

func registerGauge(reg prometheus.Registerer, collector *prometheus.GaugeVec) (*prometheus.GaugeVec, error) {
	if err := reg.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return nil, fmt.Errorf("register breaker gauge: %w", err)
	}
	return collector, nil
}

func registerCounter(reg prometheus.Registerer, collector *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return nil, fmt.Errorf("register breaker counter: %w", err)
	}
	return collector, nil
}

func (m *BreakerMetrics) setState(name string, state State) {
	if m == nil || m.state == nil {
		return
	}
	m.state.WithLabelValues(name).Set(float64(state))
}

func (m *BreakerMetrics) incTransition(name string, to State) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(name, to.String()).Inc()
}

func (m *BreakerMetrics) incShortCircuit(name string) {
	if m == nil || m.shortCircuits == nil {
		return
	}
	m.shortCircuits.WithLabelValues(name).Inc()
}

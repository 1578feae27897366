package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by the synchronization engine.
//
// Implementations should be inexpensive to call because hooks run inline with
// fetch completions and mutation handling.
type Collector interface {
	IncFetch(resource, outcome string)
	IncMutation(kind, outcome string)
	SetPollerActive(resource string, active bool)
	SetActiveAlerts(count int)
}

// Fetch and mutation outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncFetch(string, string)      {}
func (noopCollector) IncMutation(string, string)   {}
func (noopCollector) SetPollerActive(string, bool) {}
func (noopCollector) SetActiveAlerts(int)          {}

// PrometheusCollector exposes engine counters and gauges via Prometheus.
type PrometheusCollector struct {
	fetches      *prometheus.CounterVec
	mutations    *prometheus.CounterVec
	pollers      *prometheus.GaugeVec
	activeAlerts prometheus.Gauge
}

// NewPrometheusCollector registers the required metrics with the provided
// registerer. Passing nil uses the default registerer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aquasync_fetch_total",
		Help: "Number of remote fetches per resource and outcome.",
	}, []string{"resource", "outcome"})
	registered, err := registerCounterVec(reg, fetches)
	if err != nil {
		return nil, err
	}
	fetches = registered

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aquasync_mutation_total",
		Help: "Number of state-changing backend calls per kind and outcome.",
	}, []string{"kind", "outcome"})
	if mutations, err = registerCounterVec(reg, mutations); err != nil {
		return nil, err
	}

	pollers := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aquasync_poller_active",
		Help: "Whether a recurring poller is currently running, per resource.",
	}, []string{"resource"})
	if pollers, err = registerGaugeVec(reg, pollers); err != nil {
		return nil, err
	}

	activeAlerts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aquasync_alerts_active",
		Help: "Number of alerts derived from the latest sensor reading.",
	})
	if err := reg.Register(activeAlerts); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(prometheus.Gauge); ok {
				activeAlerts = existing
			} else {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	return &PrometheusCollector{
		fetches:      fetches,
		mutations:    mutations,
		pollers:      pollers,
		activeAlerts: activeAlerts,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return vec, nil
}

// IncFetch records a completed remote fetch.
func (p *PrometheusCollector) IncFetch(resource, outcome string) {
	if p == nil || p.fetches == nil {
		return
	}
	p.fetches.WithLabelValues(resource, outcome).Inc()
}

// IncMutation records a completed state-changing call.
func (p *PrometheusCollector) IncMutation(kind, outcome string) {
	if p == nil || p.mutations == nil {
		return
	}
	p.mutations.WithLabelValues(kind, outcome).Inc()
}

// SetPollerActive tracks the lifecycle of a recurring poller.
func (p *PrometheusCollector) SetPollerActive(resource string, active bool) {
	if p == nil || p.pollers == nil {
		return
	}
	value := 0.0
	if active {
		value = 1.0
	}
	p.pollers.WithLabelValues(resource).Set(value)
}

// SetActiveAlerts updates the derived alert gauge.
func (p *PrometheusCollector) SetActiveAlerts(count int) {
	if p == nil || p.activeAlerts == nil {
		return
	}
	p.activeAlerts.Set(float64(count))
}

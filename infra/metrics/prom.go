package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/pyro/core/factory"
)

// PromSink records registry activity in Prometheus metrics.
type PromSink struct {
	resolutions *prometheus.CounterVec
	creations   *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// NewPromSink registers factory metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pyro_factory_resolutions_total",
		Help: "Type resolutions by result (hit, miss, builtin, error)",
	}, []string{"result"})
	creations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pyro_factory_creations_total",
		Help: "Instances created by type and outcome",
	}, []string{"type", "ok"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyro_factory_create_seconds",
		Help:    "Time spent in constructors",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	if err := reg.Register(resolutions); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			resolutions = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(creations); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			creations = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			latency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	return &PromSink{resolutions: resolutions, creations: creations, latency: latency}, nil
}

// RecordResolution increments the counter for the resolution result.
func (s *PromSink) RecordResolution(ev factory.ResolutionEvent) error {
	s.resolutions.WithLabelValues(ev.Result).Inc()
	return nil
}

// RecordCreation counts the creation and observes constructor latency.
func (s *PromSink) RecordCreation(ev factory.CreationEvent) error {
	s.creations.WithLabelValues(ev.ID, strconv.FormatBool(ev.Err == nil)).Inc()
	s.latency.WithLabelValues(ev.ID).Observe(ev.Duration.Seconds())
	return nil
}

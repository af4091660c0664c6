package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/pyro/core/factory"
	inflogger "github.com/kilianp07/pyro/infra/logger"
)

// Identifiers of the built-in sinks.
const (
	NopSinkType  = factory.Root + ".infra.metrics.NopSink"
	PromSinkType = factory.Root + ".infra.metrics.PromSink"
	LogSinkType  = factory.Root + ".infra.metrics.LogSink"
)

// init registers built-in metrics sinks.
func init() {
	factory.MustRegisterType(factory.Default, NopSinkType, func([]any, map[string]any) (factory.Recorder, error) {
		return factory.NopRecorder{}, nil
	})
	factory.MustRegisterType(factory.Default, PromSinkType, func(args []any, _ map[string]any) (*PromSink, error) {
		if len(args) > 0 {
			reg, ok := args[0].(prometheus.Registerer)
			if !ok {
				return nil, fmt.Errorf("prometheus sink: %T is not a registerer", args[0])
			}
			return NewPromSinkWithRegistry(reg)
		}
		return NewPromSink()
	})
	factory.MustRegisterType(factory.Default, LogSinkType, func(_ []any, kwargs map[string]any) (*LogSink, error) {
		var c struct {
			Component string `json:"component"`
		}
		if err := factory.Decode(kwargs, &c); err != nil {
			return nil, err
		}
		if c.Component == "" {
			c.Component = "factory"
		}
		return NewLogSink(inflogger.New(c.Component)), nil
	})
}

// NewRecorder builds the sinks described by descs in reg and combines them.
// No descriptor yields a NopRecorder; several yield a MultiSink.
func NewRecorder(reg *factory.Registry, descs []factory.Descriptor) (factory.Recorder, error) {
	if len(descs) == 0 {
		return factory.NopRecorder{}, nil
	}
	sinks := make([]factory.Recorder, len(descs))
	for i, d := range descs {
		f := reg.Factory(d, nil, nil)
		s, err := factory.CreateAs[factory.Recorder](f, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("metrics sink %s: %w", d.Type, err)
		}
		sinks[i] = s
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}

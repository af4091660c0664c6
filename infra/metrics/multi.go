package metrics

import "github.com/kilianp07/pyro/core/factory"

// MultiSink fanouts registry events to multiple sinks.
type MultiSink struct {
	Sinks []factory.Recorder
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...factory.Recorder) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordResolution forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordResolution(ev factory.ResolutionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordResolution(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordCreation forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordCreation(ev factory.CreationEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordCreation(ev); err != nil {
			return err
		}
	}
	return nil
}

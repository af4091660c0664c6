package metrics

import (
	"github.com/kilianp07/pyro/core/factory"
	"github.com/kilianp07/pyro/core/logger"
)

// LogSink writes registry events to a logger at debug level.
type LogSink struct {
	log logger.Logger
}

// NewLogSink returns a LogSink writing to l.
func NewLogSink(l logger.Logger) *LogSink {
	if l == nil {
		l = logger.Nop{}
	}
	return &LogSink{log: l}
}

func (s *LogSink) RecordResolution(ev factory.ResolutionEvent) error {
	fields := map[string]any{"id": ev.ID, "result": ev.Result, "duration": ev.Duration.String()}
	if ev.Err != nil {
		fields["err"] = ev.Err.Error()
	}
	s.log.Debugw("resolution", fields)
	return nil
}

func (s *LogSink) RecordCreation(ev factory.CreationEvent) error {
	fields := map[string]any{"id": ev.ID, "duration": ev.Duration.String()}
	if ev.Err != nil {
		fields["err"] = ev.Err.Error()
	}
	s.log.Debugw("creation", fields)
	return nil
}

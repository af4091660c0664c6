package factory

import "time"

// Resolution results reported to a Recorder.
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultBuiltin = "builtin"
	ResultError   = "error"
)

// ResolutionEvent describes one call to Registry.Resolve.
type ResolutionEvent struct {
	ID       string
	Result   string
	Duration time.Duration
	Err      error
}

// CreationEvent describes one constructor invocation made by a Factory.
type CreationEvent struct {
	ID       string
	Duration time.Duration
	Err      error
}

// Recorder receives registry activity for observability purposes.
type Recorder interface {
	RecordResolution(ev ResolutionEvent) error
	RecordCreation(ev CreationEvent) error
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) RecordResolution(ResolutionEvent) error { return nil }
func (NopRecorder) RecordCreation(CreationEvent) error     { return nil }

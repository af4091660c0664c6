package xdata

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Keys always present in a Detail map.
const (
	KeyTime = "time"
	KeyID   = "id"
)

// Frame is a single entry of a captured stack trace.
type Frame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Prior describes the error that preceded the one being reported.
type Prior struct {
	Type  string  `json:"xtype"`
	Args  []any   `json:"xargs"`
	Trace []Frame `json:"tracebk,omitempty"`
	Prior *Prior  `json:"prior,omitempty"`
}

// Data is the diagnostic context attached to errors raised by pyro packages.
type Data struct {
	Detail map[string]any `json:"detail"`
	Prior  *Prior         `json:"prior,omitempty"`
}

// Build merges base and the key/value pairs in kv into a new detail map and
// records cause, when non-nil, as the prior error. base is not modified.
//
// kv is read as alternating keys and values. A trailing key without a value
// is stored as nil. Build never fails.
func Build(cause error, base map[string]any, kv ...any) Data {
	detail := make(map[string]any, len(base)+len(kv)/2+2)
	for k, v := range base {
		detail[k] = v
	}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kv[i])
		}
		var val any
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		detail[key] = val
	}
	if _, ok := detail[KeyTime]; !ok {
		detail[KeyTime] = time.Now()
	}
	if _, ok := detail[KeyID]; !ok {
		detail[KeyID] = uuid.NewString()
	}
	return Data{Detail: detail, Prior: prior(cause)}
}

func prior(cause error) *Prior {
	if cause == nil {
		return nil
	}
	p := &Prior{Type: fmt.Sprintf("%T", cause), Trace: Trace(cause)}
	if xe, ok := cause.(*Error); ok {
		p.Args = []any{xe.Code, xe.Data.Detail}
		p.Prior = xe.Data.Prior
		return p
	}
	p.Args = []any{cause.Error()}
	if next := errors.Unwrap(cause); next != nil {
		p.Prior = prior(next)
	}
	return p
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Trace returns the frames of the first stack captured in err's chain, or nil
// when no error in the chain carries one.
func Trace(err error) []Frame {
	for err != nil {
		if st, ok := err.(stackTracer); ok {
			return frames(st.StackTrace())
		}
		err = errors.Unwrap(err)
	}
	return nil
}

func frames(st errors.StackTrace) []Frame {
	out := make([]Frame, 0, len(st))
	for _, f := range st {
		line, _ := strconv.Atoi(fmt.Sprintf("%d", f))
		out = append(out, Frame{
			Function: fmt.Sprintf("%n", f),
			File:     fmt.Sprintf("%s", f),
			Line:     line,
		})
	}
	return out
}

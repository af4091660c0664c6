package xdata

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Error is a coded error carrying diagnostic context. Kind is a sentinel used
// for errors.Is matching; the wrapped cause, if any, is reachable through
// errors.Unwrap.
type Error struct {
	Code string
	Kind error
	Data Data

	cause error
	stack errors.StackTrace
}

// New returns an Error of the given kind with a dash-separated code. cause is
// recorded both as the unwrap target and as the prior entry of the context.
func New(kind error, code string, cause error, kv ...any) *Error {
	e := &Error{
		Code:  code,
		Kind:  kind,
		Data:  Build(cause, nil, kv...),
		cause: cause,
	}
	if st, ok := errors.New(code).(stackTracer); ok {
		trace := st.StackTrace()
		if len(trace) > 1 {
			// drop the frame of New itself
			trace = trace[1:]
		}
		e.stack = trace
	}
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	keys := make([]string, 0, len(e.Data.Detail))
	for k := range e.Data.Detail {
		if k == KeyTime || k == KeyID {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i == 0 {
			b.WriteString(":")
		}
		fmt.Fprintf(&b, " %s=%v", k, e.Data.Detail[k])
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// StackTrace returns the stack captured when the error was created.
func (e *Error) StackTrace() errors.StackTrace { return e.stack }

// JSON renders the error code and diagnostic context. Stack frames are
// omitted unless withTrace is set.
func (e *Error) JSON(withTrace bool) ([]byte, error) {
	data := e.Data
	if withTrace {
		if data.Prior == nil && len(e.stack) > 0 {
			data.Prior = &Prior{Type: fmt.Sprintf("%T", e), Args: []any{e.Code}, Trace: frames(e.stack)}
		}
	} else {
		data.Prior = stripTrace(data.Prior)
	}
	return json.MarshalIndent(struct {
		Code string `json:"code"`
		Data
	}{Code: e.Code, Data: data}, "", "  ")
}

func stripTrace(p *Prior) *Prior {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Trace = nil
	cp.Prior = stripTrace(p.Prior)
	return &cp
}

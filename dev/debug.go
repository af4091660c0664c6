package dev

import (
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"github.com/kilianp07/pyro/core/factory"
)

// DebugType is the identifier of Debug in factory.Default.
const DebugType = factory.Root + ".dev.Debug"

var showTrace atomic.Bool

// Debug is the process debug setting. Creating one applies it.
type Debug struct {
	Enabled   bool
	ShowTrace bool
}

// NewDebug enables or disables debug logging and stack traces in error
// reports.
func NewDebug(enabled, trace bool) Debug {
	if enabled {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	showTrace.Store(trace)
	return Debug{Enabled: enabled, ShowTrace: trace}
}

// ShowTrace reports whether error reports should include stack traces.
func ShowTrace() bool { return showTrace.Load() }

// Register adds the debug switch to reg as module + ".dev.Debug".
func Register(reg *factory.Registry, module string) error {
	return factory.RegisterType(reg, factory.Join(module, "dev.Debug"), newDebug)
}

func init() {
	if err := Register(factory.Default, factory.Root); err != nil {
		panic(err)
	}
}

func newDebug(args []any, kwargs map[string]any) (Debug, error) {
	vals := []bool{true, true}
	for i := 0; i < len(args) && i < len(vals); i++ {
		b, err := cast.ToBoolE(args[i])
		if err != nil {
			return Debug{}, err
		}
		vals[i] = b
	}
	for i, key := range []string{"debug", "showtb"} {
		if v, ok := kwargs[key]; ok {
			b, err := cast.ToBoolE(v)
			if err != nil {
				return Debug{}, err
			}
			vals[i] = b
		}
	}
	return NewDebug(vals[0], vals[1]), nil
}

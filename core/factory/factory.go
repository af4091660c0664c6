package factory

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Descriptor names a type and the arguments used to construct it.
type Descriptor struct {
	Type   string         `json:"type" yaml:"type"`
	Args   []any          `json:"args,omitempty" yaml:"args,omitempty"`
	Kwargs map[string]any `json:"kwargs,omitempty" yaml:"kwargs,omitempty"`
}

// Factory creates instances of a resolved type with stored arguments.
type Factory struct {
	*Resolver
	args   []any
	kwargs map[string]any
	err    error
}

// New returns a Factory bound to the Default registry.
//
// conf is either an identifier string or a descriptor (Descriptor,
// *Descriptor or a map with type/args/kwargs keys). For descriptors, args and
// kwargs replace the descriptor's own values when non-empty.
func New(conf any, args []any, kwargs map[string]any) *Factory {
	return Default.Factory(conf, args, kwargs)
}

// Factory returns a Factory bound to r. See New.
func (r *Registry) Factory(conf any, args []any, kwargs map[string]any) *Factory {
	f := &Factory{Resolver: r.Resolver(conf), args: args, kwargs: kwargs}
	var desc *Descriptor
	switch v := conf.(type) {
	case Descriptor:
		desc = &v
	case *Descriptor:
		desc = v
	case map[string]any:
		desc = &Descriptor{}
		if err := Decode(v, desc); err != nil {
			f.err = fmt.Errorf("decode descriptor: %w", err)
		}
	}
	if desc != nil {
		if len(f.args) == 0 {
			f.args = desc.Args
		}
		if len(f.kwargs) == 0 {
			f.kwargs = desc.Kwargs
		}
	}
	return f
}

// Create constructs a new instance. Non-empty args replace the stored
// positional arguments; kwargs are merged over a copy of the stored keyword
// arguments. Constructor errors are returned unchanged.
func (f *Factory) Create(args []any, kwargs map[string]any) (any, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, err := f.Type()
	if err != nil {
		return nil, err
	}
	kk := make(map[string]any, len(f.kwargs)+len(kwargs))
	for k, v := range f.kwargs {
		kk[k] = v
	}
	for k, v := range kwargs {
		kk[k] = v
	}
	a := f.args
	if len(args) > 0 {
		a = args
	}
	a = append([]any(nil), a...)

	start := time.Now()
	obj, err := t.New(a, kk)
	f.reg.recordCreation(CreationEvent{ID: t.ID, Duration: time.Since(start), Err: err})
	return obj, err
}

// Func returns Create as a Constructor, so the factory can be passed where a
// plain constructor is expected.
func (f *Factory) Func() Constructor {
	return f.Create
}

// Args returns a copy of the stored positional arguments.
func (f *Factory) Args() []any {
	return append([]any(nil), f.args...)
}

// Kwargs returns a copy of the stored keyword arguments.
func (f *Factory) Kwargs() map[string]any {
	out := make(map[string]any, len(f.kwargs))
	for k, v := range f.kwargs {
		out[k] = v
	}
	return out
}

// CreateAs creates an instance and asserts it to T.
func CreateAs[T any](f *Factory, args []any, kwargs map[string]any) (T, error) {
	var zero T
	obj, err := f.Create(args, kwargs)
	if err != nil {
		return zero, err
	}
	out, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("created %T, want %T", obj, zero)
	}
	return out, nil
}

// Decode fills out the provided struct using json tags.
func Decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

package factory

import (
	"fmt"
	"reflect"

	"github.com/spf13/cast"
)

// builtins are the primitive types any identifier may name by its last
// segment. They bypass the module table and the cache.
var builtins = map[string]*Type{}

func init() {
	scalar("bool", false, func(v any) (any, error) { return cast.ToBoolE(v) })
	scalar("int", 0, func(v any) (any, error) { return cast.ToIntE(v) })
	scalar("int64", int64(0), func(v any) (any, error) { return cast.ToInt64E(v) })
	scalar("uint", uint(0), func(v any) (any, error) { return cast.ToUintE(v) })
	scalar("float", float64(0), func(v any) (any, error) { return cast.ToFloat64E(v) })
	scalar("float64", float64(0), func(v any) (any, error) { return cast.ToFloat64E(v) })
	scalar("str", "", func(v any) (any, error) { return cast.ToStringE(v) })
	scalar("string", "", func(v any) (any, error) { return cast.ToStringE(v) })
	scalar("bytes", []byte{}, toBytes)
	builtin("list", reflect.TypeOf([]any{}), newList)
	builtin("dict", reflect.TypeOf(map[string]any{}), newDict)
}

// IsBuiltin reports whether name is a builtin primitive type name.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

func builtin(name string, rType reflect.Type, ctor Constructor) {
	builtins[name] = &Type{ID: name, Name: name, Reflect: rType, New: ctor}
}

func scalar(name string, zero any, conv func(any) (any, error)) {
	builtin(name, reflect.TypeOf(zero), func(args []any, kwargs map[string]any) (any, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s takes no keyword arguments", name)
		}
		switch len(args) {
		case 0:
			return zero, nil
		case 1:
			return conv(args[0])
		default:
			return nil, fmt.Errorf("%s takes at most 1 argument (%d given)", name, len(args))
		}
	})
}

func toBytes(v any) (any, error) {
	if b, ok := v.([]byte); ok {
		return append([]byte{}, b...), nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func newList(args []any, kwargs map[string]any) (any, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("list takes no keyword arguments")
	}
	switch len(args) {
	case 0:
		return []any{}, nil
	case 1:
	default:
		return nil, fmt.Errorf("list takes at most 1 argument (%d given)", len(args))
	}
	v := reflect.ValueOf(args[0])
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("list: %T is not a sequence", args[0])
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out, nil
}

func newDict(args []any, kwargs map[string]any) (any, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("dict takes at most 1 argument (%d given)", len(args))
	}
	out := make(map[string]any, len(kwargs))
	if len(args) == 1 {
		m, err := cast.ToStringMapE(args[0])
		if err != nil {
			return nil, err
		}
		for k, v := range m {
			out[k] = v
		}
	}
	for k, v := range kwargs {
		out[k] = v
	}
	return out, nil
}

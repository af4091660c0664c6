// Package factory resolves dotted type identifiers to constructors and builds
// instances from them. Packages register their constructors at init time,
// either one by one or as a lazily loaded module. Identifiers are split on
// the last dot into a module path and a type name; names of builtin
// primitives (int, str, list, dict, ...) resolve without a module lookup.
// Resolutions are cached per registry for the life of the process.
//
// Example usage:
//
//	factory.Default.MustRegister("zoo.Dog", func(args []any, kwargs map[string]any) (any, error) {
//	    var c struct{ Name string `json:"name"` }
//	    if err := factory.Decode(kwargs, &c); err != nil {
//	        return nil, err
//	    }
//	    return &Dog{Name: c.Name}, nil
//	})
//	f := factory.New(factory.Descriptor{Type: "zoo.Dog", Kwargs: map[string]any{"name": "rex"}}, nil, nil)
//	dog, err := f.Create(nil, nil)
package factory

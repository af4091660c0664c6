package factory

import (
	"sync"
)

// Resolver lazily resolves a type description. Nothing is looked up until
// Type is first called; a successful result is kept for the life of the
// Resolver, a failure is retried on the next call.
type Resolver struct {
	reg  *Registry
	info any

	mu sync.Mutex
	t  *Type
}

// NewResolver returns a Resolver bound to the Default registry. info is an
// identifier string, a Descriptor, a *Descriptor, or a map with a "type" key.
func NewResolver(info any) *Resolver {
	return Default.Resolver(info)
}

// Resolver returns a Resolver bound to r.
func (r *Registry) Resolver(info any) *Resolver {
	return &Resolver{reg: r, info: info}
}

// Type returns the resolved type.
func (r *Resolver) Type() (*Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.t != nil {
		return r.t, nil
	}
	id, err := typeID(r.info)
	if err != nil {
		return nil, err
	}
	t, err := r.reg.Resolve(id)
	if err != nil {
		return nil, err
	}
	r.t = t
	return t, nil
}

// Registry returns the registry the resolver looks types up in.
func (r *Resolver) Registry() *Registry { return r.reg }

func typeID(info any) (string, error) {
	var id string
	switch v := info.(type) {
	case string:
		id = v
	case Descriptor:
		id = v.Type
	case *Descriptor:
		if v != nil {
			id = v.Type
		}
	case map[string]any:
		id, _ = v["type"].(string)
	}
	if id == "" {
		return "", invalidDescriptor(info)
	}
	return id, nil
}

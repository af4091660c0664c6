package base

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kilianp07/pyro/core/factory"
	"github.com/kilianp07/pyro/fs"
	fsconfig "github.com/kilianp07/pyro/fs/config"
	"github.com/kilianp07/pyro/fs/dir"
)

// Base bundles the helpers used to build objects from inside a module tree.
// Module is the dotted path that InnerPath prefixes to relative identifiers.
type Base struct {
	Module string

	reg        *factory.Registry
	configOnce sync.Once
	config     *factory.Factory
	pathOnce   sync.Once
	path       *factory.Factory
}

// New returns a Base for module, resolving types in reg (factory.Default when
// nil).
func New(module string, reg *factory.Registry) *Base {
	if reg == nil {
		reg = factory.Default
	}
	return &Base{Module: module, reg: reg}
}

// Default is the Base of the pyro module itself.
var Default = New(factory.Root, nil)

// Registry returns the registry the Base resolves types in.
func (b *Base) Registry() *factory.Registry { return b.reg }

// InnerPath returns the full identifier of a type named relative to Module.
func (b *Base) InnerPath(rel string) string {
	if rel == "" {
		return b.Module
	}
	return factory.Join(b.Module, rel)
}

// RegisterHelpers registers the filesystem helpers used by Base (fs.Path,
// fs.config.Config, fs.dir.Dir) under module in reg. Helpers already
// registered there are left as they are.
func RegisterHelpers(reg *factory.Registry, module string) error {
	for _, register := range []func(*factory.Registry, string) error{
		fs.Register,
		fsconfig.Register,
		dir.Register,
	} {
		if err := register(reg, module); err != nil && !errors.Is(err, factory.ErrDuplicate) {
			return err
		}
	}
	return nil
}

// Config loads a descriptor file through the module's fs.config.Config type.
func (b *Base) Config(args ...any) (*fsconfig.Config, error) {
	b.configOnce.Do(func() {
		b.config = b.reg.Factory(b.InnerPath("fs.config.Config"), nil, nil)
	})
	return factory.CreateAs[*fsconfig.Config](b.config, args, nil)
}

// Path returns a path helper through the module's fs.Path type.
func (b *Base) Path(args ...any) (*fs.Path, error) {
	b.pathOnce.Do(func() {
		b.path = b.reg.Factory(b.InnerPath("fs.Path"), nil, nil)
	})
	return factory.CreateAs[*fs.Path](b.path, args, nil)
}

// Create builds the object described by conf. A string naming an existing
// file is loaded as a descriptor file; any other string is a type
// identifier. Descriptors are passed to the factory as they are.
func (b *Base) Create(ctx context.Context, conf any, args []any, kwargs map[string]any) (any, error) {
	if s, ok := conf.(string); ok {
		p, err := b.Path()
		if err != nil {
			return nil, err
		}
		isFile, err := p.IsFile(ctx, s)
		if err != nil {
			return nil, err
		}
		if isFile {
			return b.CreateFromFile(ctx, s, args, kwargs)
		}
	}
	return b.CreateFromDescriptor(conf, args, kwargs)
}

// CreateFromFile loads the descriptor file at path and builds the object it
// describes.
func (b *Base) CreateFromFile(_ context.Context, path string, args []any, kwargs map[string]any) (any, error) {
	p, err := b.Path()
	if err != nil {
		return nil, err
	}
	cfg, err := b.Config(p.Expand(path))
	if err != nil {
		return nil, err
	}
	return b.reg.Factory(cfg.Map(), args, kwargs).Create(nil, nil)
}

// CreateFromDescriptor builds the object described by an identifier string
// or a descriptor, without probing the filesystem.
func (b *Base) CreateFromDescriptor(conf any, args []any, kwargs map[string]any) (any, error) {
	return b.reg.Factory(conf, args, kwargs).Create(nil, nil)
}

// NCreate is Create applied to InnerPath(rel).
func (b *Base) NCreate(ctx context.Context, rel string, args []any, kwargs map[string]any) (any, error) {
	return b.Create(ctx, b.InnerPath(rel), args, kwargs)
}

// KCopy returns the entries of m whose keys are listed in keys, given either
// as a whitespace separated string or as a []string.
func KCopy(m map[string]any, keys any) (map[string]any, error) {
	var list []string
	switch k := keys.(type) {
	case string:
		list = strings.Fields(k)
	case []string:
		list = k
	default:
		return nil, fmt.Errorf("keys must be a string or []string, got %T", keys)
	}
	out := make(map[string]any, len(list))
	for _, k := range list {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

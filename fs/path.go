package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"

	"github.com/kilianp07/pyro/core/factory"
)

// PathType is the identifier of Path in factory.Default.
const PathType = factory.Root + ".fs.Path"

// Path expands and probes filesystem paths relative to a base directory.
type Path struct {
	Base string
	fs   afs.Service
}

// NewPath returns a Path rooted at base. An empty base means the working
// directory at the time of each call.
func NewPath(base string) *Path {
	return &Path{Base: base, fs: afs.New()}
}

// Expand resolves a leading ~, environment variables and relative paths.
func (p *Path) Expand(path string) string {
	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	base := p.Base
	if base == "" {
		if wd, err := os.Getwd(); err == nil {
			base = wd
		}
	} else {
		base = p.Expand(base)
	}
	return filepath.Join(base, path)
}

// Exists reports whether the expanded path exists.
func (p *Path) Exists(ctx context.Context, path string) (bool, error) {
	return p.fs.Exists(ctx, p.Expand(path))
}

// IsFile reports whether the expanded path exists and is not a directory.
func (p *Path) IsFile(ctx context.Context, path string) (bool, error) {
	obj, err := p.object(ctx, path)
	if err != nil || obj == nil {
		return false, err
	}
	return !obj.IsDir(), nil
}

func (p *Path) object(ctx context.Context, path string) (storage.Object, error) {
	ok, err := p.Exists(ctx, path)
	if err != nil || !ok {
		return nil, err
	}
	return p.fs.Object(ctx, p.Expand(path))
}

// Register adds the path helper to reg as module + ".fs.Path".
func Register(reg *factory.Registry, module string) error {
	return factory.RegisterType(reg, factory.Join(module, "fs.Path"), newPath)
}

func init() {
	if err := Register(factory.Default, factory.Root); err != nil {
		panic(err)
	}
}

func newPath(args []any, kwargs map[string]any) (*Path, error) {
	var c struct {
		Base string `json:"base"`
	}
	if err := factory.Decode(kwargs, &c); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		base, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("path base must be a string, got %T", args[0])
		}
		c.Base = base
	}
	return NewPath(c.Base), nil
}

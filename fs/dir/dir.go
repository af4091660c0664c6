// Package dir walks a directory tree and removes entries matching name
// patterns. It backs the cache cleanup command.
package dir

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/option"
	"github.com/viant/afs/storage"

	"github.com/kilianp07/pyro/core/factory"
	"github.com/kilianp07/pyro/core/logger"
	inflogger "github.com/kilianp07/pyro/infra/logger"
)

// Type is the identifier of Dir in factory.Default.
const Type = factory.Root + ".fs.dir.Dir"

// VisitFunc is called for every entry matched by Search.
type VisitFunc func(ctx context.Context, obj storage.Object) error

// Dir is a directory tree rooted at Root.
type Dir struct {
	Root string
	fs   afs.Service
	log  logger.Logger
}

// New returns a Dir rooted at root ("." when empty).
func New(root string, log logger.Logger) *Dir {
	if root == "" {
		root = "."
	}
	if log == nil {
		log = logger.Nop{}
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Dir{Root: root, fs: afs.New(), log: log}
}

// Search lists the tree recursively and calls fn for every entry whose base
// name matches one of patterns. Entries below a matched directory are not
// visited. It returns the number of matches.
func (d *Dir) Search(ctx context.Context, patterns []string, fn VisitFunc) (int, error) {
	for _, p := range patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return 0, fmt.Errorf("pattern %q: %w", p, err)
		}
	}
	objects, err := d.fs.List(ctx, d.Root, option.NewRecursive(true))
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", d.Root, err)
	}
	var matchedDirs []string
	count := 0
	for i, obj := range objects {
		if i == 0 && obj.IsDir() && obj.Name() == filepath.Base(d.Root) {
			continue
		}
		if under(obj.URL(), matchedDirs) || !match(obj.Name(), patterns) {
			continue
		}
		count++
		if obj.IsDir() {
			matchedDirs = append(matchedDirs, strings.TrimRight(obj.URL(), "/"))
		}
		if fn == nil {
			continue
		}
		if err := fn(ctx, obj); err != nil {
			return count, err
		}
	}
	return count, nil
}

// Remove deletes the entry, recursively for directories.
func (d *Dir) Remove(ctx context.Context, obj storage.Object) error {
	if err := d.fs.Delete(ctx, obj.URL()); err != nil {
		return fmt.Errorf("remove %s: %w", obj.URL(), err)
	}
	d.log.Infof("removed %s", obj.URL())
	return nil
}

func match(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

func under(u string, dirs []string) bool {
	for _, d := range dirs {
		if strings.HasPrefix(u, d+"/") {
			return true
		}
	}
	return false
}

// Register adds the directory helper to reg as module + ".fs.dir.Dir".
func Register(reg *factory.Registry, module string) error {
	return factory.RegisterType(reg, factory.Join(module, "fs.dir.Dir"), newDir)
}

func init() {
	if err := Register(factory.Default, factory.Root); err != nil {
		panic(err)
	}
}

func newDir(args []any, kwargs map[string]any) (*Dir, error) {
	var c struct {
		Root string `json:"root"`
	}
	if err := factory.Decode(kwargs, &c); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		root, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("dir root must be a string, got %T", args[0])
		}
		c.Root = root
	}
	return New(c.Root, inflogger.New("dir")), nil
}

package factory

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/pyro/core/logger"
)

// Root is the dotted module name under which pyro registers its own types.
const Root = "pyro"

// Constructor builds an instance from positional and keyword arguments.
type Constructor func(args []any, kwargs map[string]any) (any, error)

// Type is a resolved, constructible type. Handles are shared: resolving the
// same identifier twice returns the same pointer.
type Type struct {
	ID      string
	Module  string
	Name    string
	Reflect reflect.Type
	New     Constructor
}

// ModuleLoader populates a module the first time it is imported.
type ModuleLoader func(m *Module) error

// Module groups the types registered under one dotted module path.
type Module struct {
	Path   string
	types  map[string]*Type
	loader  ModuleLoader
	loaded  bool
	loading chan struct{}
}

// Define adds a type to the module. It is meant to be called from a
// ModuleLoader; outside of one, use Registry.Register.
func (m *Module) Define(name string, rType reflect.Type, ctor Constructor) error {
	if name == "" || strings.Contains(name, ".") {
		return fmt.Errorf("invalid type name %q in module %s", name, m.Path)
	}
	if ctor == nil {
		return fmt.Errorf("constructor nil for %s", Join(m.Path, name))
	}
	if _, ok := builtins[name]; ok {
		return fmt.Errorf("%s is shadowed by the builtin %s", Join(m.Path, name), name)
	}
	if _, ok := m.types[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, Join(m.Path, name))
	}
	m.types[name] = &Type{ID: Join(m.Path, name), Module: m.Path, Name: name, Reflect: rType, New: ctor}
	return nil
}

// Registry maps dotted identifiers to constructors and memoizes resolutions.
// Cache entries are never evicted.
type Registry struct {
	mu       sync.RWMutex
	modules  map[string]*Module
	cache    map[string]*Type
	recorder Recorder
	log      logger.Logger
}

// Default is the process-wide registry used by the package level helpers.
var Default = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modules:  make(map[string]*Module),
		cache:    make(map[string]*Type),
		recorder: NopRecorder{},
		log:      logger.Nop{},
	}
}

// SetRecorder installs the sink notified of resolutions and creations.
func (r *Registry) SetRecorder(rec Recorder) {
	if rec == nil {
		rec = NopRecorder{}
	}
	r.mu.Lock()
	r.recorder = rec
	r.mu.Unlock()
}

// Recorder returns the installed sink.
func (r *Registry) Recorder() Recorder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recorder
}

// SetLogger installs the registry logger.
func (r *Registry) SetLogger(l logger.Logger) {
	if l == nil {
		l = logger.Nop{}
	}
	r.mu.Lock()
	r.log = l
	r.mu.Unlock()
}

// Register adds a constructor under the dotted identifier id.
func (r *Registry) Register(id string, ctor Constructor) error {
	return r.register(id, nil, ctor)
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(id string, ctor Constructor) {
	if err := r.Register(id, ctor); err != nil {
		panic(err)
	}
}

// RegisterType registers a typed constructor, recording the Go type it
// produces.
func RegisterType[T any](r *Registry, id string, ctor func(args []any, kwargs map[string]any) (T, error)) error {
	if ctor == nil {
		return fmt.Errorf("constructor nil for %s", id)
	}
	rType := reflect.TypeOf((*T)(nil)).Elem()
	return r.register(id, rType, func(args []any, kwargs map[string]any) (any, error) {
		return ctor(args, kwargs)
	})
}

// MustRegisterType panics if RegisterType fails.
func MustRegisterType[T any](r *Registry, id string, ctor func(args []any, kwargs map[string]any) (T, error)) {
	if err := RegisterType(r, id, ctor); err != nil {
		panic(err)
	}
}

func (r *Registry) register(id string, rType reflect.Type, ctor Constructor) error {
	path, name := Split(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[path]
	if !ok {
		m = &Module{Path: path, types: make(map[string]*Type), loaded: true}
		r.modules[path] = m
	}
	return m.Define(name, rType, ctor)
}

// RegisterModule declares a module whose types are defined by loader on first
// import. Types may also be registered eagerly under the same path.
func (r *Registry) RegisterModule(path string, loader ModuleLoader) error {
	if loader == nil {
		return fmt.Errorf("loader nil for module %s", path)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[path]
	if !ok {
		r.modules[path] = &Module{Path: path, types: make(map[string]*Type), loader: loader}
		return nil
	}
	if m.loader != nil {
		return fmt.Errorf("module loader already registered for %s", path)
	}
	m.loader = loader
	m.loaded = false
	return nil
}

// Resolve returns the type named by id. Builtin type names are returned
// directly; everything else goes through the cache and, on a miss, through
// the module table.
func (r *Registry) Resolve(id string) (*Type, error) {
	start := time.Now()
	path, name := Split(id)
	if t, ok := builtins[name]; ok {
		r.recordResolution(ResolutionEvent{ID: id, Result: ResultBuiltin, Duration: time.Since(start)})
		return t, nil
	}

	r.mu.RLock()
	t, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		r.recordResolution(ResolutionEvent{ID: id, Result: ResultHit, Duration: time.Since(start)})
		return t, nil
	}

	t, err := r.load(id, path, name)
	ev := ResolutionEvent{ID: id, Result: ResultMiss, Duration: time.Since(start), Err: err}
	if err != nil {
		ev.Result = ResultError
	}
	r.recordResolution(ev)
	return t, err
}

func (r *Registry) load(id, path, name string) (*Type, error) {
	for {
		r.mu.Lock()
		if t, ok := r.cache[id]; ok {
			r.mu.Unlock()
			return t, nil
		}
		m, ok := r.modules[path]
		if !ok {
			r.mu.Unlock()
			return nil, importFail(id, path, name, fmt.Errorf("no module named %q", path))
		}
		if m.loaded {
			t, ok := m.types[name]
			if !ok {
				r.mu.Unlock()
				return nil, typeFail(id, name)
			}
			r.cache[id] = t
			log := r.log
			r.mu.Unlock()
			log.Debugw("type resolved", map[string]any{"id": id, "module": path, "type": name})
			return t, nil
		}
		if m.loading != nil {
			wait := m.loading
			r.mu.Unlock()
			<-wait
			continue
		}
		err := r.importModule(m)
		r.mu.Unlock()
		if err != nil {
			return nil, importFail(id, path, name, err)
		}
	}
}

// importModule runs the module loader without holding the registry lock, so
// loaders may resolve types of other modules. It is entered and left with
// the write lock held. Concurrent importers of the same module wait on
// m.loading. A loader must not resolve types of its own module.
func (r *Registry) importModule(m *Module) error {
	done := make(chan struct{})
	m.loading = done
	staged := &Module{Path: m.Path, types: make(map[string]*Type, len(m.types))}
	for k, v := range m.types {
		staged.types[k] = v
	}
	loader := m.loader
	r.mu.Unlock()

	err := loader(staged)

	r.mu.Lock()
	m.loading = nil
	close(done)
	if err != nil {
		return err
	}
	// types registered eagerly while the loader ran
	for k, v := range m.types {
		if _, ok := staged.types[k]; !ok {
			staged.types[k] = v
		}
	}
	m.types = staged.types
	m.loaded = true
	r.log.Debugf("module %s imported with %d types", m.Path, len(m.types))
	return nil
}

// IDs returns the sorted identifiers of all eagerly registered or already
// imported types.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, m := range r.modules {
		for _, t := range m.types {
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Modules returns the sorted paths of all registered modules.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.modules))
	for p := range r.modules {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Cached returns the number of identifiers held in the resolution cache.
func (r *Registry) Cached() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Registry) recordResolution(ev ResolutionEvent) {
	r.mu.RLock()
	rec, log := r.recorder, r.log
	r.mu.RUnlock()
	if err := rec.RecordResolution(ev); err != nil {
		log.Warnf("record resolution %s: %v", ev.ID, err)
	}
}

func (r *Registry) recordCreation(ev CreationEvent) {
	r.mu.RLock()
	rec, log := r.recorder, r.log
	r.mu.RUnlock()
	if err := rec.RecordCreation(ev); err != nil {
		log.Warnf("record creation %s: %v", ev.ID, err)
	}
}

// Split separates a dotted identifier into its module path and type name.
// The module path is empty when id has no dot.
func Split(id string) (module, name string) {
	i := strings.LastIndexByte(id, '.')
	if i < 0 {
		return "", id
	}
	return id[:i], id[i+1:]
}

// Join appends the relative identifier name to the module path.
func Join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

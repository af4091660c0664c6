package factory

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/pyro/core/xdata"
)

type sample struct {
	Args   []any
	Kwargs map[string]any
}

func newSample(args []any, kwargs map[string]any) (any, error) {
	return &sample{Args: args, Kwargs: kwargs}, nil
}

type sampleConf struct {
	A int `json:"a"`
}

type countRecorder struct {
	mu        sync.Mutex
	results   map[string]int
	creations int
}

func (c *countRecorder) RecordResolution(ev ResolutionEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = map[string]int{}
	}
	c.results[ev.Result]++
	return nil
}

func (c *countRecorder) RecordCreation(CreationEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creations++
	return nil
}

func TestResolve_Builtin(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"int", "str", "dict", "some.pkg.list", "float"} {
		ty, err := reg.Resolve(id)
		require.NoError(t, err, id)
		_, name := Split(id)
		assert.Same(t, builtins[name], ty)
	}
	assert.Empty(t, reg.Modules(), "builtins must not touch modules")
	assert.Zero(t, reg.Cached())
}

func TestResolve_CachedIdentity(t *testing.T) {
	reg := NewRegistry()
	rec := &countRecorder{}
	reg.SetRecorder(rec)
	require.NoError(t, reg.Register("a.b.C", newSample))

	first, err := reg.Resolve("a.b.C")
	require.NoError(t, err)
	second, err := reg.Resolve("a.b.C")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "a.b", first.Module)
	assert.Equal(t, "C", first.Name)
	assert.Equal(t, 1, reg.Cached())
	assert.Equal(t, 1, rec.results[ResultMiss])
	assert.Equal(t, 1, rec.results[ResultHit])
}

func TestResolve_ImportFail(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Resolve("no.such.Thing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrImport))
	assert.False(t, errors.Is(err, ErrTypeNotFound))

	var xe *xdata.Error
	require.True(t, errors.As(err, &xe))
	assert.Equal(t, CodeImportFail, xe.Code)
	assert.Equal(t, "no.such", xe.Data.Detail["path"])
	assert.Equal(t, "Thing", xe.Data.Detail["T"])
	assert.Equal(t, "no.such.Thing", xe.Data.Detail["typeinfo"])
	assert.NotEmpty(t, xe.Data.Detail["suggest"])
}

func TestResolve_TypeNotFound(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("a.b.C", newSample))
	_, err := reg.Resolve("a.b.D")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeNotFound))
	assert.False(t, errors.Is(err, ErrImport))

	var xe *xdata.Error
	require.True(t, errors.As(err, &xe))
	assert.Equal(t, CodeTypeFail, xe.Code)
	assert.Equal(t, "D", xe.Data.Detail["type"])
	assert.Equal(t, "a.b.D", xe.Data.Detail["path"])
	assert.Zero(t, reg.Cached())
}

func TestResolve_LazyModule(t *testing.T) {
	reg := NewRegistry()
	loads := 0
	require.NoError(t, reg.RegisterModule("lazy.mod", func(m *Module) error {
		loads++
		return m.Define("T", nil, newSample)
	}))
	assert.Equal(t, 0, loads, "registration must not load")
	assert.Empty(t, reg.IDs())

	_, err := reg.Resolve("lazy.mod.T")
	require.NoError(t, err)
	_, err = reg.Resolve("lazy.mod.U")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeNotFound))
	assert.Equal(t, 1, loads)
	assert.Equal(t, []string{"lazy.mod.T"}, reg.IDs())
}

var errLoader = errors.New("broken module")

func TestResolve_LoaderFailure(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	require.NoError(t, reg.RegisterModule("bad", func(m *Module) error {
		calls++
		if err := m.Define("Half", nil, newSample); err != nil {
			return err
		}
		return errLoader
	}))
	_, err := reg.Resolve("bad.Half")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrImport))
	assert.True(t, errors.Is(err, errLoader))

	_, err = reg.Resolve("bad.Half")
	require.Error(t, err)
	assert.Equal(t, 2, calls, "failed imports are retried")
	assert.Empty(t, reg.IDs(), "partial definitions are discarded")
}

func TestResolve_LoaderResolvesDependency(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("dep.T", newSample))
	require.NoError(t, reg.RegisterModule("lazy.mod", func(m *Module) error {
		dep, err := reg.Resolve("dep.T")
		if err != nil {
			return err
		}
		return m.Define("T", nil, dep.New)
	}))

	done := make(chan error, 1)
	go func() {
		_, err := reg.Resolve("lazy.mod.T")
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("resolve did not return")
	}
	assert.Equal(t, 2, reg.Cached())
}

func TestResolve_ConcurrentImport(t *testing.T) {
	reg := NewRegistry()
	var loads atomic.Int32
	release := make(chan struct{})
	require.NoError(t, reg.RegisterModule("slow", func(m *Module) error {
		loads.Add(1)
		<-release
		return m.Define("T", nil, newSample)
	}))

	var wg sync.WaitGroup
	got := make([]*Type, 8)
	errs := make([]error, len(got))
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], errs[i] = reg.Resolve("slow.T")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for i := range got {
		require.NoError(t, errs[i])
		assert.Same(t, got[0], got[i])
	}
}

func TestRegister_Errors(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("x.Y", newSample))
	assert.ErrorIs(t, reg.Register("x.Y", newSample), ErrDuplicate)
	assert.Error(t, reg.Register("x.Z", nil), "nil constructor")
	assert.Error(t, reg.Register("x.int", newSample), "shadowed builtin")
	assert.Error(t, reg.Register("x.", newSample), "empty name")
	assert.Error(t, reg.RegisterModule("x", nil))
	require.NoError(t, reg.RegisterModule("x", func(*Module) error { return nil }))
	assert.Error(t, reg.RegisterModule("x", func(*Module) error { return nil }))
	assert.Panics(t, func() { reg.MustRegister("x.Y", newSample) })
}

func TestRegisterType(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterType(reg, "s.Conf", func(_ []any, kwargs map[string]any) (*sampleConf, error) {
		var c sampleConf
		if err := Decode(kwargs, &c); err != nil {
			return nil, err
		}
		return &c, nil
	}))
	ty, err := reg.Resolve("s.Conf")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(&sampleConf{}), ty.Reflect)

	f := reg.Factory("s.Conf", nil, map[string]any{"a": "3"})
	c, err := CreateAs[*sampleConf](f, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, c.A)

	_, err = CreateAs[string](f, nil, nil)
	assert.Error(t, err)
}

func TestResolve_Concurrent(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("c.T", newSample))
	var wg sync.WaitGroup
	got := make([]*Type, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = reg.Resolve("c.T")
		}(i)
	}
	wg.Wait()
	for _, ty := range got {
		assert.Same(t, got[0], ty)
	}
	assert.Equal(t, 1, reg.Cached())
}

func TestResolver_Lazy(t *testing.T) {
	reg := NewRegistry()
	r := reg.Resolver("later.T")
	require.NoError(t, reg.Register("later.T", newSample))
	ty, err := r.Type()
	require.NoError(t, err)
	assert.Equal(t, "later.T", ty.ID)
	assert.Same(t, reg, r.Registry())
}

func TestResolver_InvalidDescriptor(t *testing.T) {
	reg := NewRegistry()
	for _, info := range []any{42, nil, "", map[string]any{"type": 1}, (*Descriptor)(nil), Descriptor{}} {
		_, err := reg.Resolver(info).Type()
		require.Error(t, err, fmt.Sprintf("%v", info))
		assert.True(t, errors.Is(err, ErrInvalidDescriptor))
		var xe *xdata.Error
		require.True(t, errors.As(err, &xe))
		assert.Equal(t, "type-desc-invalid", xe.Data.Detail["reason"])
	}
}

func TestFactory_ArgumentMerging(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("m.S", newSample))
	stored := map[string]any{"x": 1}
	f := reg.Factory("m.S", []any{1, 2}, stored)

	obj, err := f.Create(nil, nil)
	require.NoError(t, err)
	s := obj.(*sample)
	assert.Equal(t, []any{1, 2}, s.Args)
	assert.Equal(t, map[string]any{"x": 1}, s.Kwargs)

	obj, err = f.Create([]any{9}, nil)
	require.NoError(t, err)
	s = obj.(*sample)
	assert.Equal(t, []any{9}, s.Args)
	assert.Equal(t, map[string]any{"x": 1}, s.Kwargs)

	obj, err = f.Create(nil, map[string]any{"y": 2})
	require.NoError(t, err)
	s = obj.(*sample)
	assert.Equal(t, []any{1, 2}, s.Args)
	assert.Equal(t, map[string]any{"x": 1, "y": 2}, s.Kwargs)

	obj, err = f.Create(nil, map[string]any{"x": 5})
	require.NoError(t, err)
	assert.Equal(t, 5, obj.(*sample).Kwargs["x"])

	assert.Equal(t, map[string]any{"x": 1}, stored)
	assert.Equal(t, map[string]any{"x": 1}, f.Kwargs())
	assert.Equal(t, []any{1, 2}, f.Args())
}

func TestFactory_Descriptors(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("m.S", newSample))

	cases := []struct {
		name       string
		conf       any
		args       []any
		kwargs     map[string]any
		wantArgs   []any
		wantKwargs map[string]any
	}{
		{"struct", Descriptor{Type: "m.S", Args: []any{1}, Kwargs: map[string]any{"k": "v"}}, nil, nil, []any{1}, map[string]any{"k": "v"}},
		{"pointer", &Descriptor{Type: "m.S", Args: []any{1}}, []any{2}, nil, []any{2}, map[string]any{}},
		{"map", map[string]any{"type": "m.S", "args": []any{"a"}, "kwargs": map[string]any{"k": 1}}, nil, map[string]any{"o": 2}, []any{"a"}, map[string]any{"o": 2}},
		{"string", "m.S", []any{3}, nil, []any{3}, map[string]any{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obj, err := reg.Factory(tc.conf, tc.args, tc.kwargs).Create(nil, nil)
			require.NoError(t, err)
			s := obj.(*sample)
			assert.Equal(t, tc.wantArgs, s.Args)
			assert.Equal(t, tc.wantKwargs, s.Kwargs)
		})
	}
}

var errCtor = errors.New("constructor failed")

func TestFactory_ConstructorErrorUnwrapped(t *testing.T) {
	reg := NewRegistry()
	rec := &countRecorder{}
	reg.SetRecorder(rec)
	require.NoError(t, reg.Register("e.Bad", func([]any, map[string]any) (any, error) {
		return nil, errCtor
	}))
	_, err := reg.Factory("e.Bad", nil, nil).Create(nil, nil)
	assert.Same(t, errCtor, err)
	assert.Equal(t, 1, rec.creations)
}

func TestFactory_Func(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("m.S", newSample))
	fn := reg.Factory("m.S", []any{1}, nil).Func()
	obj, err := fn(nil, map[string]any{"z": true})
	require.NoError(t, err)
	assert.Equal(t, []any{1}, obj.(*sample).Args)
	assert.Equal(t, true, obj.(*sample).Kwargs["z"])
}

func TestFactory_Builtins(t *testing.T) {
	reg := NewRegistry()
	checks := []struct {
		id     string
		args   []any
		kwargs map[string]any
		want   any
	}{
		{"int", nil, nil, 0},
		{"int", []any{"42"}, nil, 42},
		{"float", []any{"1.5"}, nil, 1.5},
		{"str", []any{7}, nil, "7"},
		{"bool", []any{"true"}, nil, true},
		{"bytes", []any{"hi"}, nil, []byte("hi")},
		{"list", []any{[]string{"a", "b"}}, nil, []any{"a", "b"}},
		{"dict", nil, map[string]any{"a": 1}, map[string]any{"a": 1}},
		{"dict", []any{map[string]any{"a": 1}}, map[string]any{"b": 2}, map[string]any{"a": 1, "b": 2}},
	}
	for _, c := range checks {
		got, err := reg.Factory(c.id, c.args, c.kwargs).Create(nil, nil)
		require.NoError(t, err, c.id)
		assert.Equal(t, c.want, got, c.id)
	}
	_, err := reg.Factory("int", []any{1, 2}, nil).Create(nil, nil)
	assert.Error(t, err)
	_, err = reg.Factory("list", []any{3}, nil).Create(nil, nil)
	assert.Error(t, err)
	_, err = reg.Factory("int", nil, map[string]any{"base": 16}).Create(nil, nil)
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	var c sampleConf
	require.NoError(t, Decode(map[string]any{"a": 3}, &c))
	assert.Equal(t, 3, c.A)
}

func TestSplit(t *testing.T) {
	m, n := Split("a.b.C")
	assert.Equal(t, "a.b", m)
	assert.Equal(t, "C", n)
	m, n = Split("C")
	assert.Equal(t, "", m)
	assert.Equal(t, "C", n)
	assert.True(t, IsBuiltin("dict"))
	assert.False(t, IsBuiltin("Dict"))
}

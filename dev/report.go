package dev

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/pyro/core/base"
	"github.com/kilianp07/pyro/core/factory"
	"github.com/kilianp07/pyro/core/xdata"
	fsconfig "github.com/kilianp07/pyro/fs/config"
	"github.com/kilianp07/pyro/infra/metrics"
)

// Check is a single self-test step.
type Check struct {
	Name string
	Run  func(ctx context.Context, b *base.Base) error
}

// Checks are the steps run by Report, in order.
var Checks = []Check{
	{"builtins", checkBuiltins},
	{"registered types", checkRegistered},
	{"argument merging", checkMerging},
	{"descriptor file", checkDescriptorFile},
	{"diagnostic context", checkContext},
}

// Report runs every check against b and writes one line per check to w,
// followed by the resolution counters gathered while the checks ran. The
// returned error joins the failures.
func Report(ctx context.Context, w io.Writer, b *base.Base) error {
	promReg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(promReg)
	if err != nil {
		return err
	}
	reg := b.Registry()
	prev := reg.Recorder()
	reg.SetRecorder(metrics.NewMultiSink(prev, sink))
	defer reg.SetRecorder(prev)

	var errs []error
	for _, c := range Checks {
		if err := c.Run(ctx, b); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			fmt.Fprintf(w, "FAIL %-20s %v\n", c.Name, err)
			continue
		}
		fmt.Fprintf(w, "ok   %s\n", c.Name)
	}

	families, err := promReg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if mf.GetName() != "pyro_factory_resolutions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				fmt.Fprintf(w, "     resolutions %s=%s: %.0f\n", l.GetName(), l.GetValue(), m.GetCounter().GetValue())
			}
		}
	}
	fmt.Fprintf(w, "     cached types: %d\n", reg.Cached())
	return errors.Join(errs...)
}

func checkBuiltins(_ context.Context, b *base.Base) error {
	for _, name := range []string{"bool", "int", "float", "str", "list", "dict"} {
		t, err := b.Registry().Resolve(b.InnerPath(name))
		if err != nil {
			return err
		}
		if t.Name != name {
			return fmt.Errorf("%s resolved to %s", name, t.Name)
		}
	}
	return nil
}

func checkRegistered(_ context.Context, b *base.Base) error {
	reg := b.Registry()
	for _, id := range reg.IDs() {
		first, err := reg.Resolve(id)
		if err != nil {
			return err
		}
		again, err := reg.Resolve(id)
		if err != nil {
			return err
		}
		if first != again {
			return fmt.Errorf("%s: cache returned a different handle", id)
		}
	}
	return nil
}

func checkMerging(_ context.Context, b *base.Base) error {
	stored := map[string]any{"x": 1}
	f := b.Registry().Factory(b.InnerPath("dict"), nil, stored)
	got, err := f.Create(nil, map[string]any{"y": 2})
	if err != nil {
		return err
	}
	want := map[string]any{"x": 1, "y": 2}
	if !reflect.DeepEqual(got, want) {
		return fmt.Errorf("got %v, want %v", got, want)
	}
	if len(stored) != 1 {
		return fmt.Errorf("stored kwargs modified: %v", stored)
	}
	return nil
}

func checkDescriptorFile(ctx context.Context, b *base.Base) error {
	dir, err := os.MkdirTemp("", "pyro-test-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "descriptor.yaml")
	desc := factory.Descriptor{Type: b.InnerPath("list"), Args: []any{[]any{"a", "b"}}}
	if err := fsconfig.Save(ctx, path, desc); err != nil {
		return err
	}
	got, err := b.Create(ctx, path, nil, nil)
	if err != nil {
		return err
	}
	if !reflect.DeepEqual(got, []any{"a", "b"}) {
		return fmt.Errorf("got %v", got)
	}
	return nil
}

func checkContext(context.Context, *base.Base) error {
	d := xdata.Build(nil, nil, "check", "context")
	if _, ok := d.Detail[xdata.KeyTime]; !ok || d.Prior != nil {
		return fmt.Errorf("unexpected context %+v", d)
	}
	d = xdata.Build(errors.New("prior"), nil)
	if d.Prior == nil || len(d.Prior.Args) != 1 {
		return fmt.Errorf("prior not recorded: %+v", d)
	}
	return nil
}

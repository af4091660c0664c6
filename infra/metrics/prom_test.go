package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/pyro/core/factory"
	inflogger "github.com/kilianp07/pyro/infra/logger"
)

func TestPromSink_RegistryEvents(t *testing.T) {
	promReg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(promReg)
	require.NoError(t, err)

	reg := factory.NewRegistry()
	reg.SetRecorder(sink)
	require.NoError(t, reg.Register("m.T", func([]any, map[string]any) (any, error) { return 1, nil }))

	f := reg.Factory("m.T", nil, nil)
	_, err = f.Create(nil, nil)
	require.NoError(t, err)
	_, err = reg.Resolve("m.T")
	require.NoError(t, err)
	_, err = reg.Resolve("int")
	require.NoError(t, err)
	_, err = reg.Resolve("m.Missing")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.resolutions.WithLabelValues(factory.ResultMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.resolutions.WithLabelValues(factory.ResultHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.resolutions.WithLabelValues(factory.ResultBuiltin)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.resolutions.WithLabelValues(factory.ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.creations.WithLabelValues("m.T", "true")))
}

func TestPromSink_AlreadyRegistered(t *testing.T) {
	promReg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(promReg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(promReg)
	require.NoError(t, err)
	assert.Same(t, a.resolutions, b.resolutions)
}

func TestNewRecorder(t *testing.T) {
	r, err := NewRecorder(factory.Default, nil)
	require.NoError(t, err)
	assert.IsType(t, factory.NopRecorder{}, r)

	r, err = NewRecorder(factory.Default, []factory.Descriptor{{Type: NopSinkType}})
	require.NoError(t, err)
	assert.IsType(t, factory.NopRecorder{}, r)

	r, err = NewRecorder(factory.Default, []factory.Descriptor{
		{Type: PromSinkType, Args: []any{prometheus.NewRegistry()}},
		{Type: LogSinkType, Kwargs: map[string]any{"component": "test"}},
	})
	require.NoError(t, err)
	m, ok := r.(*MultiSink)
	require.True(t, ok)
	assert.Len(t, m.Sinks, 2)

	_, err = NewRecorder(factory.Default, []factory.Descriptor{{Type: "int"}})
	assert.Error(t, err)
	_, err = NewRecorder(factory.Default, []factory.Descriptor{{Type: PromSinkType, Args: []any{"x"}}})
	assert.Error(t, err)
}

var errBoom = errors.New("boom")

func TestLogSink(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer zerolog.SetGlobalLevel(prev)

	var buf bytes.Buffer
	s := NewLogSink(inflogger.NewWithWriter("factory", &buf))
	require.NoError(t, s.RecordResolution(factory.ResolutionEvent{ID: "a.B", Result: factory.ResultError, Err: errBoom}))
	require.NoError(t, s.RecordCreation(factory.CreationEvent{ID: "a.B", Err: errBoom}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var res, cre map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &res))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &cre))

	assert.Equal(t, "resolution", res["message"])
	assert.Equal(t, "a.B", res["id"])
	assert.Equal(t, factory.ResultError, res["result"])
	assert.Equal(t, errBoom.Error(), res["err"])
	assert.Equal(t, "debug", res["level"])

	assert.Equal(t, "creation", cre["message"])
	assert.Equal(t, "a.B", cre["id"])
	assert.Equal(t, errBoom.Error(), cre["err"])

	assert.NotNil(t, NewLogSink(nil))
}

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "unexpected data type %T", m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestObserverRecordsMetrics(t *testing.T) {
	reader, mp := newTestMeter()
	obs, err := NewObserver(mp.Meter("test"), noop.NewTracerProvider().Tracer("test"))
	require.NoError(t, err)

	_, done := obs.StartDiscovery(context.Background(), "fs")
	done(3, nil)
	_, done = obs.StartDiscovery(context.Background(), "broken")
	done(0, errors.New("boom"))

	_, finish := obs.StartInvocation(context.Background(), "read", "fs", "call-1")
	finish(nil)
	_, finish = obs.StartInvocation(context.Background(), "read", "fs", "call-2")
	finish(errors.New("failed"))

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "toolbridge.discovery.servers")))
	assert.Equal(t, int64(3), sumOf(t, findMetric(rm, "toolbridge.discovery.tools")))
	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "toolbridge.tool.invocations")))

	latency := findMetric(rm, "toolbridge.tool.latency")
	require.NotNil(t, latency)
	_, ok := latency.Data.(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestObserverRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, mp := newTestMeter()

	obs, err := NewObserver(mp.Meter("test"), tp.Tracer("test"))
	require.NoError(t, err)

	_, done := obs.StartDiscovery(context.Background(), "fs")
	done(1, nil)
	_, finish := obs.StartInvocation(context.Background(), "read", "fs", "call-1")
	finish(errors.New("failed"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "discovery.server", spans[0].Name())
	assert.Equal(t, "tool.invoke", spans[1].Name())
	assert.Equal(t, "Error", spans[1].Status().Code.String())
}

func TestNilObserverIsNoop(t *testing.T) {
	var obs *Observer
	ctx := context.Background()

	gotCtx, done := obs.StartDiscovery(ctx, "fs")
	assert.Equal(t, ctx, gotCtx)
	done(1, nil)

	gotCtx, finish := obs.StartInvocation(ctx, "t", "s", "id")
	assert.Equal(t, ctx, gotCtx)
	finish(nil)
}

func TestSetupWithoutEndpoint(t *testing.T) {
	t.Setenv(EnvEndpoint, "")
	shutdown, err := Setup(context.Background(), "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

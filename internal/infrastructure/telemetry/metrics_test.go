package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func TestCounterAndHistogram(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	counter, err := NewCounter(meter, "requests_total", "requests", "{request}")
	require.NoError(t, err)
	hist, err := NewHistogram(meter, HistogramOpts{Name: "request_duration", Unit: "s", Boundaries: []float64{0.1, 1}})
	require.NoError(t, err)

	ctx := context.Background()
	counter.Inc(ctx, AttrOutcome.String("ok"))
	counter.Add(ctx, 2, AttrOutcome.String("ok"))
	hist.RecordDuration(ctx, 300*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	sum := byName["requests_total"].Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	h := byName["request_duration"].Data.(metricdata.Histogram[float64])
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, uint64(1), h.DataPoints[0].Count)
	assert.InDelta(t, 0.3, h.DataPoints[0].Sum, 1e-9)
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(context.Background()))

	var nilProvider *MeterProvider
	assert.NotNil(t, nilProvider.Meter("x"))
}

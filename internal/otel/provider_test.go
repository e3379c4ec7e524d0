package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Nil(t, p.MeterProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("x"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_NoSinks(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "test"})
	assert.Error(t, err)
}

func TestNew_Metrics(t *testing.T) {
	prev := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	var logs, metrics bytes.Buffer
	p, err := New(Config{
		Enabled:         true,
		ServiceName:     "flightctl-test",
		BatchTimeout:    time.Second,
		LogWriter:       &logs,
		MetricWriter:    &metrics,
		MetricsInterval: time.Hour,
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())
	require.NotNil(t, p.MeterProvider())

	counter, err := otel.Meter("test").Int64Counter("scenario.ticks")
	require.NoError(t, err)
	counter.Add(context.Background(), 7)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, metrics.String(), "scenario.ticks")
	assert.NoError(t, p.Shutdown(context.Background()))
}

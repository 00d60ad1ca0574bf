package tracing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"

	"github.com/Notifuse/designer/config"
	"github.com/Notifuse/designer/pkg/logger"
)

var registerOnce sync.Once

func registerViews(t *testing.T) {
	t.Helper()
	registerOnce.Do(func() {
		require.NoError(t, RegisterViews())
	})
}

func countFor(t *testing.T, viewName string, tagValue string) int64 {
	t.Helper()
	rows, err := view.RetrieveData(viewName)
	require.NoError(t, err)
	var total int64
	for _, row := range rows {
		for _, tg := range row.Tags {
			if tg.Value == tagValue {
				if data, ok := row.Data.(*view.CountData); ok {
					total += data.Value
				}
			}
		}
	}
	return total
}

func TestInit_Disabled(t *testing.T) {
	p, err := Init(&config.TracingConfig{Enabled: false}, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Nil(t, p.MetricsHandler())
	p.Shutdown()

	p, err = Init(nil, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestInit_UnsupportedExporters(t *testing.T) {
	_, err := Init(&config.TracingConfig{Enabled: true, TraceExporter: "azure", SamplingProbability: 1}, logger.NewTestLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter: azure")

	_, err = Init(&config.TracingConfig{Enabled: true, TraceExporter: "none", MetricsExporter: "statsd"}, logger.NewTestLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported metrics exporter: statsd")
}

func TestInit_MissingSettings(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.TracingConfig
		expected string
	}{
		{name: "jaeger", cfg: config.TracingConfig{TraceExporter: "jaeger"}, expected: "jaeger endpoint is required"},
		{name: "zipkin", cfg: config.TracingConfig{TraceExporter: "zipkin"}, expected: "zipkin endpoint is required"},
		{name: "stackdriver", cfg: config.TracingConfig{TraceExporter: "stackdriver"}, expected: "stackdriver project id is required"},
		{name: "datadog", cfg: config.TracingConfig{TraceExporter: "datadog"}, expected: "datadog agent address is required"},
		{name: "xray", cfg: config.TracingConfig{TraceExporter: "xray"}, expected: "aws region is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Enabled = true
			_, err := Init(&tt.cfg, logger.NewTestLogger(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expected)
		})
	}
}

func TestInit_Zipkin(t *testing.T) {
	p, err := Init(&config.TracingConfig{
		Enabled:             true,
		ServiceName:         "designer-test",
		SamplingProbability: 1,
		TraceExporter:       "zipkin",
		ZipkinEndpoint:      "http://127.0.0.1:1/api/v2/spans",
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.NotPanics(t, p.Shutdown)
}

func TestRecordMetrics(t *testing.T) {
	registerViews(t)
	ctx := context.Background()

	before := countFor(t, ExportCountView.Name, "mjml")
	RecordExport(ctx, "mjml", 12*time.Millisecond, nil)
	RecordExport(ctx, "mjml", 3*time.Millisecond, errors.New("compile failed"))
	assert.Equal(t, before+2, countFor(t, ExportCountView.Name, "mjml"))

	beforeOps := countFor(t, EditorOpsView.Name, "duplicate")
	RecordEditorOperation(ctx, "duplicate")
	assert.Equal(t, beforeOps+1, countFor(t, EditorOpsView.Name, "duplicate"))

	beforeSaves := countFor(t, AutoSaveView.Name, "error")
	RecordAutoSave(ctx, errors.New("db down"))
	assert.Equal(t, beforeSaves+1, countFor(t, AutoSaveView.Name, "error"))
}

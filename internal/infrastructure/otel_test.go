package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.Nil(t, providers.TracerProvider, "tracing is off by default")
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		cfg     OTelConfig
		wantErr bool
		check   func(*testing.T, *OTelProviders)
	}{
		{
			name: "everything disabled",
			cfg:  OTelConfig{ServiceName: ServiceName, TraceExporter: "none", MetricExporter: "none"},
			check: func(t *testing.T, p *OTelProviders) {
				assert.Nil(t, p.MeterProvider)
				assert.Nil(t, p.PrometheusHTTP)
				assert.NotNil(t, p.Meter, "no-op meter")
			},
		},
		{
			name: "stdout tracing",
			cfg:  OTelConfig{ServiceName: ServiceName, TraceExporter: "stdout", MetricExporter: "none", SampleRatio: 1},
			check: func(t *testing.T, p *OTelProviders) {
				assert.NotNil(t, p.TracerProvider)
			},
		},
		{
			name:    "unknown trace exporter",
			cfg:     OTelConfig{TraceExporter: "zipkin"},
			wantErr: true,
		},
		{
			name:    "unknown metric exporter",
			cfg:     OTelConfig{MetricExporter: "statsd"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			p, err := InitializeOTel(&cfg, quietLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer p.Shutdown(context.Background())
			tt.check(t, p)
		})
	}
}

func TestConverterMetricsOnPrometheus(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	m, err := NewConverterMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	m.ExtractionsTotal.Add(ctx, 2, metric.WithAttributes(attribute.String("strategy", "auto")))
	m.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", "xlsx")))
	m.RecordStage(ctx, "extract", domain.NewSchemaMissingError("infer", "no columns"))
	m.RecordStage(ctx, "extract", nil)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "extractions_total")
	assert.Contains(t, body, `strategy="auto"`)
	assert.Contains(t, body, "exports_total")
	assert.Contains(t, body, `error_type="schema_missing"`)
}

func TestNewConverterMetricsWithoutMeter(t *testing.T) {
	m, err := NewConverterMetrics(nil)
	require.NoError(t, err)
	m.TableEditsTotal.Add(context.Background(), 1)

	var nilMetrics *ConverterMetrics
	nilMetrics.RecordStage(context.Background(), "export", errors.New("boom"))
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "malformed_input", errorType(domain.NewMalformedInputError("parse", "bad")))
	assert.Equal(t, "internal", errorType(errors.New("plain")))
}

func TestTraceIDFromContext(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))

	cfg := OTelConfig{ServiceName: ServiceName, TraceExporter: "stdout", MetricExporter: "none", SampleRatio: 1}
	providers, err := InitializeOTel(&cfg, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := providers.Tracer.Start(context.Background(), "test")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), TraceIDFromContext(ctx))
	AddSpanEvent(ctx, "checkpoint", attribute.Int("rows", 3))
	RecordError(ctx, errors.New("boom"))
}

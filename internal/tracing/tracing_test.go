package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if provider.IsEnabled() {
		t.Error("IsEnabled() = true")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if provider.Tracer("x") == nil {
		t.Error("Tracer() = nil, want fallback tracer")
	}
}

func TestNewProvider_Validation(t *testing.T) {
	if _, err := NewProvider(Config{Enabled: true}); err == nil {
		t.Error("expected error for missing service name")
	}
	if _, err := NewProvider(Config{Enabled: true, ServiceName: "insights", SamplingRate: 1.5}); err == nil {
		t.Error("expected error for out-of-range sampling rate")
	}
	if _, err := NewProvider(Config{Enabled: true, ServiceName: "insights", ExporterType: "jaeger"}); err == nil {
		t.Error("expected error for unsupported exporter")
	}
}

func TestStartSpan_RecordsError(t *testing.T) {
	recorder := withRecorder(t)

	_, end := StartSpan(context.Background(), "analytics.query")
	end(errors.New("boom"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "analytics.query" {
		t.Errorf("Name() = %q", span.Name())
	}
	if span.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", span.Status())
	}
}

func TestStartWarehouseSpan_Attributes(t *testing.T) {
	recorder := withRecorder(t)

	_, end := StartWarehouseSpan(context.Background())
	end(nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	attrs := spans[0].Attributes()
	found := false
	for _, a := range attrs {
		if a.Key == attribute.Key("db.system") && a.Value.AsString() == "bigquery" {
			found = true
		}
	}
	if !found {
		t.Errorf("db.system=bigquery attribute missing: %v", attrs)
	}
	if spans[0].Status().Code == codes.Error {
		t.Error("successful span must not carry error status")
	}
}

func TestStartDBSpan_Name(t *testing.T) {
	recorder := withRecorder(t)

	_, end := StartDBSpan(context.Background(), "app_access_grants", "query")
	end(nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "query app_access_grants" {
		t.Errorf("Name() = %q", spans[0].Name())
	}
}

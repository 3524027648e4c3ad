package tracing

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestKafkaHeadersRoundTrip(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	headers := InjectKafkaHeaders(ctx, []kafka.Header{{Key: "event_type", Value: []byte("orderCreated")}})
	if HeaderValue(headers, TraceparentHeader) == "" {
		t.Fatal("expected traceparent header to be injected")
	}
	if got := HeaderValue(headers, "event_type"); got != "orderCreated" {
		t.Errorf("expected event_type to be kept, got %q", got)
	}

	extracted := trace.SpanContextFromContext(ExtractKafkaHeaders(context.Background(), headers))
	if extracted.TraceID() != span.SpanContext().TraceID() {
		t.Errorf("expected trace id %s, got %s", span.SpanContext().TraceID(), extracted.TraceID())
	}
	if Traceparent(ctx) == "" {
		t.Error("expected Traceparent to return the active span")
	}
}

func TestTraceparentWithoutSpan(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	if got := Traceparent(context.Background()); got != "" {
		t.Errorf("expected empty traceparent, got %q", got)
	}
}

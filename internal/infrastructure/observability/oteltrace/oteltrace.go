package oteltrace

import (
	"context"

	"github.com/freshfields/bulkorder/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New wraps the globally configured otel tracer. An SDK TracerProvider and
// exporter must be installed via otel.SetTracerProvider for spans to be
// exported; otherwise spans are no-ops.
func New(name string) observability.Tracer {
	if name == "" {
		name = "bulkorder"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}

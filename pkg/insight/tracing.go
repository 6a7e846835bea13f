package insight

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the name of the tracer for insight operations.
const TracerName = "roundtable.insight"

// Span attribute keys.
const (
	attrType        = "insight_type"
	attrEndpoint    = "endpoint"
	attrEntryCount  = "transcript_entries"
	attrTriggeredBy = "triggered_by"
)

// Tracer wraps the otel tracer for insight dispatch spans.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates an insight tracer. With no SDK configured the global
// provider is a no-op, so this is always safe to use.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// StartDispatch starts a span covering one insight request end to end.
func (t *Tracer) StartDispatch(ctx context.Context, typ Type, entryCount int, triggeredBy string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "insight.dispatch",
		trace.WithAttributes(
			attribute.String(attrType, string(typ)),
			attribute.Int(attrEntryCount, entryCount),
			attribute.String(attrTriggeredBy, triggeredBy),
		),
	)
}

// StartCall starts a child span for one endpoint call.
func (t *Tracer) StartCall(ctx context.Context, endpoint string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "insight.call",
		trace.WithAttributes(attribute.String(attrEndpoint, endpoint)),
	)
}

// EndWithError records err on the span and ends it.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

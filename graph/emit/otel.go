package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter bridges engine events to OpenTelemetry.
//
// Each event becomes a short-lived span named after the event message, with
// run ID, step, and node ID attached as attributes. Meta values are stringified
// under the "meta." prefix. This is event-level tracing, not request-scoped
// span propagation; it is enough to line run activity up against other traces
// in the same backend.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an emitter that records events on the given tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit implements Emitter.
func (o *OTelEmitter) Emit(event Event) {
	if o.tracer == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("workflow.run_id", event.RunID),
		attribute.Int("workflow.step", event.Step),
		attribute.String("workflow.node_id", event.NodeID),
	}
	for k, v := range event.Meta {
		attrs = append(attrs, attribute.String("meta."+k, fmt.Sprint(v)))
	}

	_, span := o.tracer.Start(context.Background(), event.Msg, trace.WithAttributes(attrs...))
	span.End()
}

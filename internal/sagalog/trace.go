package sagalog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// TraceInfo holds the OTel identifiers extracted from a context.
type TraceInfo struct {
	// TraceID is the W3C trace ID (32 lowercase hex chars).
	// Empty string if no active span is found in the context.
	TraceID string

	// SpanID is the W3C span ID (16 lowercase hex chars).
	SpanID string
}

// ExtractTraceInfo reads the active OpenTelemetry span from ctx and returns
// its trace_id and span_id as hex strings. If the context carries no active
// span (e.g. in unit tests), both fields come back empty and the entry is
// still written.
func ExtractTraceInfo(ctx context.Context) TraceInfo {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return TraceInfo{}
	}
	return TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

// NewEntrada builds an Entrada with the trace info automatically extracted
// from ctx.
//
// Usage in the orchestrator:
//
//	entrada := sagalog.NewEntrada(ctx, pedidoID, "INVENTARIO_RESERVADO", "INVENTORY_RESERVED", "")
//	_ = repo.Append(ctx, entrada)
func NewEntrada(ctx context.Context, sagaID, estado, causa, detalle string) *Entrada {
	ti := ExtractTraceInfo(ctx)
	return &Entrada{
		SagaID:    sagaID,
		Estado:    estado,
		Causa:     causa,
		Detalle:   detalle,
		TraceID:   ti.TraceID,
		SpanID:    ti.SpanID,
		UpdatedAt: time.Now().UTC(),
	}
}

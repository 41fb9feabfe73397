// Package sagalog defines the domain types for the saga transition log.
//
// The log is a durable audit trail of every state transition a saga goes
// through. It serves two purposes:
//
//  1. Observability: the table shows exactly where a saga is (or was) and
//     correlates it with a distributed trace via the trace_id field.
//
//  2. Replay: the orchestrator's live projection is derivable from this log;
//     on restart the entries show which sagas were in flight.
package sagalog

import "time"

// Entrada is a single row in the saga_transiciones table.
// It captures a point-in-time snapshot of a saga execution; rows are
// append-only and never updated.
type Entrada struct {
	// SagaID is the unique identifier for this saga execution, which is the
	// pedido ID so the log can be joined with business data.
	SagaID string

	// Estado is the pedido state after the transition committed.
	Estado string

	// Causa is the event type that caused the transition
	// (e.g. "INVENTORY_RESERVED"), or "SAGA_STARTED" for the first row.
	Causa string

	// Detalle carries optional free-form context, such as a failure reason.
	Detalle string

	// TraceID is the W3C trace ID extracted from the OpenTelemetry span that
	// was active when this entry was written. Allows jumping from a saga row
	// directly to the full distributed trace.
	TraceID string

	// SpanID pinpoints the exact span within the trace.
	SpanID string

	// UpdatedAt is the wall-clock time of this entry.
	UpdatedAt time.Time
}

package sagalog

import "context"

// Repository is the port for persisting saga transition entries.
// The orchestrator depends on this abstraction, not on SQLite directly,
// so the implementation can be swapped for Postgres, in-memory (tests), etc.
type Repository interface {
	// Append persists a new entry. Each call appends a row; the table is an
	// append-only audit log, not an upsert.
	Append(ctx context.Context, entrada *Entrada) error
}

// Package sqlite provides a SQLite-backed implementation of sagalog.Repository.
//
// WAL mode is enabled on Open so that readers never block writers and vice
// versa: the orchestrator writes transition rows while a status endpoint or
// an operator query may be reading.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arkalabs/order-sagas/internal/sagalog"

	// Register the pure-Go SQLite driver.
	// modernc.org/sqlite avoids CGO, which keeps Docker/Alpine builds simple.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup.
// The table is append-only: each row is an immutable transition in the
// saga's lifecycle. The latest row per saga_id is its current state.
const schema = `
CREATE TABLE IF NOT EXISTS saga_transiciones (
    -- Surrogate primary key, auto-incremented by SQLite.
    id          INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Business identifier: the pedido ID. Not UNIQUE, one row per transition.
    saga_id     TEXT        NOT NULL,

    -- Pedido state after the transition committed (e.g. "INVENTARIO_RESERVADO").
    estado      TEXT        NOT NULL,

    -- Event type that caused the transition (e.g. "INVENTORY_RESERVED").
    causa       TEXT        NOT NULL DEFAULT '',

    -- Optional free-form context, such as a failure reason.
    detalle     TEXT        NOT NULL DEFAULT '',

    -- W3C trace_id (32 hex chars) from the active OTel span.
    trace_id    TEXT        NOT NULL DEFAULT '',

    -- W3C span_id (16 hex chars), pinpoints the exact span within the trace.
    span_id     TEXT        NOT NULL DEFAULT '',

    -- Wall-clock timestamp (RFC3339 stored as TEXT, SQLite idiom).
    updated_at  TEXT        NOT NULL
);

-- The most common query: "all transitions for saga X in order".
CREATE INDEX IF NOT EXISTS idx_saga_transiciones_saga_id ON saga_transiciones(saga_id, updated_at);

-- The observability query: "find the saga for trace Y".
CREATE INDEX IF NOT EXISTS idx_saga_transiciones_trace_id ON saga_transiciones(trace_id);
`

// Repository is the SQLite implementation of sagalog.Repository.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies
// the schema.
//
//	repo, err := sqlite.Open("./data/saga.db")
func Open(path string) (*Repository, error) {
	// The pure-Go driver takes _pragma query parameters. WAL enables
	// concurrent readers; busy_timeout waits for locks instead of failing.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (r *Repository) Close() error {
	return r.db.Close()
}

// Append inserts a new transition row. Safe to call concurrently.
func (r *Repository) Append(ctx context.Context, entrada *sagalog.Entrada) error {
	const q = `
		INSERT INTO saga_transiciones
			(saga_id, estado, causa, detalle, trace_id, span_id, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entrada.SagaID,
		entrada.Estado,
		entrada.Causa,
		entrada.Detalle,
		entrada.TraceID,
		entrada.SpanID,
		entrada.UpdatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z"),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append transicion de %q: %w", entrada.SagaID, err)
	}
	return nil
}

// GetLatest returns the most recent transition for a given saga ID.
// Useful for a status endpoint or for inspecting in-flight sagas on restart.
func (r *Repository) GetLatest(ctx context.Context, sagaID string) (*sagalog.Entrada, error) {
	const q = `
		SELECT saga_id, estado, causa, detalle, trace_id, span_id, updated_at
		FROM   saga_transiciones
		WHERE  saga_id = ?
		ORDER  BY updated_at DESC, id DESC
		LIMIT  1`

	row := r.db.QueryRowContext(ctx, q, sagaID)

	var entrada sagalog.Entrada
	var updatedAt string
	err := row.Scan(
		&entrada.SagaID,
		&entrada.Estado,
		&entrada.Causa,
		&entrada.Detalle,
		&entrada.TraceID,
		&entrada.SpanID,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: saga %q sin transiciones", sagaID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get latest de %q: %w", sagaID, err)
	}

	entrada.UpdatedAt, err = parseRFC3339(updatedAt)
	if err != nil {
		return nil, err
	}
	return &entrada, nil
}

// ListBySaga returns every transition for a saga, oldest first.
func (r *Repository) ListBySaga(ctx context.Context, sagaID string) ([]*sagalog.Entrada, error) {
	const q = `
		SELECT saga_id, estado, causa, detalle, trace_id, span_id, updated_at
		FROM   saga_transiciones
		WHERE  saga_id = ?
		ORDER  BY updated_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, sagaID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list de %q: %w", sagaID, err)
	}
	defer rows.Close()

	var out []*sagalog.Entrada
	for rows.Next() {
		var entrada sagalog.Entrada
		var updatedAt string
		if err := rows.Scan(
			&entrada.SagaID,
			&entrada.Estado,
			&entrada.Causa,
			&entrada.Detalle,
			&entrada.TraceID,
			&entrada.SpanID,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan de %q: %w", sagaID, err)
		}
		entrada.UpdatedAt, err = parseRFC3339(updatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, &entrada)
	}
	return out, rows.Err()
}

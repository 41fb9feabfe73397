package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkalabs/order-sagas/internal/sagalog"
)

func abrirRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "saga.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func entrada(sagaID, estado, causa string, at time.Time) *sagalog.Entrada {
	return &sagalog.Entrada{
		SagaID:    sagaID,
		Estado:    estado,
		Causa:     causa,
		UpdatedAt: at,
	}
}

func TestRepository_AppendYGetLatest(t *testing.T) {
	repo := abrirRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, entrada("p1", "CREADO", "SAGA_STARTED", base)))
	require.NoError(t, repo.Append(ctx, entrada("p1", "INVENTARIO_RESERVADO", "INVENTORY_RESERVED", base.Add(time.Second))))
	require.NoError(t, repo.Append(ctx, entrada("p2", "CREADO", "SAGA_STARTED", base)))

	ultimo, err := repo.GetLatest(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "INVENTARIO_RESERVADO", ultimo.Estado)
	assert.Equal(t, "INVENTORY_RESERVED", ultimo.Causa)
	assert.True(t, ultimo.UpdatedAt.Equal(base.Add(time.Second)))
}

func TestRepository_GetLatest_SinTransiciones(t *testing.T) {
	repo := abrirRepo(t)
	_, err := repo.GetLatest(context.Background(), "no-such-saga")
	require.Error(t, err)
}

func TestRepository_ListBySaga(t *testing.T) {
	repo := abrirRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	estados := []string{"CREADO", "INVENTARIO_RESERVADO", "ENVIO_GENERADO", "NOTIFICACION_ENVIADA", "COMPLETADO"}
	for i, e := range estados {
		require.NoError(t, repo.Append(ctx, entrada("p1", e, "", base.Add(time.Duration(i)*time.Second))))
	}

	lista, err := repo.ListBySaga(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, lista, len(estados))
	for i, e := range estados {
		assert.Equal(t, e, lista[i].Estado, "transitions come back oldest first")
	}
}

func TestRepository_PreservaTrace(t *testing.T) {
	repo := abrirRepo(t)
	ctx := context.Background()

	e := entrada("p1", "CREADO", "SAGA_STARTED", time.Now().UTC())
	e.TraceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	e.SpanID = "00f067aa0ba902b7"
	require.NoError(t, repo.Append(ctx, e))

	ultimo, err := repo.GetLatest(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, e.TraceID, ultimo.TraceID)
	assert.Equal(t, e.SpanID, ultimo.SpanID)
}

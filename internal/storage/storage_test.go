package storage_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/agentmem/internal/storage"
)

// newTestManager opens an isolated in-memory SQLite database per test so
// unrelated tests never see each other's rows.
func newTestManager(t *testing.T) *storage.Manager {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	m, err := storage.NewManager(storage.Config{Backend: storage.BackendSQLite, DatabaseURL: dsn})
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManager_InitializeIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Initialize())
}

func TestManager_ResetDropsAndRecreatesSchema(t *testing.T) {
	m := newTestManager(t)
	orgs := storage.NewOrganizationRepository(m)
	ctx := context.Background()

	_, err := orgs.Create(ctx, "acme")
	require.NoError(t, err)

	require.NoError(t, m.Reset(true))

	list, err := orgs.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

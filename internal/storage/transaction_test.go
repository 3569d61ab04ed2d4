package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/agentmem/internal/storage"
	"github.com/kagent-dev/agentmem/pkg/errs"
)

func TestTransactionManager_WithinTxCommitsOnSuccess(t *testing.T) {
	m := newTestManager(t)
	orgID := createTestOrg(t, m)
	tx := storage.NewTransactionManager(m)
	memories := storage.NewMemoryRepository(m)

	var createdID string
	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		mem, err := memories.Create(ctx, orgID, storage.MemoryInput{Content: "a", MemoryType: storage.MemoryTypeEpisodic})
		if err != nil {
			return err
		}
		createdID = mem.ID
		return nil
	})
	require.NoError(t, err)

	got, err := memories.Read(context.Background(), orgID, createdID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Content)
}

func TestTransactionManager_WithinTxRollsBackAndPreservesErrorKind(t *testing.T) {
	m := newTestManager(t)
	orgID := createTestOrg(t, m)
	tx := storage.NewTransactionManager(m)
	memories := storage.NewMemoryRepository(m)

	sentinel := errs.ConflictError("deliberate failure", nil)
	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		_, cerr := memories.Create(ctx, orgID, storage.MemoryInput{Content: "a", MemoryType: storage.MemoryTypeEpisodic})
		if cerr != nil {
			return cerr
		}
		return sentinel
	})
	require.Error(t, err)
	assert.Equal(t, errs.Conflict, errs.KindOf(err))

	list, err := memories.List(context.Background(), orgID, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, list, "the insert inside the failed transaction must not be visible")
}

func TestTransactionManager_WithinTxPropagatesPanic(t *testing.T) {
	m := newTestManager(t)
	tx := storage.NewTransactionManager(m)

	assert.Panics(t, func() {
		_ = tx.WithinTx(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
}

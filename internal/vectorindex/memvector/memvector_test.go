package memvector_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/agentmem/internal/vectorindex/memvector"
)

func TestIndex_InsertAndSearch(t *testing.T) {
	ctx := context.Background()
	ix := memvector.New(3)

	require.NoError(t, ix.Insert(ctx, "org1", "a", []float32{1, 0, 0}))
	require.NoError(t, ix.Insert(ctx, "org1", "b", []float32{0, 1, 0}))
	require.NoError(t, ix.Insert(ctx, "org1", "c", []float32{0.9, 0.1, 0}))

	matches, err := ix.Search(ctx, "org1", []float32{1, 0, 0}, 2, 0.5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, "c", matches[1].ID)
}

func TestIndex_SearchRespectsThreshold(t *testing.T) {
	ctx := context.Background()
	ix := memvector.New(2)
	require.NoError(t, ix.Insert(ctx, "org1", "a", []float32{1, 0}))
	require.NoError(t, ix.Insert(ctx, "org1", "b", []float32{0, 1}))

	matches, err := ix.Search(ctx, "org1", []float32{1, 0}, 10, 0.99)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ID)
}

func TestIndex_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	ix := memvector.New(2)
	require.NoError(t, ix.Insert(ctx, "org1", "a", []float32{1, 0}))
	require.NoError(t, ix.Insert(ctx, "org2", "a", []float32{0, 1}))

	matches, err := ix.Search(ctx, "org1", []float32{1, 0}, 10, -1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	ix := memvector.New(3)
	err := ix.Insert(ctx, "org1", "a", []float32{1, 0})
	require.Error(t, err)

	_, err = ix.Search(ctx, "org1", []float32{1, 0}, 5, 0)
	require.Error(t, err)
}

func TestIndex_Delete(t *testing.T) {
	ctx := context.Background()
	ix := memvector.New(2)
	require.NoError(t, ix.Insert(ctx, "org1", "a", []float32{1, 0}))
	require.NoError(t, ix.Delete(ctx, "org1", "a"))

	matches, err := ix.Search(ctx, "org1", []float32{1, 0}, 10, -1)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

package blocks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/agentmem/internal/blocks"
	"github.com/kagent-dev/agentmem/internal/storage"
)

func newTestManager(t *testing.T) *storage.Manager {
	t.Helper()
	m, err := storage.NewManager(storage.Config{Backend: storage.BackendSQLite, DatabaseURL: "file:" + t.Name() + "?mode=memory&cache=shared"})
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	return m
}

func TestCompiler_RendersGroupedBlocks(t *testing.T) {
	mgr := newTestManager(t)
	blockRepo := storage.NewBlockRepository(mgr)
	agentRepo := storage.NewAgentRepository(mgr)
	orgRepo := storage.NewOrganizationRepository(mgr)

	ctx := context.Background()
	org, err := orgRepo.Create(ctx, "acme")
	require.NoError(t, err)
	agent, err := agentRepo.Create(ctx, org.ID, storage.AgentInput{Name: "assistant"})
	require.NoError(t, err)

	persona, err := blockRepo.Create(ctx, org.ID, storage.BlockInput{UserID: "u1", Label: "persona", Value: "I am helpful.", Limit: 1000, BlockType: storage.BlockTypePersona})
	require.NoError(t, err)

	require.NoError(t, mgr.DB().Exec("INSERT INTO blocks_agents (block_id, agent_id) VALUES (?, ?)", persona.ID, agent.ID).Error)

	compiler := blocks.NewCompiler(blockRepo)
	rendered, stats, err := compiler.Compile(ctx, org.ID, agent.ID, "")
	require.NoError(t, err)
	assert.Contains(t, rendered, "I am helpful.")
	assert.Equal(t, 1, stats.BlocksUsed)
	assert.Greater(t, stats.TotalCharacters, 0)
}

func TestCompiler_EmptyBlockSetOmitsSections(t *testing.T) {
	mgr := newTestManager(t)
	blockRepo := storage.NewBlockRepository(mgr)

	compiler := blocks.NewCompiler(blockRepo)
	rendered, stats, err := compiler.Compile(context.Background(), "org-none", "agent-none", "")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.BlocksUsed)
	assert.NotContains(t, rendered, "## Persona")
}

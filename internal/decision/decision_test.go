package decision_test

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/agentmem/internal/decision"
	"github.com/kagent-dev/agentmem/internal/extractor"
	"github.com/kagent-dev/agentmem/pkg/llm"
)

func TestEngine_AddWhenNoSimilarMemories(t *testing.T) {
	fake := llm.NewFakeClient(llm.CompletionResponse{
		Content: `{"action": "ADD", "rationale": "nothing similar", "confidence": 0.9}`,
	})
	e := decision.New(fake, decision.DefaultConfig(), logr.Discard())

	d, err := e.Decide(context.Background(), extractor.Fact{Content: "likes tea", Confidence: 0.8}, nil)
	require.NoError(t, err)
	assert.Equal(t, decision.ActionAdd, d.Action)
	assert.False(t, d.Degraded)
}

func TestEngine_UpdateWithValidTargetID(t *testing.T) {
	fake := llm.NewFakeClient(llm.CompletionResponse{
		Content: `{"action": "UPDATE", "target_id": "mem-1", "merged_content": "likes green tea", "rationale": "refines prior fact", "confidence": 0.85}`,
	})
	e := decision.New(fake, decision.DefaultConfig(), logr.Discard())

	d, err := e.Decide(context.Background(), extractor.Fact{Content: "likes green tea", Confidence: 0.8},
		[]decision.SimilarMemory{{ID: "mem-1", Content: "likes tea", Importance: 0.5}})
	require.NoError(t, err)
	assert.Equal(t, decision.ActionUpdate, d.Action)
	assert.Equal(t, "mem-1", d.TargetID)
	assert.Equal(t, "likes green tea", d.MergedContent)
}

func TestEngine_GuardRailRejectsUnknownTargetIDThenDegradesToNoop(t *testing.T) {
	calls := 0
	fake := &llm.FakeClient{
		Responder: func(req llm.CompletionRequest) (llm.CompletionResponse, error) {
			calls++
			return llm.CompletionResponse{
				Content: `{"action": "UPDATE", "target_id": "does-not-exist", "merged_content": "x", "rationale": "r", "confidence": 0.7}`,
			}, nil
		},
	}
	e := decision.New(fake, decision.Config{MaxRetries: 2}, logr.Discard())

	d, err := e.Decide(context.Background(), extractor.Fact{Content: "some fact", Confidence: 0.8},
		[]decision.SimilarMemory{{ID: "mem-1", Content: "unrelated", Importance: 0.5}})
	require.NoError(t, err)
	assert.Equal(t, decision.ActionNoop, d.Action)
	assert.True(t, d.Degraded)
	assert.Equal(t, 2, calls)
}

func TestEngine_DeleteRequiresKnownTargetID(t *testing.T) {
	fake := llm.NewFakeClient(
		llm.CompletionResponse{Content: `{"action": "DELETE", "target_id": "bogus", "rationale": "r", "confidence": 0.6}`},
		llm.CompletionResponse{Content: `{"action": "DELETE", "target_id": "mem-9", "rationale": "contradicts", "confidence": 0.9}`},
	)
	e := decision.New(fake, decision.Config{MaxRetries: 3}, logr.Discard())

	d, err := e.Decide(context.Background(), extractor.Fact{Content: "no longer true", Confidence: 0.9},
		[]decision.SimilarMemory{{ID: "mem-9", Content: "old fact", Importance: 0.4}})
	require.NoError(t, err)
	assert.Equal(t, decision.ActionDelete, d.Action)
	assert.Equal(t, "mem-9", d.TargetID)
}

func TestEngine_NoopWhenAlreadyRepresented(t *testing.T) {
	fake := llm.NewFakeClient(llm.CompletionResponse{
		Content: `{"action": "NOOP", "rationale": "already known", "confidence": 0.95}`,
	})
	e := decision.New(fake, decision.DefaultConfig(), logr.Discard())

	d, err := e.Decide(context.Background(), extractor.Fact{Content: "likes tea", Confidence: 0.9},
		[]decision.SimilarMemory{{ID: "mem-1", Content: "likes tea", Importance: 0.5}})
	require.NoError(t, err)
	assert.Equal(t, decision.ActionNoop, d.Action)
	assert.False(t, d.Degraded)
}

package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/agentmem/pkg/errs"
	"github.com/kagent-dev/agentmem/pkg/llm"
)

func TestFakeClient_ReturnsQueuedResponsesInOrder(t *testing.T) {
	ctx := context.Background()
	c := llm.NewFakeClient(
		llm.CompletionResponse{Content: "first"},
		llm.CompletionResponse{Content: "second"},
	)

	resp1, err := c.Complete(ctx, llm.CompletionRequest{System: "extract facts"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp1.Content)

	resp2, err := c.Complete(ctx, llm.CompletionRequest{System: "extract facts"})
	require.NoError(t, err)
	assert.Equal(t, "second", resp2.Content)

	require.Len(t, c.Calls, 2)
	assert.Equal(t, "extract facts", c.Calls[0].System)
}

func TestFakeClient_ExhaustedQueueReturnsInternalError(t *testing.T) {
	c := llm.NewFakeClient()

	_, err := c.Complete(context.Background(), llm.CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, errs.Internal, errs.KindOf(err))
}

func TestFakeClient_ErrFieldIsReturnedWhenSet(t *testing.T) {
	c := llm.NewFakeClient(llm.CompletionResponse{Content: "unused"})
	c.Err = errs.TransientError("provider unavailable", nil)

	_, err := c.Complete(context.Background(), llm.CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, errs.Transient, errs.KindOf(err))
}

func TestFakeClient_ResponderOverridesQueue(t *testing.T) {
	c := llm.NewFakeClient()
	c.Responder = func(req llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{Content: "echo:" + req.System}, nil
	}

	resp, err := c.Complete(context.Background(), llm.CompletionRequest{System: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "echo:ping", resp.Content)
}

package extractor_test

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/agentmem/internal/extractor"
	"github.com/kagent-dev/agentmem/pkg/llm"
)

func TestExtractor_ParsesAndFiltersByConfidence(t *testing.T) {
	fake := llm.NewFakeClient(llm.CompletionResponse{Content: `{"facts": [
		{"content": "user prefers dark mode", "confidence": 0.9, "category": "preference", "source_message_ids": ["m1"]},
		{"content": "user might like cats", "confidence": 0.1, "category": "preference", "source_message_ids": ["m1"]}
	]}`})
	ex := extractor.New(fake, extractor.Config{MinConfidence: 0.3, MaxRetries: 3}, logr.Discard())

	facts, err := ex.Extract(context.Background(), []extractor.Message{
		{ID: "m1", Role: "user", Content: "I really like dark mode"},
	}, "")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "user prefers dark mode", facts[0].Content)
}

func TestExtractor_RequiresAtLeastOneMessage(t *testing.T) {
	fake := llm.NewFakeClient(llm.CompletionResponse{Content: `{"facts": []}`})
	ex := extractor.New(fake, extractor.DefaultConfig(), logr.Discard())

	_, err := ex.Extract(context.Background(), nil, "")
	assert.Error(t, err)
}

func TestExtractor_RetriesOnMalformedJSONThenSucceeds(t *testing.T) {
	calls := 0
	fake := &llm.FakeClient{
		Responder: func(req llm.CompletionRequest) (llm.CompletionResponse, error) {
			calls++
			if calls < 2 {
				return llm.CompletionResponse{Content: "not json"}, nil
			}
			return llm.CompletionResponse{Content: `{"facts": [{"content": "likes tea", "confidence": 0.8, "source_message_ids": ["m1"]}]}`}, nil
		},
	}
	ex := extractor.New(fake, extractor.Config{MinConfidence: 0.3, MaxRetries: 3}, logr.Discard())

	facts, err := ex.Extract(context.Background(), []extractor.Message{{ID: "m1", Role: "user", Content: "I like tea"}}, "")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, 2, calls)
}

func TestExtractor_RejectsUnknownFields(t *testing.T) {
	fake := llm.NewFakeClient(llm.CompletionResponse{Content: `{"facts": [{"content": "x", "confidence": 0.5, "source_message_ids": [], "unexpected": true}]}`})
	ex := extractor.New(fake, extractor.Config{MinConfidence: 0.3, MaxRetries: 1}, logr.Discard())

	_, err := ex.Extract(context.Background(), []extractor.Message{{ID: "m1", Role: "user", Content: "hi"}}, "")
	assert.Error(t, err)
}

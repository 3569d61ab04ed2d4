package processor_test

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/agentmem/internal/decision"
	"github.com/kagent-dev/agentmem/internal/extractor"
	"github.com/kagent-dev/agentmem/internal/fulltextindex"
	"github.com/kagent-dev/agentmem/internal/fulltextindex/memfts"
	"github.com/kagent-dev/agentmem/internal/processor"
	"github.com/kagent-dev/agentmem/internal/storage"
	"github.com/kagent-dev/agentmem/internal/vectorindex/memvector"
	"github.com/kagent-dev/agentmem/pkg/embedder"
	"github.com/kagent-dev/agentmem/pkg/llm"
	"github.com/kagent-dev/agentmem/pkg/metrics"
)

var similarIDPattern = regexp.MustCompile(`id=(\S+)`)

// decisionResponder builds a decision-engine fake responder that extracts the
// target_id from the rendered prompt's similar-memories list, so tests don't
// need to know a memory's generated ID up front.
func decisionResponder(action, mergedContent string) func(llm.CompletionRequest) (llm.CompletionResponse, error) {
	return func(req llm.CompletionRequest) (llm.CompletionResponse, error) {
		targetID := ""
		if len(req.Messages) > 0 {
			if m := similarIDPattern.FindStringSubmatch(req.Messages[0].Content); m != nil {
				targetID = m[1]
			}
		}
		body, err := json.Marshal(map[string]any{
			"action":         action,
			"target_id":      targetID,
			"merged_content": mergedContent,
			"rationale":      "test",
			"confidence":     0.9,
		})
		if err != nil {
			return llm.CompletionResponse{}, err
		}
		return llm.CompletionResponse{Content: string(body)}, nil
	}
}

func newTestManager(t *testing.T) *storage.Manager {
	t.Helper()
	m, err := storage.NewManager(storage.Config{Backend: storage.BackendSQLite, DatabaseURL: "file:" + t.Name() + "?mode=memory&cache=shared"})
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	return m
}

func TestProcessor_IngestAddsNewFact(t *testing.T) {
	mgr := newTestManager(t)
	memories := storage.NewMemoryRepository(mgr)
	tx := storage.NewTransactionManager(mgr)

	emb := embedder.NewFakeClient(16)
	vec := memvector.New(16)
	ft := memfts.New(memfts.NewTokenizer("english"))

	ex := extractor.New(llm.NewFakeClient(llm.CompletionResponse{
		Content: `{"facts": [{"content": "user prefers dark mode", "confidence": 0.9, "source_message_ids": ["m1"]}]}`,
	}), extractor.DefaultConfig(), logr.Discard())

	dec := decision.New(llm.NewFakeClient(llm.CompletionResponse{
		Content: `{"action": "ADD", "rationale": "new topic", "confidence": 0.9}`,
	}), decision.DefaultConfig(), logr.Discard())

	p := processor.New(ex, emb, vec, ft, memories, tx, dec, processor.DefaultConfig(), logr.Discard(), metrics.Noop())

	orgID := "org-1"
	report, err := p.Ingest(context.Background(), orgID, nil, nil,
		[]extractor.Message{{ID: "m1", Role: "user", Content: "I really like dark mode"}}, "")
	require.NoError(t, err)
	require.Equal(t, 1, report.FactsExtracted)
	require.Equal(t, 1, report.AddCount)
	require.Empty(t, report.Errors)

	mems, err := memories.List(context.Background(), orgID, nil, nil)
	require.NoError(t, err)
	require.Len(t, mems, 1)
	require.Equal(t, "user prefers dark mode", mems[0].Content)
}

func TestProcessor_IngestWithNoFactsReturnsEmptyReport(t *testing.T) {
	mgr := newTestManager(t)
	memories := storage.NewMemoryRepository(mgr)
	tx := storage.NewTransactionManager(mgr)

	emb := embedder.NewFakeClient(16)
	vec := memvector.New(16)
	ft := memfts.New(memfts.NewTokenizer("english"))

	ex := extractor.New(llm.NewFakeClient(llm.CompletionResponse{Content: `{"facts": []}`}),
		extractor.DefaultConfig(), logr.Discard())
	dec := decision.New(llm.NewFakeClient(), decision.DefaultConfig(), logr.Discard())

	p := processor.New(ex, emb, vec, ft, memories, tx, dec, processor.DefaultConfig(), logr.Discard(), metrics.Noop())

	report, err := p.Ingest(context.Background(), "org-1", nil, nil,
		[]extractor.Message{{ID: "m1", Role: "user", Content: "hello"}}, "")
	require.NoError(t, err)
	require.Equal(t, 0, report.FactsExtracted)
	require.Empty(t, report.Errors)
}

func TestProcessor_IngestUpdatesExistingFact(t *testing.T) {
	mgr := newTestManager(t)
	memories := storage.NewMemoryRepository(mgr)
	tx := storage.NewTransactionManager(mgr)

	emb := embedder.NewFakeClient(16)
	vec := memvector.New(16)
	ft := memfts.New(memfts.NewTokenizer("english"))
	orgID := "org-1"

	addEx := extractor.New(llm.NewFakeClient(llm.CompletionResponse{
		Content: `{"facts": [{"content": "user prefers dark mode", "confidence": 0.9, "source_message_ids": ["m1"]}]}`,
	}), extractor.DefaultConfig(), logr.Discard())
	addDec := decision.New(llm.NewFakeClient(llm.CompletionResponse{
		Content: `{"action": "ADD", "rationale": "new topic", "confidence": 0.9}`,
	}), decision.DefaultConfig(), logr.Discard())
	addProcessor := processor.New(addEx, emb, vec, ft, memories, tx, addDec, processor.DefaultConfig(), logr.Discard(), metrics.Noop())

	_, err := addProcessor.Ingest(context.Background(), orgID, nil, nil,
		[]extractor.Message{{ID: "m1", Role: "user", Content: "I really like dark mode"}}, "")
	require.NoError(t, err)

	existing, err := memories.List(context.Background(), orgID, nil, nil)
	require.NoError(t, err)
	require.Len(t, existing, 1)

	updateEx := extractor.New(llm.NewFakeClient(llm.CompletionResponse{
		// Identical content as the first ingest keeps the fake embedding
		// vector identical so the similarity search reliably surfaces the
		// memory created above as a candidate for UPDATE.
		Content: `{"facts": [{"content": "user prefers dark mode", "confidence": 0.9, "source_message_ids": ["m2"]}]}`,
	}), extractor.DefaultConfig(), logr.Discard())
	updateDec := decision.New(&llm.FakeClient{
		Responder: decisionResponder("UPDATE", "user strongly prefers dark mode everywhere"),
	}, decision.DefaultConfig(), logr.Discard())
	updateProcessor := processor.New(updateEx, emb, vec, ft, memories, tx, updateDec, processor.DefaultConfig(), logr.Discard(), metrics.Noop())

	report, err := updateProcessor.Ingest(context.Background(), orgID, nil, nil,
		[]extractor.Message{{ID: "m2", Role: "user", Content: "I really like dark mode"}}, "")
	require.NoError(t, err)
	require.Equal(t, 1, report.UpdateCount)
	require.Empty(t, report.Errors)

	updated, err := memories.Read(context.Background(), orgID, existing[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "user strongly prefers dark mode everywhere", updated.Content)

	ranks, err := ft.Search("strongly prefers dark mode everywhere", 5, fulltextindex.Filters{OrganizationID: orgID})
	require.NoError(t, err)
	require.Len(t, ranks, 1)
	assert.Equal(t, existing[0].ID, ranks[0].ID)
}

func TestProcessor_IngestDeletesExistingFact(t *testing.T) {
	mgr := newTestManager(t)
	memories := storage.NewMemoryRepository(mgr)
	tx := storage.NewTransactionManager(mgr)

	emb := embedder.NewFakeClient(16)
	vec := memvector.New(16)
	ft := memfts.New(memfts.NewTokenizer("english"))
	orgID := "org-1"

	addEx := extractor.New(llm.NewFakeClient(llm.CompletionResponse{
		Content: `{"facts": [{"content": "user prefers dark mode", "confidence": 0.9, "source_message_ids": ["m1"]}]}`,
	}), extractor.DefaultConfig(), logr.Discard())
	addDec := decision.New(llm.NewFakeClient(llm.CompletionResponse{
		Content: `{"action": "ADD", "rationale": "new topic", "confidence": 0.9}`,
	}), decision.DefaultConfig(), logr.Discard())
	addProcessor := processor.New(addEx, emb, vec, ft, memories, tx, addDec, processor.DefaultConfig(), logr.Discard(), metrics.Noop())

	_, err := addProcessor.Ingest(context.Background(), orgID, nil, nil,
		[]extractor.Message{{ID: "m1", Role: "user", Content: "I really like dark mode"}}, "")
	require.NoError(t, err)

	existing, err := memories.List(context.Background(), orgID, nil, nil)
	require.NoError(t, err)
	require.Len(t, existing, 1)

	deleteEx := extractor.New(llm.NewFakeClient(llm.CompletionResponse{
		Content: `{"facts": [{"content": "user prefers dark mode", "confidence": 0.9, "source_message_ids": ["m2"]}]}`,
	}), extractor.DefaultConfig(), logr.Discard())
	deleteDec := decision.New(&llm.FakeClient{
		Responder: decisionResponder("DELETE", ""),
	}, decision.DefaultConfig(), logr.Discard())
	deleteProcessor := processor.New(deleteEx, emb, vec, ft, memories, tx, deleteDec, processor.DefaultConfig(), logr.Discard(), metrics.Noop())

	report, err := deleteProcessor.Ingest(context.Background(), orgID, nil, nil,
		[]extractor.Message{{ID: "m2", Role: "user", Content: "I really like dark mode"}}, "")
	require.NoError(t, err)
	require.Equal(t, 1, report.DeleteCount)
	require.Empty(t, report.Errors)

	_, err = memories.Read(context.Background(), orgID, existing[0].ID)
	assert.Error(t, err)

	originalVec, err := emb.Embed(context.Background(), []string{existing[0].Content})
	require.NoError(t, err)
	matches, err := vec.Search(context.Background(), orgID, originalVec[0], 5, 0.0)
	require.NoError(t, err)
	assert.Empty(t, matches)

	ranks, err := ft.Search(existing[0].Content, 5, fulltextindex.Filters{OrganizationID: orgID})
	require.NoError(t, err)
	assert.Empty(t, ranks)
}

func TestProcessor_IngestNoopsBumpsAccessCount(t *testing.T) {
	mgr := newTestManager(t)
	memories := storage.NewMemoryRepository(mgr)
	tx := storage.NewTransactionManager(mgr)

	emb := embedder.NewFakeClient(16)
	vec := memvector.New(16)
	ft := memfts.New(memfts.NewTokenizer("english"))
	orgID := "org-1"

	addEx := extractor.New(llm.NewFakeClient(llm.CompletionResponse{
		Content: `{"facts": [{"content": "user prefers dark mode", "confidence": 0.9, "source_message_ids": ["m1"]}]}`,
	}), extractor.DefaultConfig(), logr.Discard())
	addDec := decision.New(llm.NewFakeClient(llm.CompletionResponse{
		Content: `{"action": "ADD", "rationale": "new topic", "confidence": 0.9}`,
	}), decision.DefaultConfig(), logr.Discard())
	addProcessor := processor.New(addEx, emb, vec, ft, memories, tx, addDec, processor.DefaultConfig(), logr.Discard(), metrics.Noop())

	_, err := addProcessor.Ingest(context.Background(), orgID, nil, nil,
		[]extractor.Message{{ID: "m1", Role: "user", Content: "I really like dark mode"}}, "")
	require.NoError(t, err)

	existing, err := memories.List(context.Background(), orgID, nil, nil)
	require.NoError(t, err)
	require.Len(t, existing, 1)
	require.Equal(t, int64(0), existing[0].AccessCount)

	noopEx := extractor.New(llm.NewFakeClient(llm.CompletionResponse{
		Content: `{"facts": [{"content": "user prefers dark mode", "confidence": 0.9, "source_message_ids": ["m2"]}]}`,
	}), extractor.DefaultConfig(), logr.Discard())
	noopDec := decision.New(&llm.FakeClient{
		Responder: decisionResponder("NOOP", ""),
	}, decision.DefaultConfig(), logr.Discard())
	noopProcessor := processor.New(noopEx, emb, vec, ft, memories, tx, noopDec, processor.DefaultConfig(), logr.Discard(), metrics.Noop())

	report, err := noopProcessor.Ingest(context.Background(), orgID, nil, nil,
		[]extractor.Message{{ID: "m2", Role: "user", Content: "I really like dark mode"}}, "")
	require.NoError(t, err)
	require.Equal(t, 1, report.NoopCount)
	require.Empty(t, report.Errors)

	after, err := memories.Read(context.Background(), orgID, existing[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), after.AccessCount)
}

package embedder

import (
	"context"

	"github.com/go-logr/logr"
	"google.golang.org/genai"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

type geminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

func newGeminiEmbedder(ctx context.Context, cfg Config, log logr.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errs.ValidationError("gemini embedder requires an api key", nil)
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, errs.InternalError("failed to construct gemini embedder client", err)
	}
	log.Info("initialized gemini embedder", "model", cfg.Model, "dimension", cfg.Dimension)
	return &geminiEmbedder{client: c, model: cfg.Model, dimension: cfg.Dimension}, nil
}

func (e *geminiEmbedder) Dimension() int { return e.dimension }

func (e *geminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, errs.TransientError("gemini embedding request failed", err)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

package embedder

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

type openAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

func newOpenAIEmbedder(cfg Config, log logr.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errs.ValidationError("openai embedder requires an api key", nil)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	c := openai.NewClient(opts...)
	log.Info("initialized openai embedder", "model", cfg.Model, "dimension", cfg.Dimension)
	return &openAIEmbedder{client: c, model: cfg.Model, dimension: cfg.Dimension}, nil
}

func (e *openAIEmbedder) Dimension() int { return e.dimension }

func (e *openAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, errs.TransientError("openai embedding request failed", err)
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

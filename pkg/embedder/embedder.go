// Package embedder defines the capability interface the Memory Core uses to
// turn text into fixed-dimension vectors, plus provider factories mirroring
// pkg/llm's construction shape.
package embedder

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

// Client embeds one or more texts into fixed-dimension vectors.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// ProviderKind selects a concrete Client implementation.
type ProviderKind string

const (
	ProviderOpenAI ProviderKind = "openai"
	ProviderGemini ProviderKind = "gemini"
	ProviderFake   ProviderKind = "fake"
)

// Config holds the union of fields any provider constructor might need.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	Dimension int
}

// NewClient constructs a Client for the given provider kind.
func NewClient(ctx context.Context, kind ProviderKind, cfg Config, log logr.Logger) (Client, error) {
	switch kind {
	case ProviderOpenAI:
		return newOpenAIEmbedder(cfg, log)
	case ProviderGemini:
		return newGeminiEmbedder(ctx, cfg, log)
	case ProviderFake:
		return NewFakeClient(cfg.Dimension), nil
	default:
		return nil, errs.ValidationError("unsupported embedder provider", nil)
	}
}

package llm

import (
	"context"

	"github.com/go-logr/logr"
	"google.golang.org/genai"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

type geminiClient struct {
	client *genai.Client
	model  string
	log    logr.Logger
}

func newGeminiClient(ctx context.Context, cfg Config, log logr.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errs.ValidationError("gemini provider requires an api key", nil)
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errs.InternalError("failed to construct gemini client", err)
	}
	log.Info("initialized gemini client", "model", cfg.Model)
	return &geminiClient{client: c, model: cfg.Model, log: log}, nil
}

func (g *geminiClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	parts := make([]*genai.Part, 0, len(req.Messages))
	for _, m := range req.Messages {
		parts = append(parts, genai.NewPartFromText(m.Content))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		cfg.Temperature = &temp
	}
	if req.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return CompletionResponse{}, errs.TransientError("gemini completion failed", err)
	}

	return CompletionResponse{Content: resp.Text()}, nil
}

package llm

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-logr/logr"
	"github.com/ollama/ollama/api"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

type ollamaClient struct {
	client *api.Client
	model  string
	log    logr.Logger
}

func newOllamaClient(cfg Config, log logr.Logger) (Client, error) {
	host := cfg.Host
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, errs.ValidationError("invalid ollama host", err)
	}
	c := api.NewClient(base, &http.Client{Timeout: cfg.timeout()})
	log.Info("initialized ollama client", "model", cfg.Model, "host", host)
	return &ollamaClient{client: c, model: cfg.Model, log: log}, nil
}

func (o *ollamaClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	messages := make([]api.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, api.Message{Role: string(RoleSystem), Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: string(m.Role), Content: m.Content})
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
	}
	if req.JSONMode {
		chatReq.Format = []byte(`"json"`)
	}

	var content string
	err := o.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		return CompletionResponse{}, errs.TransientError("ollama completion failed", err)
	}
	return CompletionResponse{Content: content}, nil
}

package llm

import (
	"context"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/go-logr/logr"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

type anthropicClient struct {
	client anthropic.Client
	model  string
	log    logr.Logger
}

func newAnthropicClient(cfg Config, log logr.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errs.ValidationError("anthropic provider requires an api key", nil)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	httpClient := &http.Client{Timeout: cfg.timeout()}
	if len(cfg.Headers) > 0 {
		httpClient.Transport = &headerTransport{base: http.DefaultTransport, headers: cfg.Headers}
	}
	opts = append(opts, option.WithHTTPClient(httpClient))

	c := anthropic.NewClient(opts...)
	if log.GetSink() != nil {
		log.Info("initialized anthropic client", "model", cfg.Model)
	}
	return &anthropicClient{client: c, model: cfg.Model, log: log}, nil
}

func (a *anthropicClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	maxTokens := int64(1024)
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages:  toAnthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, errs.TransientError("anthropic completion failed", err)
	}

	var content string
	for _, block := range msg.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return CompletionResponse{
		Content:      content,
		StopReason:   string(msg.StopReason),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}

func toAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		block := anthropic.NewTextBlock(m.Content)
		switch m.Role {
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(block))
		default:
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

// headerTransport injects default headers into every request, mirroring
// the teacher's proxy/custom-endpoint support.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

package llm

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

type openAIClient struct {
	client openai.Client
	model  string
	log    logr.Logger
}

func newOpenAIClient(cfg Config, log logr.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errs.ValidationError("openai provider requires an api key", nil)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	c := openai.NewClient(opts...)
	log.Info("initialized openai client", "model", cfg.Model)
	return &openAIClient{client: c, model: cfg.Model, log: log}, nil
}

func (o *openAIClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    o.model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, errs.TransientError("openai completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResponse{}, errs.TransientError("openai completion returned no choices", nil)
	}

	return CompletionResponse{
		Content:      resp.Choices[0].Message.Content,
		StopReason:   string(resp.Choices[0].FinishReason),
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

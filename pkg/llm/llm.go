// Package llm defines the capability interface C5 (Fact Extractor) and C6
// (Decision Engine) depend on, plus provider factories grounded on the
// teacher's adk/pkg/models/anthropic.go construction pattern.
package llm

import (
	"context"
	"time"

	"github.com/go-logr/logr"
)

// Role mirrors the chat message roles every supported provider accepts.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a completion request.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a single prompt/completion call. JSONMode requests
// the provider constrain output to a JSON document when it supports doing
// so natively; callers (C5/C6) still validate the result strictly either way.
type CompletionRequest struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse is a provider's answer to one CompletionRequest.
type CompletionResponse struct {
	Content      string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// Client is the capability interface C5/C6 depend on. The Memory Core never
// imports a provider SDK directly -- only this interface.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// ProviderKind selects a concrete Client implementation.
type ProviderKind string

const (
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderOpenAI    ProviderKind = "openai"
	ProviderGemini    ProviderKind = "gemini"
	ProviderBedrock   ProviderKind = "bedrock"
	ProviderOllama    ProviderKind = "ollama"
)

// Config holds the union of fields any provider constructor might need. Not
// every field is meaningful for every provider; see each provider file.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Headers     map[string]string
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	TopK        *int
	Timeout     *int // seconds

	// Bedrock
	Region string

	// Ollama
	Host string
}

func (c Config) timeout() time.Duration {
	if c.Timeout != nil {
		return time.Duration(*c.Timeout) * time.Second
	}
	return 30 * time.Second
}

// NewClient constructs a Client for the given provider kind.
func NewClient(ctx context.Context, kind ProviderKind, cfg Config, log logr.Logger) (Client, error) {
	switch kind {
	case ProviderAnthropic:
		return newAnthropicClient(cfg, log)
	case ProviderOpenAI:
		return newOpenAIClient(cfg, log)
	case ProviderGemini:
		return newGeminiClient(ctx, cfg, log)
	case ProviderBedrock:
		return newBedrockClient(ctx, cfg, log)
	case ProviderOllama:
		return newOllamaClient(cfg, log)
	default:
		return nil, errUnsupportedProvider(kind)
	}
}

// Package extractor implements C5: LLM-prompted extraction of atomic facts
// from a message window.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/kagent-dev/agentmem/pkg/errs"
	"github.com/kagent-dev/agentmem/pkg/llm"
	"github.com/kagent-dev/agentmem/pkg/retry"
)

// Message is one input turn to extract facts from.
type Message struct {
	ID      string
	Role    string
	Content string
}

// Fact is one atomic, declarative statement pulled from a message window.
type Fact struct {
	Content           string   `json:"content"`
	Confidence        float64  `json:"confidence"`
	Category          string   `json:"category,omitempty"`
	SourceMessageIDs  []string `json:"source_message_ids"`
}

type factsEnvelope struct {
	Facts []Fact `json:"facts"`
}

// Config controls extraction thresholds.
type Config struct {
	MinConfidence float64
	MaxRetries    int
}

func DefaultConfig() Config { return Config{MinConfidence: 0.3, MaxRetries: 3} }

// Extractor renders a prompt over a message window and parses a strict JSON
// response into atomic facts.
type Extractor struct {
	client llm.Client
	cfg    Config
	log    logr.Logger
}

func New(client llm.Client, cfg Config, log logr.Logger) *Extractor {
	return &Extractor{client: client, cfg: cfg, log: log}
}

// Extract produces the set of atomic facts for a message window plus an
// optional summary of previously-known memories, discarding facts below
// MinConfidence. Parse failures are retried up to cfg.MaxRetries.
func (e *Extractor) Extract(ctx context.Context, messages []Message, previousMemoriesSummary string) ([]Fact, error) {
	if len(messages) == 0 {
		return nil, errs.ValidationError("extractor requires at least one message", nil)
	}

	prompt := buildPrompt(messages, previousMemoriesSummary)

	var facts []Fact
	policy := retry.DefaultPolicy()
	policy.Attempts = e.cfg.MaxRetries

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		resp, err := e.client.Complete(ctx, llm.CompletionRequest{
			System:      systemPrompt,
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
			JSONMode:    true,
			Temperature: 0,
			MaxTokens:   2048,
		})
		if err != nil {
			return err
		}
		parsed, perr := parseFacts(resp.Content)
		if perr != nil {
			e.log.Info("fact extraction parse failed, will retry", "error", perr.Error())
			return errs.TransientError("failed to parse extractor response", perr)
		}
		facts = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	kept := make([]Fact, 0, len(facts))
	for _, f := range facts {
		if f.Confidence >= e.cfg.MinConfidence {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

const systemPrompt = `You are a memory extraction engine. Given a window of conversation ` +
	`messages, extract atomic, declarative facts worth remembering long-term. ` +
	`Respond with strict JSON only: {"facts": [{"content": string, "confidence": number in [0,1], ` +
	`"category": string, "source_message_ids": [string]}]}. Do not include any text outside the JSON object.`

func buildPrompt(messages []Message, previousMemoriesSummary string) string {
	var b strings.Builder
	if previousMemoriesSummary != "" {
		b.WriteString("Previously known memories:\n")
		b.WriteString(previousMemoriesSummary)
		b.WriteString("\n\n")
	}
	b.WriteString("Conversation window:\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s] (%s): %s\n", m.ID, m.Role, m.Content)
	}
	return b.String()
}

// parseFacts decodes strict JSON, rejecting unknown fields so malformed or
// hallucinated output is caught as a parse failure and retried rather than
// silently accepted.
func parseFacts(raw string) ([]Fact, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(raw))))
	dec.DisallowUnknownFields()

	var env factsEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode facts envelope: %w", err)
	}
	for i := range env.Facts {
		if env.Facts[i].Content == "" {
			return nil, fmt.Errorf("fact at index %d has empty content", i)
		}
		if env.Facts[i].Confidence < 0 || env.Facts[i].Confidence > 1 {
			return nil, fmt.Errorf("fact at index %d has out-of-range confidence %f", i, env.Facts[i].Confidence)
		}
	}
	return env.Facts, nil
}

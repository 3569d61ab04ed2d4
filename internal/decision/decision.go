// Package decision implements C6: given a candidate fact and a list of
// similar existing memories, classify exactly one of
// {ADD, UPDATE(target_id), DELETE(target_id), NOOP}.
package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/kagent-dev/agentmem/internal/extractor"
	"github.com/kagent-dev/agentmem/pkg/errs"
	"github.com/kagent-dev/agentmem/pkg/llm"
)

// Action is one of the four decision outcomes.
type Action string

const (
	ActionAdd    Action = "ADD"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionNoop   Action = "NOOP"
)

// SimilarMemory is a candidate the fact is compared against, retrieved via
// C2 using the fact's embedding (top-k).
type SimilarMemory struct {
	ID         string
	Content    string
	Importance float64
}

// Decision is C6's output for one candidate fact.
type Decision struct {
	Action        Action
	TargetID      string // set for UPDATE/DELETE
	MergedContent string // set for UPDATE
	Rationale     string
	Confidence    float64
	Degraded      bool // true if guard rails forced a NOOP after exhausting retries
}

type rawDecision struct {
	Action        string  `json:"action"`
	TargetID      string  `json:"target_id,omitempty"`
	MergedContent string  `json:"merged_content,omitempty"`
	Rationale     string  `json:"rationale"`
	Confidence    float64 `json:"confidence"`
}

// Config controls guard-rail behavior.
type Config struct {
	MaxRetries int
}

func DefaultConfig() Config { return Config{MaxRetries: 3} }

// Engine renders the decision prompt and enforces the guard rails described
// in §4.6: an id not present in the similar set is rejected and retried;
// after exhausting retries the fact degrades to NOOP.
type Engine struct {
	client llm.Client
	cfg    Config
	log    logr.Logger
}

func New(client llm.Client, cfg Config, log logr.Logger) *Engine {
	return &Engine{client: client, cfg: cfg, log: log}
}

// Decide classifies one fact against its similar set.
func (e *Engine) Decide(ctx context.Context, fact extractor.Fact, similar []SimilarMemory) (Decision, error) {
	allowed := make(map[string]struct{}, len(similar))
	for _, s := range similar {
		allowed[s.ID] = struct{}{}
	}

	prompt := buildPrompt(fact, similar)
	maxRetries := e.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := e.client.Complete(ctx, llm.CompletionRequest{
			System:      systemPrompt,
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
			JSONMode:    true,
			Temperature: 0,
			MaxTokens:   1024,
		})
		if err != nil {
			lastErr = err
			continue
		}

		raw, perr := parseDecision(resp.Content)
		if perr != nil {
			lastErr = perr
			e.log.Info("decision parse failed, retrying", "attempt", attempt, "error", perr.Error())
			continue
		}

		d, verr := validateAndConvert(raw, allowed)
		if verr != nil {
			lastErr = verr
			e.log.Info("decision guard rail rejected response, retrying", "attempt", attempt, "error", verr.Error())
			continue
		}
		return d, nil
	}

	e.log.Info("decision degraded to NOOP after exhausting retries", "fact", fact.Content, "error", errString(lastErr))
	return Decision{Action: ActionNoop, Rationale: "degraded after exhausting guard-rail retries", Degraded: true}, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

const systemPrompt = `You are a memory decision engine. Given a candidate fact and a set of ` +
	`similar existing memories, decide exactly one action: ADD (nothing existing covers this), ` +
	`UPDATE (an existing memory covers the same topic but is outdated or incomplete -- return ` +
	`merged_content), DELETE (the fact asserts an existing memory is false), or NOOP (already ` +
	`represented). target_id is required for UPDATE and DELETE and MUST be one of the ids in the ` +
	`similar set provided. When genuinely torn between UPDATE and ADD, prefer UPDATE; when torn ` +
	`between NOOP and DELETE, prefer NOOP. Respond with strict JSON only: ` +
	`{"action": string, "target_id": string, "merged_content": string, "rationale": string, ` +
	`"confidence": number in [0,1]}.`

func buildPrompt(fact extractor.Fact, similar []SimilarMemory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Candidate fact: %q (confidence %.2f)\n", fact.Content, fact.Confidence)
	if len(similar) == 0 {
		b.WriteString("Similar existing memories: none\n")
	} else {
		b.WriteString("Similar existing memories:\n")
		for _, s := range similar {
			fmt.Fprintf(&b, "- id=%s importance=%.2f content=%q\n", s.ID, s.Importance, s.Content)
		}
	}
	return b.String()
}

func parseDecision(raw string) (rawDecision, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(raw))))
	dec.DisallowUnknownFields()
	var rd rawDecision
	if err := dec.Decode(&rd); err != nil {
		return rawDecision{}, fmt.Errorf("decode decision: %w", err)
	}
	return rd, nil
}

func validateAndConvert(raw rawDecision, allowed map[string]struct{}) (Decision, error) {
	action := Action(strings.ToUpper(strings.TrimSpace(raw.Action)))
	switch action {
	case ActionAdd:
		return Decision{Action: action, Rationale: raw.Rationale, Confidence: raw.Confidence}, nil
	case ActionNoop:
		return Decision{Action: action, Rationale: raw.Rationale, Confidence: raw.Confidence}, nil
	case ActionUpdate:
		if _, ok := allowed[raw.TargetID]; !ok {
			return Decision{}, errs.DecisionGuardrailError(
				fmt.Sprintf("update target_id %q not present in similar set", raw.TargetID), nil)
		}
		if raw.MergedContent == "" {
			return Decision{}, errs.DecisionGuardrailError("update decision missing merged_content", nil)
		}
		return Decision{Action: action, TargetID: raw.TargetID, MergedContent: raw.MergedContent,
			Rationale: raw.Rationale, Confidence: raw.Confidence}, nil
	case ActionDelete:
		if _, ok := allowed[raw.TargetID]; !ok {
			return Decision{}, errs.DecisionGuardrailError(
				fmt.Sprintf("delete target_id %q not present in similar set", raw.TargetID), nil)
		}
		return Decision{Action: action, TargetID: raw.TargetID, Rationale: raw.Rationale, Confidence: raw.Confidence}, nil
	default:
		return Decision{}, errs.DecisionGuardrailError(fmt.Sprintf("unrecognized action %q", raw.Action), nil)
	}
}

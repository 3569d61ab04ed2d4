package blocks

import (
	"context"
	"strconv"

	"github.com/go-logr/logr"

	"github.com/kagent-dev/agentmem/internal/blocks/template"
	"github.com/kagent-dev/agentmem/pkg/errs"
	"github.com/kagent-dev/agentmem/pkg/llm"
)

// Strategy selects how the auto-rewriter compacts a block's content.
type Strategy string

const (
	StrategyPreserveImportant Strategy = "preserve_important"
	StrategySummarize         Strategy = "summarize"
	StrategyPreserveRecent    Strategy = "preserve_recent"
	StrategyCustom            Strategy = "custom"
)

// RewriteConfig controls the rewrite cycle's size and quality gates.
type RewriteConfig struct {
	RewriteThreshold float64 // fill ratio that triggers a rewrite cycle, default 0.9
	TargetRetention  float64 // post-rewrite target as a fraction of limit, default 0.8
	MinQuality       float64 // default 0.7
	MaxRetries       int     // default 3
}

func DefaultRewriteConfig() RewriteConfig {
	return RewriteConfig{RewriteThreshold: 0.9, TargetRetention: 0.8, MinQuality: 0.7, MaxRetries: 3}
}

// RewriteRequest is the input to one rewrite cycle.
type RewriteRequest struct {
	Content      string
	Limit        int
	Strategy     Strategy
	CustomPrompt string // required when Strategy == StrategyCustom
}

// Rewriter runs the auto-rewrite cycle described in §4.8: render a
// strategy-specific prompt, call the LLM, validate and score the result,
// and retry until it passes or the retry budget is exhausted.
type Rewriter struct {
	client llm.Client
	cfg    RewriteConfig
	log    logr.Logger
}

func NewRewriter(client llm.Client, cfg RewriteConfig, log logr.Logger) *Rewriter {
	if cfg.TargetRetention <= 0 {
		cfg.TargetRetention = 0.8
	}
	if cfg.MinQuality <= 0 {
		cfg.MinQuality = 0.7
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RewriteThreshold <= 0 {
		cfg.RewriteThreshold = 0.9
	}
	return &Rewriter{client: client, cfg: cfg, log: log}
}

// Rewrite produces a compacted version of req.Content targeting
// req.Limit * cfg.TargetRetention bytes, retrying until the result both fits
// within req.Limit and scores at least cfg.MinQuality against the original.
func (r *Rewriter) Rewrite(ctx context.Context, req RewriteRequest) (string, error) {
	targetLen := int(float64(req.Limit) * r.cfg.TargetRetention)

	prompt, err := buildRewritePrompt(req, targetLen)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		resp, err := r.client.Complete(ctx, llm.CompletionRequest{
			System:      rewriteSystemPrompt,
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
			Temperature: 0.2,
			MaxTokens:   2048,
		})
		if err != nil {
			lastErr = err
			continue
		}
		candidate := resp.Content
		if candidate == "" {
			lastErr = errs.ValidationError("rewrite produced empty content", nil)
			continue
		}
		if len(candidate) > req.Limit {
			lastErr = errs.ValidationError("rewrite still exceeds limit", nil)
			r.log.Info("rewrite attempt exceeded limit, retrying", "attempt", attempt, "length", len(candidate), "limit", req.Limit)
			continue
		}
		quality := scoreQuality(req.Content, candidate, targetLen)
		if quality < r.cfg.MinQuality {
			lastErr = errs.ValidationError("rewrite quality below threshold", nil)
			r.log.Info("rewrite attempt scored below min_quality, retrying", "attempt", attempt, "quality", quality, "min_quality", r.cfg.MinQuality)
			continue
		}
		return candidate, nil
	}

	return "", errs.ValidationError("block write refused: rewrite did not converge after max_retries", lastErr)
}

const rewriteSystemPrompt = `You compact working-memory blocks for an AI agent. Preserve factual ` +
	`content while meeting the requested size target. Respond with the rewritten block content only, ` +
	`no commentary.`

func buildRewritePrompt(req RewriteRequest, targetLen int) (string, error) {
	switch req.Strategy {
	case StrategyPreserveImportant:
		return template.Render(
			"Keep the most important lines from the following content and drop the rest. Target length: {{target}} characters.\n\n{{content}}",
			map[string]interface{}{"target": strconv.Itoa(targetLen), "content": req.Content})
	case StrategySummarize:
		return template.Render(
			"Compress the following content into a shorter form that preserves all facts. Target length: {{target}} characters.\n\n{{content}}",
			map[string]interface{}{"target": strconv.Itoa(targetLen), "content": req.Content})
	case StrategyPreserveRecent:
		return template.Render(
			"Keep only the newest content verbatim and drop the oldest. Target length: {{target}} characters.\n\n{{content}}",
			map[string]interface{}{"target": strconv.Itoa(targetLen), "content": req.Content})
	case StrategyCustom:
		if req.CustomPrompt == "" {
			return "", errs.ValidationError("custom rewrite strategy requires a prompt", nil)
		}
		return template.Render(req.CustomPrompt, map[string]interface{}{"target": strconv.Itoa(targetLen), "content": req.Content})
	default:
		return "", errs.ValidationError("unrecognized rewrite strategy", nil)
	}
}

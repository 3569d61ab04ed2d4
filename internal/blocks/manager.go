// Package blocks implements C8: Block Manager, Auto-Rewriter, and
// Core-Memory Compiler over C1's block repository. The template engine
// lives in the template subpackage.
package blocks

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/kagent-dev/agentmem/internal/storage"
	"github.com/kagent-dev/agentmem/pkg/errs"
)

// Manager is C8's Block Manager: CRUD over blocks with limit validation and
// an opt-in auto-rewrite path when a write would exceed the block's limit.
type Manager struct {
	repo     *storage.BlockRepository
	rewriter *Rewriter
	cfg      RewriteConfig
	log      logr.Logger
}

func NewManager(repo *storage.BlockRepository, rewriter *Rewriter, cfg RewriteConfig, log logr.Logger) *Manager {
	return &Manager{repo: repo, rewriter: rewriter, cfg: cfg, log: log}
}

// Append concatenates text onto the block's current value. If the result
// would exceed the block's limit, autoRewrite must be true or the write is
// rejected (§4.8).
func (m *Manager) Append(ctx context.Context, orgID, id, text string, strategy Strategy, autoRewrite bool) (*storage.Block, error) {
	b, err := m.repo.Read(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return m.write(ctx, orgID, b, b.Value+text, strategy, autoRewrite)
}

// Overwrite replaces the block's value outright, subject to the same
// limit/auto-rewrite rule as Append.
func (m *Manager) Overwrite(ctx context.Context, orgID, id, text string, strategy Strategy, autoRewrite bool) (*storage.Block, error) {
	b, err := m.repo.Read(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return m.write(ctx, orgID, b, text, strategy, autoRewrite)
}

func (m *Manager) write(ctx context.Context, orgID string, b *storage.Block, newValue string, strategy Strategy, autoRewrite bool) (*storage.Block, error) {
	if len(newValue) > b.Limit {
		if !autoRewrite {
			return nil, errs.ValidationError("block write exceeds limit", nil)
		}
		rewritten, err := m.rewriter.Rewrite(ctx, RewriteRequest{Content: newValue, Limit: b.Limit, Strategy: strategy})
		if err != nil {
			return nil, err
		}
		newValue = rewritten
	} else if autoRewrite && fillRatio(len(newValue), b.Limit) >= m.cfg.RewriteThreshold {
		rewritten, err := m.rewriter.Rewrite(ctx, RewriteRequest{Content: newValue, Limit: b.Limit, Strategy: strategy})
		if err != nil {
			m.log.Info("proactive rewrite failed, keeping pre-rewrite value", "error", err.Error())
		} else {
			newValue = rewritten
		}
	}
	return m.repo.SetValue(ctx, orgID, b.ID, newValue)
}

func fillRatio(length, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(length) / float64(limit)
}

func (m *Manager) ListByUser(ctx context.Context, orgID, userID string) ([]storage.Block, error) {
	return m.repo.ListByUser(ctx, orgID, userID)
}

func (m *Manager) ListByType(ctx context.Context, orgID string, blockType storage.BlockType) ([]storage.Block, error) {
	return m.repo.ListByType(ctx, orgID, blockType)
}

func (m *Manager) ListByAgent(ctx context.Context, orgID, agentID string) ([]storage.Block, error) {
	return m.repo.ListByAgent(ctx, orgID, agentID)
}

package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

type BlockRepository struct {
	db *gorm.DB
}

func NewBlockRepository(m *Manager) *BlockRepository { return &BlockRepository{db: m.db} }

type BlockInput struct {
	UserID       string
	Label        string
	Value        string
	Limit        int
	BlockType    BlockType
	IsTemplate   bool
	TemplateName *string
	Metadata     string
}

func (r *BlockRepository) Create(ctx context.Context, orgID string, in BlockInput) (*Block, error) {
	if orgID == "" || in.UserID == "" || in.Label == "" {
		return nil, errs.ValidationError("organization_id, user_id and label are required", nil)
	}
	if in.Limit <= 0 {
		in.Limit = defaultLimitFor(in.BlockType)
	}
	if len(in.Value) > in.Limit {
		return nil, errs.ValidationError("block value exceeds limit on create", nil)
	}
	now := time.Now().UTC()
	b := &Block{
		ID: NewID(), OrganizationID: orgID, UserID: in.UserID, Label: in.Label, Value: in.Value,
		Limit: in.Limit, BlockType: in.BlockType, IsTemplate: in.IsTemplate, TemplateName: in.TemplateName,
		Metadata: in.Metadata, CreatedAt: now, UpdatedAt: now,
	}
	if err := dbFromContext(ctx, r.db).WithContext(ctx).Create(b).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errs.ConflictError("a block with this label already exists for the user", err)
		}
		return nil, errs.TransientError("failed to create block", err)
	}
	return b, nil
}

func defaultLimitFor(t BlockType) int {
	switch t {
	case BlockTypeSystem:
		return 1000
	default:
		return 2000
	}
}

func (r *BlockRepository) Read(ctx context.Context, orgID, id string) (*Block, error) {
	var b Block
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundError("block not found", err)
	}
	if err != nil {
		return nil, errs.TransientError("failed to read block", err)
	}
	return &b, nil
}

// SetValue overwrites a block's value under I3: a write that would exceed
// limit is rejected here; callers that want auto-rewrite must compact the
// value themselves (via the blocks package's rewriter) before calling this.
func (r *BlockRepository) SetValue(ctx context.Context, orgID, id, value string) (*Block, error) {
	b, err := r.Read(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if len(value) > b.Limit {
		return nil, errs.ValidationError("block write exceeds limit", nil)
	}
	now := time.Now().UTC()
	res := dbFromContext(ctx, r.db).WithContext(ctx).Model(&Block{}).
		Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).
		Updates(map[string]interface{}{"value": value, "updated_at": now})
	if res.Error != nil {
		return nil, errs.TransientError("failed to update block value", res.Error)
	}
	return r.Read(ctx, orgID, id)
}

func (r *BlockRepository) ListByUser(ctx context.Context, orgID, userID string) ([]Block, error) {
	var blocks []Block
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("organization_id = ? AND user_id = ? AND is_deleted = ?", orgID, userID, false).Find(&blocks).Error
	if err != nil {
		return nil, errs.TransientError("failed to list blocks by user", err)
	}
	return blocks, nil
}

func (r *BlockRepository) ListByType(ctx context.Context, orgID string, blockType BlockType) ([]Block, error) {
	var blocks []Block
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("organization_id = ? AND block_type = ? AND is_deleted = ?", orgID, blockType, false).Find(&blocks).Error
	if err != nil {
		return nil, errs.TransientError("failed to list blocks by type", err)
	}
	return blocks, nil
}

// ListByAgent joins through blocks_agents (§4.8: "list_by_agent (joined via association)").
func (r *BlockRepository) ListByAgent(ctx context.Context, orgID, agentID string) ([]Block, error) {
	var blocks []Block
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Joins("JOIN blocks_agents ON blocks_agents.block_id = blocks.id").
		Where("blocks_agents.agent_id = ? AND blocks.organization_id = ? AND blocks.is_deleted = ?", agentID, orgID, false).
		Find(&blocks).Error
	if err != nil {
		return nil, errs.TransientError("failed to list blocks by agent", err)
	}
	return blocks, nil
}

// BumpAccess updates best-effort access statistics (§3: "updated asynchronously").
func (r *BlockRepository) BumpAccess(ctx context.Context, orgID, id string) error {
	now := time.Now().UTC()
	res := dbFromContext(ctx, r.db).WithContext(ctx).Model(&Block{}).
		Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).
		Updates(map[string]interface{}{"access_count": gorm.Expr("access_count + 1"), "last_accessed_at": now})
	if res.Error != nil {
		return errs.TransientError("failed to bump block access stats", res.Error)
	}
	return nil
}

// Delete removes the block and its association rows (§3 relationships:
// "Block deletion removes association rows").
func (r *BlockRepository) Delete(ctx context.Context, orgID, id string) error {
	now := time.Now().UTC()
	return dbFromContext(ctx, r.db).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Block{}).Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).
			Updates(map[string]interface{}{"is_deleted": true, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NotFoundError("block not found", nil)
		}
		return tx.Where("block_id = ?", id).Delete(&BlockAgent{}).Error
	})
}

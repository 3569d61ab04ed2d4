package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

type ToolRepository struct {
	db *gorm.DB
}

func NewToolRepository(m *Manager) *ToolRepository { return &ToolRepository{db: m.db} }

type ToolInput struct {
	Name       string
	SourceType ToolSourceType
	SourceCode string
	JSONSchema string
	Tags       []string
}

func (r *ToolRepository) Create(ctx context.Context, orgID string, in ToolInput) (*Tool, error) {
	if orgID == "" || in.Name == "" || in.SourceCode == "" {
		return nil, errs.ValidationError("organization_id, name and source_code are required", nil)
	}
	switch in.SourceType {
	case ToolSourceBash, ToolSourcePython, ToolSourceJavaScript:
	default:
		return nil, errs.ValidationError("invalid tool source_type", nil)
	}
	now := time.Now().UTC()
	t := &Tool{
		ID: NewID(), OrganizationID: orgID, Name: in.Name, SourceType: in.SourceType,
		SourceCode: in.SourceCode, JSONSchema: in.JSONSchema, Tags: in.Tags,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := dbFromContext(ctx, r.db).WithContext(ctx).Create(t).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errs.ConflictError("a tool with this name already exists in the organization", err)
		}
		return nil, errs.TransientError("failed to create tool", err)
	}
	return t, nil
}

func (r *ToolRepository) Read(ctx context.Context, orgID, id string) (*Tool, error) {
	var t Tool
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundError("tool not found", err)
	}
	if err != nil {
		return nil, errs.TransientError("failed to read tool", err)
	}
	return &t, nil
}

func (r *ToolRepository) List(ctx context.Context, orgID string) ([]Tool, error) {
	var tools []Tool
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("organization_id = ? AND is_deleted = ?", orgID, false).Find(&tools).Error
	if err != nil {
		return nil, errs.TransientError("failed to list tools", err)
	}
	return tools, nil
}

// ListByAgent joins through tools_agents.
func (r *ToolRepository) ListByAgent(ctx context.Context, orgID, agentID string) ([]Tool, error) {
	var tools []Tool
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Joins("JOIN tools_agents ON tools_agents.tool_id = tools.id").
		Where("tools_agents.agent_id = ? AND tools.organization_id = ? AND tools.is_deleted = ?", agentID, orgID, false).
		Find(&tools).Error
	if err != nil {
		return nil, errs.TransientError("failed to list tools by agent", err)
	}
	return tools, nil
}

func (r *ToolRepository) Delete(ctx context.Context, orgID, id string) error {
	now := time.Now().UTC()
	return dbFromContext(ctx, r.db).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Tool{}).Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).
			Updates(map[string]interface{}{"is_deleted": true, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NotFoundError("tool not found", nil)
		}
		return tx.Where("tool_id = ?", id).Delete(&ToolAgent{}).Error
	})
}

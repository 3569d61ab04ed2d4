package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

type AgentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(m *Manager) *AgentRepository { return &AgentRepository{db: m.db} }

// AgentInput carries the fields a caller may set on Create/Update.
type AgentInput struct {
	Name            string
	SystemPrompt    string
	LLMConfig       string
	EmbeddingConfig string
	ToolRules       string
	CreatedByID     string
	LastUpdatedByID string
}

func (r *AgentRepository) Create(ctx context.Context, orgID string, in AgentInput) (*Agent, error) {
	if orgID == "" || in.Name == "" {
		return nil, errs.ValidationError("organization_id and name are required", nil)
	}
	now := time.Now().UTC()
	a := &Agent{
		ID: NewID(), OrganizationID: orgID, Name: in.Name, SystemPrompt: in.SystemPrompt,
		LLMConfig: in.LLMConfig, EmbeddingConfig: in.EmbeddingConfig, ToolRules: in.ToolRules,
		CreatedByID: in.CreatedByID, LastUpdatedByID: in.LastUpdatedByID,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := dbFromContext(ctx, r.db).WithContext(ctx).Create(a).Error; err != nil {
		return nil, errs.TransientError("failed to create agent", err)
	}
	return a, nil
}

func (r *AgentRepository) Read(ctx context.Context, orgID, id string) (*Agent, error) {
	var a Agent
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundError("agent not found", err)
	}
	if err != nil {
		return nil, errs.TransientError("failed to read agent", err)
	}
	return &a, nil
}

func (r *AgentRepository) List(ctx context.Context, orgID string) ([]Agent, error) {
	var agents []Agent
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("organization_id = ? AND is_deleted = ?", orgID, false).Find(&agents).Error
	if err != nil {
		return nil, errs.TransientError("failed to list agents", err)
	}
	return agents, nil
}

func (r *AgentRepository) Update(ctx context.Context, orgID, id string, in AgentInput) (*Agent, error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{"updated_at": now}
	if in.Name != "" {
		updates["name"] = in.Name
	}
	updates["system_prompt"] = in.SystemPrompt
	updates["llm_config"] = in.LLMConfig
	updates["embedding_config"] = in.EmbeddingConfig
	updates["tool_rules"] = in.ToolRules
	updates["last_updated_by_id"] = in.LastUpdatedByID

	res := dbFromContext(ctx, r.db).WithContext(ctx).Model(&Agent{}).
		Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).Updates(updates)
	if res.Error != nil {
		return nil, errs.TransientError("failed to update agent", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.NotFoundError("agent not found", nil)
	}
	return r.Read(ctx, orgID, id)
}

// Delete cascades to the agent's Messages and association rows, and orphans
// (rather than erases) its Memories by nulling agent_id (§3 relationships).
func (r *AgentRepository) Delete(ctx context.Context, orgID, id string) error {
	now := time.Now().UTC()
	return dbFromContext(ctx, r.db).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Agent{}).Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).
			Updates(map[string]interface{}{"is_deleted": true, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NotFoundError("agent not found", nil)
		}
		if err := tx.Model(&Message{}).Where("agent_id = ? AND organization_id = ?", id, orgID).
			Updates(map[string]interface{}{"is_deleted": true}).Error; err != nil {
			return err
		}
		if err := tx.Exec("UPDATE memories SET agent_id = NULL WHERE agent_id = ? AND organization_id = ?", id, orgID).Error; err != nil {
			return err
		}
		if err := tx.Where("agent_id = ?", id).Delete(&BlockAgent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("agent_id = ?", id).Delete(&ToolAgent{}).Error; err != nil {
			return err
		}
		return nil
	})
}

// AssociateBlock links a Block to an Agent (many-to-many).
func (r *AgentRepository) AssociateBlock(ctx context.Context, agentID, blockID string) error {
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Clauses(onConflictDoNothing()).
		Create(&BlockAgent{AgentID: agentID, BlockID: blockID}).Error
	if err != nil {
		return errs.TransientError("failed to associate block with agent", err)
	}
	return nil
}

// AssociateTool links a Tool to an Agent (many-to-many).
func (r *AgentRepository) AssociateTool(ctx context.Context, agentID, toolID string) error {
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Clauses(onConflictDoNothing()).
		Create(&ToolAgent{AgentID: agentID, ToolID: toolID}).Error
	if err != nil {
		return errs.TransientError("failed to associate tool with agent", err)
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

// MessageRepository stores immutable, append-only conversational turns.
// There is deliberately no Update method (§3 Lifecycles: "Messages are
// immutable once written").
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(m *Manager) *MessageRepository { return &MessageRepository{db: m.db} }

func (r *MessageRepository) Create(ctx context.Context, orgID, agentID string, userID *string, role MessageRole, content string) (*Message, error) {
	if orgID == "" || agentID == "" || content == "" {
		return nil, errs.ValidationError("organization_id, agent_id and content are required", nil)
	}
	switch role {
	case MessageRoleUser, MessageRoleAssistant, MessageRoleSystem, MessageRoleTool:
	default:
		return nil, errs.ValidationError("invalid message role", nil)
	}

	msg := &Message{
		ID: NewID(), OrganizationID: orgID, AgentID: agentID, UserID: userID,
		Role: role, Content: content, CreatedAt: time.Now().UTC(),
	}
	if err := dbFromContext(ctx, r.db).WithContext(ctx).Create(msg).Error; err != nil {
		return nil, errs.TransientError("failed to create message", err)
	}
	return msg, nil
}

func (r *MessageRepository) Read(ctx context.Context, orgID, id string) (*Message, error) {
	var msg Message
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundError("message not found", err)
	}
	if err != nil {
		return nil, errs.TransientError("failed to read message", err)
	}
	return &msg, nil
}

// ListByAgent replays an agent's messages in creation order, exercising the
// (agent_id, created_at) index from §4.1.
func (r *MessageRepository) ListByAgent(ctx context.Context, orgID, agentID string, limit int) ([]Message, error) {
	q := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("organization_id = ? AND agent_id = ? AND is_deleted = ?", orgID, agentID, false).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var msgs []Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, errs.TransientError("failed to list messages", err)
	}
	return msgs, nil
}

func (r *MessageRepository) Delete(ctx context.Context, orgID, id string) error {
	res := dbFromContext(ctx, r.db).WithContext(ctx).Model(&Message{}).
		Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).
		Updates(map[string]interface{}{"is_deleted": true})
	if res.Error != nil {
		return errs.TransientError("failed to delete message", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFoundError("message not found", nil)
	}
	return nil
}

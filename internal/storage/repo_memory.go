package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

type MemoryRepository struct {
	db *gorm.DB
}

func NewMemoryRepository(m *Manager) *MemoryRepository { return &MemoryRepository{db: m.db} }

// MemoryInput carries the fields set on creation or mutation.
type MemoryInput struct {
	AgentID       *string
	UserID        *string
	Content       string
	ContentVector []byte
	MemoryType    MemoryType
	Importance    float64
	Tags          []string
	Metadata      string
	SearchVector  string
}

func (r *MemoryRepository) Create(ctx context.Context, orgID string, in MemoryInput) (*Memory, error) {
	if orgID == "" || in.Content == "" {
		return nil, errs.ValidationError("organization_id and content are required", nil)
	}
	if !validMemoryType(in.MemoryType) {
		return nil, errs.ValidationError("invalid memory_type", nil)
	}
	now := time.Now().UTC()
	mem := &Memory{
		ID: NewID(), OrganizationID: orgID, AgentID: in.AgentID, UserID: in.UserID,
		Content: in.Content, ContentVector: in.ContentVector, MemoryType: in.MemoryType,
		Importance: in.Importance, Tags: in.Tags, Metadata: in.Metadata, SearchVector: in.SearchVector,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := dbFromContext(ctx, r.db).WithContext(ctx).Create(mem).Error; err != nil {
		return nil, errs.TransientError("failed to create memory", err)
	}
	return mem, nil
}

func validMemoryType(t MemoryType) bool {
	switch t {
	case MemoryTypeEpisodic, MemoryTypeSemantic, MemoryTypeProcedural, MemoryTypeWorking,
		MemoryTypeCore, MemoryTypeResource, MemoryTypeKnowledge, MemoryTypeContextual:
		return true
	default:
		return false
	}
}

func (r *MemoryRepository) Read(ctx context.Context, orgID, id string) (*Memory, error) {
	var mem Memory
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).First(&mem).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundError("memory not found", err)
	}
	if err != nil {
		return nil, errs.TransientError("failed to read memory", err)
	}
	return &mem, nil
}

// ReadMany hydrates a set of memory ids, preserving I1 filtering. Used by
// C7 to join vector-search hits back to their stored content (§4.7 step 2b).
func (r *MemoryRepository) ReadMany(ctx context.Context, orgID string, ids []string) ([]Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var mems []Memory
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("organization_id = ? AND is_deleted = ? AND id IN ?", orgID, false, ids).Find(&mems).Error
	if err != nil {
		return nil, errs.TransientError("failed to hydrate memories", err)
	}
	return mems, nil
}

func (r *MemoryRepository) Update(ctx context.Context, orgID, id string, in MemoryInput) (*Memory, error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"content":        in.Content,
		"content_vector": in.ContentVector,
		"tags":           in.Tags,
		"metadata":       in.Metadata,
		"search_vector":  in.SearchVector,
		"updated_at":     now,
	}
	if in.MemoryType != "" {
		updates["memory_type"] = in.MemoryType
	}
	res := dbFromContext(ctx, r.db).WithContext(ctx).Model(&Memory{}).
		Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).Updates(updates)
	if res.Error != nil {
		return nil, errs.TransientError("failed to update memory", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.NotFoundError("memory not found", nil)
	}
	return r.Read(ctx, orgID, id)
}

// Delete soft-deletes (tombstones) the memory row. Memories are never hard
// deleted in-band (§3 Lifecycles).
func (r *MemoryRepository) Delete(ctx context.Context, orgID, id string) error {
	res := dbFromContext(ctx, r.db).WithContext(ctx).Model(&Memory{}).
		Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).
		Updates(map[string]interface{}{"is_deleted": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return errs.TransientError("failed to delete memory", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFoundError("memory not found", nil)
	}
	return nil
}

// BumpAccess increments access_count and last_accessed_at for a NOOP
// decision or a read hit (§4.7 step 2d: "optionally bump access_count").
func (r *MemoryRepository) BumpAccess(ctx context.Context, orgID, id string) error {
	now := time.Now().UTC()
	res := dbFromContext(ctx, r.db).WithContext(ctx).Model(&Memory{}).
		Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).
		Updates(map[string]interface{}{"access_count": gorm.Expr("access_count + 1"), "last_accessed_at": now})
	if res.Error != nil {
		return errs.TransientError("failed to bump memory access stats", res.Error)
	}
	return nil
}

// List returns memories for an org, optionally filtered by agent/user, for
// operational inspection (not the hot search path -- that's C2/C3/C4).
func (r *MemoryRepository) List(ctx context.Context, orgID string, agentID, userID *string) ([]Memory, error) {
	q := dbFromContext(ctx, r.db).WithContext(ctx).Where("organization_id = ? AND is_deleted = ?", orgID, false)
	if agentID != nil {
		q = q.Where("agent_id = ?", *agentID)
	}
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	var mems []Memory
	if err := q.Find(&mems).Error; err != nil {
		return nil, errs.TransientError("failed to list memories", err)
	}
	return mems, nil
}

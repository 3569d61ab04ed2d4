package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

// OrganizationRepository is the root-of-tenancy repository. Unlike every
// other repository it is not itself organization-scoped.
type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(m *Manager) *OrganizationRepository {
	return &OrganizationRepository{db: m.db}
}

func (r *OrganizationRepository) Create(ctx context.Context, name string) (*Organization, error) {
	if name == "" {
		return nil, errs.ValidationError("organization name is required", nil)
	}
	now := time.Now().UTC()
	org := &Organization{ID: NewID(), Name: name, CreatedAt: now, UpdatedAt: now}
	if err := dbFromContext(ctx, r.db).WithContext(ctx).Create(org).Error; err != nil {
		return nil, errs.TransientError("failed to create organization", err)
	}
	return org, nil
}

func (r *OrganizationRepository) Read(ctx context.Context, id string) (*Organization, error) {
	var org Organization
	err := dbFromContext(ctx, r.db).WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundError("organization not found", err)
	}
	if err != nil {
		return nil, errs.TransientError("failed to read organization", err)
	}
	return &org, nil
}

func (r *OrganizationRepository) List(ctx context.Context) ([]Organization, error) {
	var orgs []Organization
	if err := dbFromContext(ctx, r.db).WithContext(ctx).Where("is_deleted = ?", false).Find(&orgs).Error; err != nil {
		return nil, errs.TransientError("failed to list organizations", err)
	}
	return orgs, nil
}

// Delete tombstones the organization and cascades the tombstone to every
// descendant row (§3 relationships: "Deleting an Organization tombstones
// all descendants").
func (r *OrganizationRepository) Delete(ctx context.Context, id string) error {
	tx := dbFromContext(ctx, r.db).WithContext(ctx)
	now := time.Now().UTC()

	return tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Organization{}).Where("id = ?", id).Updates(map[string]interface{}{"is_deleted": true, "updated_at": now}).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{&User{}, &Agent{}, &Message{}, &Memory{}, &Block{}, &Tool{}} {
			if err := tx.Model(model).Where("organization_id = ?", id).Updates(map[string]interface{}{"is_deleted": true, "updated_at": now}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

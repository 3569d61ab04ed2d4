package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

// UserRepository enforces I1 on every operation: all reads/writes are
// filtered by organization_id.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(m *Manager) *UserRepository { return &UserRepository{db: m.db} }

func (r *UserRepository) Create(ctx context.Context, orgID, email, passwordHash string, role Role) (*User, error) {
	if orgID == "" || email == "" {
		return nil, errs.ValidationError("organization_id and email are required", nil)
	}
	switch role {
	case RoleAdmin, RoleUser, RoleReadOnly:
	default:
		return nil, errs.ValidationError("invalid role", nil)
	}

	now := time.Now().UTC()
	u := &User{ID: NewID(), OrganizationID: orgID, Email: email, PasswordHash: passwordHash, Role: role, CreatedAt: now, UpdatedAt: now}
	if err := dbFromContext(ctx, r.db).WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errs.ConflictError("email already registered in organization", err)
		}
		return nil, errs.TransientError("failed to create user", err)
	}
	return u, nil
}

func (r *UserRepository) Read(ctx context.Context, orgID, id string) (*User, error) {
	var u User
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundError("user not found", err)
	}
	if err != nil {
		return nil, errs.TransientError("failed to read user", err)
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, orgID, email string) (*User, error) {
	var u User
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("organization_id = ? AND email = ? AND is_deleted = ?", orgID, email, false).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundError("user not found", err)
	}
	if err != nil {
		return nil, errs.TransientError("failed to find user by email", err)
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context, orgID string) ([]User, error) {
	var users []User
	err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("organization_id = ? AND is_deleted = ?", orgID, false).Find(&users).Error
	if err != nil {
		return nil, errs.TransientError("failed to list users", err)
	}
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, orgID, id string, role Role) (*User, error) {
	now := time.Now().UTC()
	tx := dbFromContext(ctx, r.db).WithContext(ctx)
	res := tx.Model(&User{}).Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).
		Updates(map[string]interface{}{"role": role, "updated_at": now})
	if res.Error != nil {
		return nil, errs.TransientError("failed to update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.NotFoundError("user not found", nil)
	}
	return r.Read(ctx, orgID, id)
}

func (r *UserRepository) Delete(ctx context.Context, orgID, id string) error {
	now := time.Now().UTC()
	res := dbFromContext(ctx, r.db).WithContext(ctx).Model(&User{}).
		Where("id = ? AND organization_id = ? AND is_deleted = ?", id, orgID, false).
		Updates(map[string]interface{}{"is_deleted": true, "updated_at": now})
	if res.Error != nil {
		return errs.TransientError("failed to delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFoundError("user not found", nil)
	}
	return nil
}

// isUniqueViolation is a best-effort, driver-agnostic check for unique
// constraint violations. Postgres (pgx) and SQLite report these with
// different error shapes; the "translate error" GORM mode combined with this
// substring check covers both without importing a driver-specific error type
// into the repository layer.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, sub := range []string{"unique constraint", "UNIQUE constraint", "duplicate key"} {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}

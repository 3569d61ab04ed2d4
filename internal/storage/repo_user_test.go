package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/agentmem/internal/storage"
	"github.com/kagent-dev/agentmem/pkg/errs"
)

func TestUserRepository_CreateReadFindByEmailList(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	orgID := createTestOrg(t, m)
	users := storage.NewUserRepository(m)

	u, err := users.Create(ctx, orgID, "ada@example.com", "hash", storage.RoleAdmin)
	require.NoError(t, err)

	got, err := users.Read(ctx, orgID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)

	byEmail, err := users.FindByEmail(ctx, orgID, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	list, err := users.List(ctx, orgID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUserRepository_CreateRejectsInvalidRole(t *testing.T) {
	m := newTestManager(t)
	users := storage.NewUserRepository(m)
	orgID := createTestOrg(t, m)

	_, err := users.Create(context.Background(), orgID, "ada@example.com", "hash", storage.Role("superadmin"))
	require.Error(t, err)
	assert.Equal(t, errs.Validation, errs.KindOf(err))
}

func TestUserRepository_CreateRejectsDuplicateEmailInOrg(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	orgID := createTestOrg(t, m)
	users := storage.NewUserRepository(m)

	_, err := users.Create(ctx, orgID, "ada@example.com", "hash", storage.RoleUser)
	require.NoError(t, err)

	_, err = users.Create(ctx, orgID, "ada@example.com", "hash2", storage.RoleUser)
	require.Error(t, err)
	assert.Equal(t, errs.Conflict, errs.KindOf(err))
}

func TestUserRepository_UpdateAndDelete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	orgID := createTestOrg(t, m)
	users := storage.NewUserRepository(m)

	u, err := users.Create(ctx, orgID, "ada@example.com", "hash", storage.RoleUser)
	require.NoError(t, err)

	updated, err := users.Update(ctx, orgID, u.ID, storage.RoleReadOnly)
	require.NoError(t, err)
	assert.Equal(t, storage.RoleReadOnly, updated.Role)

	require.NoError(t, users.Delete(ctx, orgID, u.ID))

	_, err = users.Read(ctx, orgID, u.ID)
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

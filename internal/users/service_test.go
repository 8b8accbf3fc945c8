package users

import (
	"context"
	"io"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo, config.PasswordConfig{}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, repo
}

func TestCreateHashesAndNormalizes(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Email: " Staff@Example.com ", Name: "Staff", Password: "long-enough", Role: enums.UserRoleStaff})
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", user.Email)
	assert.True(t, user.IsActive)

	stored, err := repo.FindByEmail(ctx, "staff@example.com")
	require.NoError(t, err)
	ok, err := security.VerifyPassword("long-enough", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Create(ctx, CreateUserInput{Email: "staff@example.com", Name: "Again", Password: "long-enough", Role: enums.UserRoleStaff})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestCreateValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Email: "x@example.com", Name: "X", Password: "short", Role: enums.UserRoleStaff})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, CreateUserInput{Email: "x@example.com", Name: "X", Password: "long-enough", Role: enums.UserRole("owner")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, CreateUserInput{Email: "not-mail", Name: "X", Password: "long-enough", Role: enums.UserRoleStaff})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateAndList(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, CreateUserInput{Email: "b@example.com", Name: "B", Password: "long-enough", Role: enums.UserRoleStaff})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateUserInput{Email: "a@example.com", Name: "A", Password: "long-enough", Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	role := enums.UserRoleAdmin
	inactive := false
	newPassword := "rotated-secret"
	updated, err := svc.Update(ctx, created.ID, UpdateUserInput{Role: &role, IsActive: &inactive, Password: &newPassword})
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, updated.Role)
	assert.False(t, updated.IsActive)

	stored, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	ok, err := security.VerifyPassword(newPassword, stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := svc.List(ctx, pagination.Page{})
	require.NoError(t, err)
	require.Len(t, list.Users, 2)
	assert.Equal(t, "a@example.com", list.Users[0].Email)
	assert.Equal(t, int64(2), list.Pagination.Total)

	_, err = svc.Update(ctx, uuid.New(), UpdateUserInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteRefusesSelf(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	admin, err := svc.Create(ctx, CreateUserInput{Email: "admin@example.com", Name: "Admin", Password: "long-enough", Role: enums.UserRoleAdmin})
	require.NoError(t, err)
	staff, err := svc.Create(ctx, CreateUserInput{Email: "staff@example.com", Name: "Staff", Password: "long-enough", Role: enums.UserRoleStaff})
	require.NoError(t, err)

	err = svc.Delete(ctx, admin.ID, admin.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	require.NoError(t, svc.Delete(ctx, staff.ID, admin.ID))
	_, err = svc.Get(ctx, staff.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	err = svc.Delete(ctx, staff.ID, admin.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestEnsureBootstrapAdminOnlyOnEmptyTable(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.EnsureBootstrapAdmin(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = svc.EnsureBootstrapAdmin(ctx, "Root@Example.com", "bootstrap-secret")
	require.NoError(t, err)
	assert.True(t, created)

	user, err := repo.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, user.Role)

	created, err = svc.EnsureBootstrapAdmin(ctx, "other@example.com", "bootstrap-secret")
	require.NoError(t, err)
	assert.False(t, created)
}

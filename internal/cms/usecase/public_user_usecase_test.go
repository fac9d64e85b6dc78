package usecase

import (
	"context"
	"testing"
	"time"

	"blog-cms/internal/cms/adapter/tabular"
	"blog-cms/internal/cms/domain/model"
	apperrors "blog-cms/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicUser_UpdateIsPartial(t *testing.T) {
	f := newFixture(t)
	uc := NewPublicUserUsecase(f.deps)
	ctx := context.Background()
	require.NoError(t, f.stores.PublicUsers.Set(ctx, "u1", &model.PublicUser{
		ID: "u1", Email: "u1@example.com", DisplayName: "Old", AvatarURL: "https://img/a.png",
	}))

	name := "  New Name "
	empty := ""
	user, err := uc.UpdatePublicUser(ctx, UpdatePublicUserRequest{ID: "u1", DisplayName: &name, AvatarURL: &empty})
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.DisplayName)

	stored, err := uc.GetPublicUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "New Name", stored.DisplayName)
	assert.Empty(t, stored.AvatarURL)
	assert.Equal(t, "u1@example.com", stored.Email)
	assert.False(t, stored.OptInConfirmed)
	assert.True(t, stored.LastModifiedTimestamp.Equal(testNow))

	bad := "not a url"
	_, err = uc.UpdatePublicUser(ctx, UpdatePublicUserRequest{ID: "u1", AvatarURL: &bad})
	assert.True(t, apperrors.IsValidation(err))

	_, err = uc.UpdatePublicUser(ctx, UpdatePublicUserRequest{ID: "missing", DisplayName: &name})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPublicUser_ListExportDelete(t *testing.T) {
	f := newFixture(t)
	uc := NewPublicUserUsecase(f.deps)
	ctx := context.Background()
	require.NoError(t, f.stores.PublicUsers.Set(ctx, "u1", &model.PublicUser{ID: "u1", Email: "a@example.com", EmailVerified: true, CreatedTimestamp: testNow.Add(-2 * time.Hour)}))
	require.NoError(t, f.stores.PublicUsers.Set(ctx, "u2", &model.PublicUser{ID: "u2", Email: "b@example.com", CreatedTimestamp: testNow.Add(-time.Hour)}))

	users, err := uc.ListPublicUsers(ctx, PageRequest{Limit: 1})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].ID)

	file, err := uc.ExportPublicUsers(ctx, ExportRequest{Filter: "user.emailVerified"})
	require.NoError(t, err)
	assert.Equal(t, 1, file.Count)
	table, err := tabular.Decode(tabular.FormatCSV, file.Data)
	require.NoError(t, err)
	assert.Equal(t, "u1", tabular.Value(table.Rows[0], table.Column("id")))

	require.NoError(t, uc.DeletePublicUser(ctx, "u1"))
	_, err = uc.GetPublicUser(ctx, "u1")
	assert.True(t, apperrors.IsNotFound(err))
}

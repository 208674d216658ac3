package profile

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
	"github.com/fastygo/todo/repository/boltdb"
)

func setup(t *testing.T) (*UseCase, repository.UserRepository) {
	t.Helper()
	store, err := boltdb.Open(filepath.Join(t.TempDir(), "profile.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	users := boltdb.NewUserRepository(store)
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, users.Create(context.Background(), &domain.User{
		ID:        "user-1",
		Email:     "ann@example.com",
		Name:      "Ann",
		Role:      domain.RoleUser,
		Status:    domain.UserStatusActive,
		CreatedAt: created,
		UpdatedAt: created,
	}))

	uc := New(users, nil)
	uc.now = func() time.Time { return time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC) }
	return uc, users
}

func TestUpdateProfileTrimsAndStores(t *testing.T) {
	uc, users := setup(t)
	ctx := context.Background()

	updated, err := uc.UpdateProfile(ctx, "user-1", UpdateInput{Name: "  Ann Lee  "})
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", updated.Name)

	stored, err := users.GetByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", stored.Name)
	assert.Equal(t, time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC), stored.UpdatedAt.UTC())
}

func TestUpdateProfileRejectsLongName(t *testing.T) {
	uc, _ := setup(t)

	_, err := uc.UpdateProfile(context.Background(), "user-1", UpdateInput{Name: strings.Repeat("a", 101)})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}

func TestGetProfileUnknownUser(t *testing.T) {
	uc, _ := setup(t)

	_, err := uc.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pitchplease/facility-booking/services/auth-service/internal/domain"
)

func newRepo(t *testing.T) *UserRepo {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	r := NewUserRepo(gdb)
	require.NoError(t, r.Migrate())
	return r
}

func TestUserLookups(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := &domain.User{Email: "a@example.com", PasswordHash: "x", Role: domain.RoleUser}
	require.NoError(t, r.Create(ctx, u))
	assert.Len(t, u.ID, 36)

	got, err := r.ByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = r.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)

	_, err = r.ByEmail(ctx, "b@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Error(t, r.Create(ctx, &domain.User{Email: "a@example.com", PasswordHash: "y", Role: domain.RoleUser}))
}

func TestInvalidTokens(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Invalidate(ctx, "jti-old", now.Add(-time.Minute)))
	require.NoError(t, r.Invalidate(ctx, "jti-live", now.Add(time.Hour)))
	require.NoError(t, r.Invalidate(ctx, "jti-live", now.Add(time.Hour)))

	bad, err := r.IsInvalid(ctx, "jti-live")
	require.NoError(t, err)
	assert.True(t, bad)
	bad, err = r.IsInvalid(ctx, "jti-other")
	require.NoError(t, err)
	assert.False(t, bad)

	n, err := r.PurgeInvalid(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	bad, _ = r.IsInvalid(ctx, "jti-old")
	assert.False(t, bad)
}

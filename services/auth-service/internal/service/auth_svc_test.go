package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pitchplease/facility-booking/pkg/auth"
	"github.com/pitchplease/facility-booking/services/auth-service/internal/domain"
	"github.com/pitchplease/facility-booking/services/auth-service/internal/repository"
)

func newSvc(t *testing.T) *AuthSvc {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	repo := repository.NewUserRepo(gdb)
	require.NoError(t, repo.Migrate())

	log, _ := test.NewNullLogger()
	s := NewAuthSvc(repo, auth.NewSigner("test-secret"), TTL{Access: time.Minute, Refresh: time.Hour}, log)
	s.cost = bcrypt.MinCost
	return s
}

func register(t *testing.T, s *AuthSvc, email, role string) *domain.User {
	t.Helper()
	u, err := s.Register(context.Background(), domain.RegisterRequest{Email: email, Password: "password1", Name: "Al", Role: role})
	require.NoError(t, err)
	return u
}

func TestRegisterDefaultsAndRules(t *testing.T) {
	s := newSvc(t)
	u := register(t, s, " Alice@Example.com ", "")
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "password1", u.PasswordHash)

	_, err := s.Register(context.Background(), domain.RegisterRequest{Email: "alice@example.com", Password: "password1"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = s.Register(context.Background(), domain.RegisterRequest{Email: "b@example.com", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Register(context.Background(), domain.RegisterRequest{Email: "nope", Password: "password1"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Register(context.Background(), domain.RegisterRequest{Email: "c@example.com", Password: "password1", Role: "admin"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	owner := register(t, s, "d@example.com", "owner")
	assert.Equal(t, domain.RoleOwner, owner.Role)
}

func TestLoginAndValidate(t *testing.T) {
	s := newSvc(t)
	u := register(t, s, "a@example.com", "OWNER")

	_, err := s.Login(context.Background(), "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = s.Login(context.Background(), "ghost@example.com", "password1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	pair, err := s.Login(context.Background(), "A@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, pair.User.ID)

	p, err := s.Validate(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{Sub: u.ID, Role: "OWNER", Email: "a@example.com"}, *p)

	// a refresh token is not an access token
	_, err = s.Validate(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = s.Validate(context.Background(), "garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRefreshRotates(t *testing.T) {
	s := newSvc(t)
	register(t, s, "a@example.com", "")
	pair, err := s.Login(context.Background(), "a@example.com", "password1")
	require.NoError(t, err)

	next, err := s.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)

	_, err = s.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "old refresh token is spent")

	_, err = s.Refresh(context.Background(), next.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogoutInvalidatesBothTokens(t *testing.T) {
	s := newSvc(t)
	register(t, s, "a@example.com", "")
	pair, err := s.Login(context.Background(), "a@example.com", "password1")
	require.NoError(t, err)

	require.NoError(t, s.Logout(context.Background(), pair.AccessToken, pair.RefreshToken))

	_, err = s.Validate(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = s.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	assert.ErrorIs(t, s.Logout(context.Background(), pair.AccessToken, ""), domain.ErrUnauthorized)
}

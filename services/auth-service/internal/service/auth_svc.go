package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/pitchplease/facility-booking/pkg/auth"
	"github.com/pitchplease/facility-booking/services/auth-service/internal/domain"
)

type Store interface {
	Create(ctx context.Context, u *domain.User) error
	ByEmail(ctx context.Context, email string) (*domain.User, error)
	ByID(ctx context.Context, id string) (*domain.User, error)
	Invalidate(ctx context.Context, jti string, exp time.Time) error
	IsInvalid(ctx context.Context, jti string) (bool, error)
}

type TTL struct {
	Access  time.Duration
	Refresh time.Duration
}

type AuthSvc struct {
	repo   Store
	signer *auth.Signer
	ttl    TTL
	log    logrus.FieldLogger
	cost   int
}

func NewAuthSvc(r Store, signer *auth.Signer, ttl TTL, log logrus.FieldLogger) *AuthSvc {
	return &AuthSvc{repo: r, signer: signer, ttl: ttl, log: log, cost: bcrypt.DefaultCost}
}

const minPasswordLen = 8

func (s *AuthSvc) Register(ctx context.Context, in domain.RegisterRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is invalid", domain.ErrValidation)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLen)
	}
	role := domain.Role(strings.ToUpper(strings.TrimSpace(in.Role)))
	switch role {
	case "":
		role = domain.RoleUser
	case domain.RoleUser, domain.RoleOwner:
	default:
		// ADMIN is never self-assigned
		return nil, fmt.Errorf("%w: role %q cannot be registered", domain.ErrValidation, in.Role)
	}

	if _, err := s.repo.ByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{Email: email, PasswordHash: string(hash), Name: strings.TrimSpace(in.Name), Role: role}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user registered")
	return u, nil
}

func (s *AuthSvc) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	u, err := s.repo.ByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issue(u)
}

// Refresh exchanges a live refresh token for a new pair. The old refresh
// token is invalidated.
func (s *AuthSvc) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	c, err := s.live(ctx, refreshToken, auth.KindRefresh)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.ByID(ctx, c.Sub)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if err := s.repo.Invalidate(ctx, c.ID, c.ExpiresAt.Time); err != nil {
		return nil, fmt.Errorf("invalidate refresh token: %w", err)
	}
	return s.issue(u)
}

// Logout invalidates the access token and, when given, the refresh token.
func (s *AuthSvc) Logout(ctx context.Context, accessToken, refreshToken string) error {
	ac, err := s.live(ctx, accessToken, auth.KindAccess)
	if err != nil {
		return err
	}
	if err := s.repo.Invalidate(ctx, ac.ID, ac.ExpiresAt.Time); err != nil {
		return fmt.Errorf("invalidate access token: %w", err)
	}
	if refreshToken != "" {
		rc, err := s.signer.ParseValidate(refreshToken)
		if err == nil && rc.Sub == ac.Sub {
			if err := s.repo.Invalidate(ctx, rc.ID, rc.ExpiresAt.Time); err != nil {
				return fmt.Errorf("invalidate refresh token: %w", err)
			}
		}
	}
	s.log.WithField("user_id", ac.Sub).Info("user logged out")
	return nil
}

// Validate is the check the gateway delegates to for every protected request.
func (s *AuthSvc) Validate(ctx context.Context, accessToken string) (*domain.Principal, error) {
	c, err := s.live(ctx, accessToken, auth.KindAccess)
	if err != nil {
		return nil, err
	}
	return &domain.Principal{Sub: c.Sub, Role: c.Role, Email: c.Email}, nil
}

func (s *AuthSvc) live(ctx context.Context, tok, kind string) (*auth.Claims, error) {
	c, err := s.signer.ParseValidate(tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if c.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token", domain.ErrUnauthorized, kind)
	}
	revoked, err := s.repo.IsInvalid(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: token has been invalidated", domain.ErrUnauthorized)
	}
	return c, nil
}

func (s *AuthSvc) issue(u *domain.User) (*domain.TokenPair, error) {
	access, ac, err := s.signer.Create(u.ID, string(u.Role), u.Email, auth.KindAccess, s.ttl.Access)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, rc, err := s.signer.Create(u.ID, string(u.Role), u.Email, auth.KindRefresh, s.ttl.Refresh)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  ac.ExpiresAt.Time,
		RefreshExpiresAt: rc.ExpiresAt.Time,
		User:             u,
	}, nil
}

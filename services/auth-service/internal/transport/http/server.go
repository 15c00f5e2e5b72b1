package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/services/auth-service/internal/domain"
)

type AuthService interface {
	Register(ctx context.Context, in domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	Validate(ctx context.Context, accessToken string) (*domain.Principal, error)
}

type Server struct {
	svc AuthService
	log logrus.FieldLogger
}

func NewServer(svc AuthService, log logrus.FieldLogger) *Server {
	return &Server{svc: svc, log: log}
}

func (s *Server) Register(r gin.IRouter) {
	r.POST("/register", s.register)
	r.POST("/login", s.login)
	r.POST("/refresh_token", s.refresh)
	r.POST("/logout", s.logout)
	r.POST("/validate-token", s.validate)
}

func (s *Server) register(c *gin.Context) {
	var in domain.RegisterRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := s.svc.Register(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (s *Server) login(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pair, err := s.svc.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (s *Server) refresh(c *gin.Context) {
	var in struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pair, err := s.svc.Refresh(c.Request.Context(), in.RefreshToken)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// logout takes the access token from the body or, failing that, the
// Authorization header.
func (s *Server) logout(c *gin.Context) {
	var in struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	_ = c.ShouldBindJSON(&in)
	if in.AccessToken == "" {
		in.AccessToken = bearer(c)
	}
	if in.AccessToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accessToken is required"})
		return
	}
	if err := s.svc.Logout(c.Request.Context(), in.AccessToken, in.RefreshToken); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) validate(c *gin.Context) {
	tok := bearer(c)
	if tok == "" {
		var in struct {
			Token string `json:"token"`
		}
		_ = c.ShouldBindJSON(&in)
		tok = in.Token
	}
	if tok == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": "missing token"})
		return
	}
	p, err := s.svc.Validate(c.Request.Context(), tok)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": err.Error()})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "sub": p.Sub, "role": p.Role, "email": p.Email})
}

func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		s.log.WithError(err).WithField("path", c.FullPath()).Error("auth request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

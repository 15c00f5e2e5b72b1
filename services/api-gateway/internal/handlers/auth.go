package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthHandler relays the auth lifecycle routes unchanged.
type AuthHandler struct {
	auth Doer
	log  logrus.FieldLogger
}

func NewAuthHandler(auth Doer, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

func (h *AuthHandler) Register(c *gin.Context) { forward(c, h.log, h.auth, "register", "/register", nil) }

func (h *AuthHandler) Login(c *gin.Context) { forward(c, h.log, h.auth, "login", "/login", nil) }

func (h *AuthHandler) Refresh(c *gin.Context) {
	forward(c, h.log, h.auth, "refresh_token", "/refresh_token", nil)
}

func (h *AuthHandler) Logout(c *gin.Context) { forward(c, h.log, h.auth, "logout", "/logout", nil) }

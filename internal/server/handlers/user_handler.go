package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/service/auth"
)

// AuthService registers operators and opens sessions.
type AuthService interface {
	Register(ctx context.Context, in auth.Credentials) (*models.User, error)
	Login(ctx context.Context, in auth.Credentials) (*auth.Session, error)
	Users(ctx context.Context) ([]models.User, error)
}

// UserHandler serves /api/users.
type UserHandler struct {
	svc    AuthService
	logger *zap.Logger
}

func NewUserHandler(svc AuthService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{svc: svc, logger: logger}
}

func (h *UserHandler) Register(c *gin.Context) {
	var in auth.Credentials
	if !bindJSON(c, h.logger, &in) {
		return
	}
	user, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) Login(c *gin.Context) {
	var in auth.Credentials
	if !bindJSON(c, h.logger, &in) {
		return
	}
	session, err := h.svc.Login(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.svc.Users(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// Logout is stateless; the client drops its token.
func (h *UserHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out, discard the token on the client"})
}

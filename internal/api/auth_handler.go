package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/journal-submission-api/internal/auth"
	"github.com/journal-submission-api/internal/models"
	"github.com/journal-submission-api/internal/service"
	"github.com/rs/zerolog"
)

// AuthHandler handles account endpoints
type AuthHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(services *service.Services, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		services: services,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

// Register handles POST /api/auth/register/
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user, err := h.services.Auth.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Token handles POST /api/auth/token/
func (h *AuthHandler) Token(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	token, err := h.services.Auth.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// Me handles GET /api/auth/me/
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.services.Auth.Me(c.Request.Context(), auth.ActorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

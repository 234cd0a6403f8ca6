package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	"github.com/papertrade-service/papertrade_service/internal/domain/services/auth"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
)

// AuthHandlers serves registration, login and profile endpoints
type AuthHandlers struct {
	service *auth.Service
	logger  *logger.Logger
}

// NewAuthHandlers creates the auth handlers
func NewAuthHandlers(service *auth.Service, log *logger.Logger) *AuthHandlers {
	return &AuthHandlers{service: service, logger: log}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandlers) Register(c *gin.Context) {
	var req entities.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req entities.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetProfile handles GET /api/v1/auth/me
func (h *AuthHandlers) GetProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	user, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PATCH /api/v1/auth/me
func (h *AuthHandlers) UpdateProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req struct {
		DisplayName string `json:"display_name" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), userID, req.DisplayName)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

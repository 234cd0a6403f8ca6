package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/papertrade-service/papertrade_service/internal/api/middleware"
	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	apperrors "github.com/papertrade-service/papertrade_service/pkg/errors"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
)

// getUserID extracts the authenticated user id set by the auth middleware
func getUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		respondError(c, nil, apperrors.Unauthorized("authentication required"))
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	if !ok {
		respondError(c, nil, apperrors.Unauthorized("authentication required"))
		return uuid.Nil, false
	}
	return userID, true
}

// respondError writes a structured error response. Coded errors map to
// their HTTP status; everything else is an opaque 500.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	if te, ok := apperrors.AsTradeError(err); ok {
		c.AbortWithStatusJSON(te.StatusCode, entities.ErrorResponse{
			Code:    string(te.Code),
			Message: te.Message,
			Details: te.Details,
		})
		return
	}

	if log != nil {
		log.CtxError(c.Request.Context(), "Unhandled error",
			"error", err, "path", c.Request.URL.Path,
			"request_id", c.GetString("request_id"))
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, entities.ErrorResponse{
		Code:    string(apperrors.ErrCodeInternal),
		Message: "internal server error",
	})
}

// bindJSON binds the request body, converting failures to validation errors
func bindJSON(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		respondError(c, nil, apperrors.ValidationError("invalid request body: "+err.Error()))
		return false
	}
	return true
}

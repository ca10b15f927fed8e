package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	apierrors "github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/middleware"
	"github.com/okamura/project-management-api/internal/models"
	"go.uber.org/zap"
)

// currentUser reconstructs the acting user from the verified token claims.
func currentUser(c *gin.Context) (*models.User, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return nil, false
	}
	role, ok := middleware.GetUserRole(c)
	if !ok {
		return nil, false
	}
	return &models.User{ID: userID, Role: role}, true
}

// respondError maps a service failure to its HTTP response. Business
// failures carry their own code and status; anything else is logged with
// full detail and reported as a generic 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		apierrors.Respond(c, apiErr)
		return
	}

	log.Error("unexpected error",
		zap.String("path", c.FullPath()),
		zap.String("method", c.Request.Method),
		zap.Error(err))
	apierrors.InternalError(c)
}

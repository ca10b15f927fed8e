package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/okamura/project-management-api/internal/auth"
	"github.com/okamura/project-management-api/internal/constants"
	apierrors "github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/models"
)

// RequireAuth verifies the Bearer access token and stores the identity
// claims in the request context.
func RequireAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header || tokenString == "" {
			apierrors.Unauthorized(c, apierrors.ErrTokenInvalid)
			c.Abort()
			return
		}

		claims, err := tokens.VerifyToken(tokenString, auth.TokenKindAccess)
		if err != nil {
			switch err {
			case auth.ErrTokenExpired:
				apierrors.Unauthorized(c, apierrors.ErrTokenExpired)
			default:
				apierrors.Unauthorized(c, apierrors.ErrTokenInvalid)
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, claims.UserID)
		c.Set(constants.ContextKeyUserRole, claims.Role)
		c.Set(constants.ContextKeyEmail, claims.Email)
		c.Next()
	}
}

// RequireAdmin gates a route to admin users. Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := GetUserRole(c)
		if !exists || role != models.RoleAdmin {
			apierrors.Respond(c, apierrors.New(apierrors.ErrCodeAdminRequired, "Admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok
}

// GetUserRole retrieves the current user role from context
func GetUserRole(c *gin.Context) (models.UserRole, bool) {
	value, exists := c.Get(constants.ContextKeyUserRole)
	if !exists {
		return "", false
	}
	role, ok := value.(models.UserRole)
	return role, ok
}

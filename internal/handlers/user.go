package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/okamura/project-management-api/internal/dto"
	apierrors "github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/services"
	"github.com/okamura/project-management-api/internal/utils"
	"go.uber.org/zap"
)

// UserHandler coordinates user-resource HTTP handlers.
type UserHandler struct {
	userService *services.UserService
	log         *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log,
	}
}

// ListUsers returns all users. Admin only.
func (h *UserHandler) ListUsers(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	params := utils.GetPaginationParams(c)

	users, total, err := h.userService.ListUsers(actor, params.Page, params.PageSize)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserListResponse(users, params.Page, params.PageSize, total))
}

// GetUser returns a user profile. Self or admin.
func (h *UserHandler) GetUser(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	user, err := h.userService.GetProfile(actor, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// UpdateUser updates a profile. Self or admin.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	type UpdateUserRequest struct {
		Name  *string `json:"name" binding:"omitempty,max=255"`
		Email *string `json:"email" binding:"omitempty,email"`
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(actor, c.Param("id"), services.UpdateProfileInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// ChangePassword replaces the user's password after verifying the current one.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	type ChangePasswordRequest struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.userService.ChangePassword(actor, c.Param("id"), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// DeactivateUser soft-disables an account. Admin only.
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	if err := h.userService.DeactivateUser(actor, c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deactivated"})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/okamura/project-management-api/internal/dto"
	apierrors "github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/middleware"
	"github.com/okamura/project-management-api/internal/services"
	"go.uber.org/zap"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	log         *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

// Register creates a new user account and returns it with a token pair.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		Name     string `json:"name" binding:"required,max=255"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, tokens, err := h.authService.Register(services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":   dto.ToUserDTO(*user),
		"tokens": tokens,
	})
}

// Login authenticates a user and returns a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, tokens, err := h.authService.Login(services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   dto.ToUserDTO(*user),
		"tokens": tokens,
	})
}

// Refresh exchanges a valid refresh token for a new access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	type RefreshRequest struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	accessToken, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": accessToken})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	user, err := h.authService.GetUser(userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

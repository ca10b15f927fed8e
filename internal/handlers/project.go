package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/okamura/project-management-api/internal/dto"
	apierrors "github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/models"
	"github.com/okamura/project-management-api/internal/services"
	"github.com/okamura/project-management-api/internal/utils"
	"go.uber.org/zap"
)

// ProjectHandler coordinates project HTTP handlers.
type ProjectHandler struct {
	projectService *services.ProjectService
	log            *zap.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService, log *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		log:            log,
	}
}

// CreateProject creates a project owned by the caller.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	type CreateProjectRequest struct {
		Name        string   `json:"name" binding:"required,max=255"`
		Description string   `json:"description"`
		MemberIDs   []string `json:"member_ids"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.CreateProject(actor, services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// ListProjects returns projects the caller owns or belongs to.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	params := utils.GetPaginationParams(c)

	var status *models.ProjectStatus
	if s := c.Query("status"); s != "" {
		st := models.ProjectStatus(s)
		status = &st
	}

	projects, total, err := h.projectService.ListProjects(actor, status, params.Page, params.PageSize)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectListResponse(projects, params.Page, params.PageSize, total))
}

// GetProject returns a project with its members.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	project, err := h.projectService.GetProject(actor, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// UpdateProject updates name, description or status. Owner only.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	type UpdateProjectRequest struct {
		Name        *string               `json:"name" binding:"omitempty,max=255"`
		Description *string               `json:"description"`
		Status      *models.ProjectStatus `json:"status"`
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.UpdateProject(actor, c.Param("id"), services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// DeleteProject removes a project and everything in it. Owner only.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	if err := h.projectService.DeleteProject(actor, c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}

// AddMember adds a user to the project. Owner only.
func (h *ProjectHandler) AddMember(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	type AddMemberRequest struct {
		UserID string `json:"user_id" binding:"required"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.AddMember(actor, c.Param("id"), req.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// RemoveMember removes a member from the project. Owner, or the member
// removing themselves.
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	if err := h.projectService.RemoveMember(actor, c.Param("id"), c.Param("user_id")); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

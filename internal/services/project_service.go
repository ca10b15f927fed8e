package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okamura/project-management-api/internal/authz"
	apierrors "github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/models"
	"github.com/okamura/project-management-api/internal/repository"
	"gorm.io/gorm"
)

// ProjectService handles project and membership business logic.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	engine      *authz.Engine
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository, userRepo repository.UserRepository, engine *authz.Engine) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		engine:      engine,
	}
}

// CreateProjectInput represents parameters to create a new project.
type CreateProjectInput struct {
	Name        string
	Description string
	MemberIDs   []string
}

// CreateProject creates a project owned by the actor. Proposed members are
// batch-validated as existing active users before anything is written; the
// owner is filtered out of the member list so the owner row never appears
// among the members.
func (s *ProjectService) CreateProject(actor *models.User, input CreateProjectInput) (*models.Project, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apierrors.New(apierrors.ErrCodeValidation, "Project name is required")
	}

	memberIDs := make([]string, 0, len(input.MemberIDs))
	seen := make(map[string]struct{}, len(input.MemberIDs))
	for _, id := range input.MemberIDs {
		if id == actor.ID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		memberIDs = append(memberIDs, id)
	}

	if len(memberIDs) > 0 {
		users, err := s.userRepo.FindActiveByIDs(memberIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to validate members: %w", err)
		}
		if len(users) != len(memberIDs) {
			found := make(map[string]struct{}, len(users))
			for _, u := range users {
				found[u.ID] = struct{}{}
			}
			missing := make([]string, 0)
			for _, id := range memberIDs {
				if _, ok := found[id]; !ok {
					missing = append(missing, id)
				}
			}
			return nil, apierrors.NewWithDetails(apierrors.ErrCodeInvalidUser,
				"One or more members do not exist or are deactivated", missing)
		}
	}

	project := &models.Project{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		OwnerID:     actor.ID,
		Status:      models.ProjectStatusActive,
	}

	if err := s.projectRepo.Create(project, memberIDs); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return s.findProject(project.ID, "Owner", "Members", "Members.User")
}

// GetProject returns a project with its members if the actor has access.
func (s *ProjectService) GetProject(actor *models.User, projectID string) (*models.Project, error) {
	project, err := s.findProject(projectID, "Owner", "Members", "Members.User")
	if err != nil {
		return nil, err
	}

	d, err := s.engine.CanAccessProject(actor, project)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, d.Err()
	}

	return project, nil
}

// ListProjects returns projects the actor owns or belongs to.
func (s *ProjectService) ListProjects(actor *models.User, status *models.ProjectStatus, page, pageSize int) ([]models.Project, int64, error) {
	if status != nil && !models.ValidProjectStatus(*status) {
		return nil, 0, apierrors.New(apierrors.ErrCodeValidation, "Invalid project status")
	}

	projects, total, err := s.projectRepo.ListForUser(actor.ID, status, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

// UpdateProjectInput represents partial project changes. The owner is
// immutable and deliberately absent.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Status      *models.ProjectStatus
}

// UpdateProject updates name, description or status. Owner only.
func (s *ProjectService) UpdateProject(actor *models.User, projectID string, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.findProject(projectID)
	if err != nil {
		return nil, err
	}

	if d := s.engine.CanMutateProject(actor, project); !d.Allowed {
		return nil, d.Err()
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apierrors.New(apierrors.ErrCodeValidation, "Project name cannot be empty")
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Status != nil {
		if !models.ValidProjectStatus(*input.Status) {
			return nil, apierrors.New(apierrors.ErrCodeValidation, "Invalid project status")
		}
		project.Status = *input.Status
	}

	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return s.findProject(project.ID, "Owner", "Members", "Members.User")
}

// DeleteProject removes a project with its tasks and memberships. Owner only.
func (s *ProjectService) DeleteProject(actor *models.User, projectID string) error {
	project, err := s.findProject(projectID)
	if err != nil {
		return err
	}

	if d := s.engine.CanMutateProject(actor, project); !d.Allowed {
		return d.Err()
	}

	if err := s.projectRepo.Delete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}

// AddMember adds a user to the project. Owner only; the target must be an
// existing active user without prior access.
func (s *ProjectService) AddMember(actor *models.User, projectID, targetID string) (*models.Project, error) {
	project, err := s.findProject(projectID)
	if err != nil {
		return nil, err
	}

	d, err := s.engine.CanAddMember(actor, project, targetID)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, d.Err()
	}

	member := &models.ProjectMember{
		ProjectID: project.ID,
		UserID:    targetID,
		AddedAt:   time.Now(),
	}
	if err := s.projectRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return s.findProject(project.ID, "Owner", "Members", "Members.User")
}

// RemoveMember removes a user from the project. The owner may remove any
// member; a member may remove themselves; the owner can never be removed.
func (s *ProjectService) RemoveMember(actor *models.User, projectID, targetID string) error {
	project, err := s.findProject(projectID)
	if err != nil {
		return err
	}

	if d := s.engine.CanRemoveMember(actor, project, targetID); !d.Allowed {
		return d.Err()
	}

	isMember, err := s.projectRepo.IsMember(projectID, targetID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !isMember {
		return apierrors.New(apierrors.ErrCodeInvalidUser, "User is not a member of this project")
	}

	if err := s.projectRepo.RemoveMember(projectID, targetID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}

func (s *ProjectService) findProject(projectID string, preload ...string) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// Package authz decides, for a given actor, resource and action, whether the
// action is permitted. The engine is stateless: ownership and membership
// facts are read from the repositories on every call, never cached, so a
// decision reflects the membership state at decision time.
package authz

import (
	"errors"
	"fmt"

	apierrors "github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/models"
	"github.com/okamura/project-management-api/internal/repository"
	"gorm.io/gorm"
)

// Decision is the result of an authorization check.
type Decision struct {
	Allowed bool
	Code    string
	Message string
}

// Allow returns a permitting decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with a stable error code.
func Deny(code, message string) Decision {
	return Decision{Allowed: false, Code: code, Message: message}
}

// Err converts a denial into the service-level error value. Returns nil for
// an allowing decision.
func (d Decision) Err() *apierrors.APIError {
	if d.Allowed {
		return nil
	}
	return apierrors.New(d.Code, d.Message)
}

// Engine evaluates the access-control rule set.
type Engine struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
}

// NewEngine creates an Engine.
func NewEngine(projectRepo repository.ProjectRepository, userRepo repository.UserRepository) *Engine {
	return &Engine{
		projectRepo: projectRepo,
		userRepo:    userRepo,
	}
}

// hasProjectAccess unions {owner} with the members set. The owner never has
// a member row, so testing membership alone would wrongly deny the owner.
func (e *Engine) hasProjectAccess(project *models.Project, userID string) (bool, error) {
	if project.OwnerID == userID {
		return true, nil
	}
	return e.projectRepo.IsMember(project.ID, userID)
}

// CanAccessProject decides project reads and task create/mutate/delete
// within the project. Admins are allowed; otherwise the actor must be the
// owner or a member.
func (e *Engine) CanAccessProject(actor *models.User, project *models.Project) (Decision, error) {
	if actor.Role == models.RoleAdmin {
		return Allow(), nil
	}

	ok, err := e.hasProjectAccess(project, actor.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check project access: %w", err)
	}
	if !ok {
		return Deny(apierrors.ErrCodeProjectAccessDenied, "You do not have access to this project"), nil
	}
	return Allow(), nil
}

// CanAccessTask decides reads and mutations of a task through its parent
// project. The rule set is the same as project access but the denial carries
// the task-specific code.
func (e *Engine) CanAccessTask(actor *models.User, project *models.Project) (Decision, error) {
	d, err := e.CanAccessProject(actor, project)
	if err != nil {
		return Decision{}, err
	}
	if !d.Allowed {
		return Deny(apierrors.ErrCodeTaskAccessDenied, "You do not have access to this task"), nil
	}
	return Allow(), nil
}

// CanMutateProject decides project update, delete and add-member. Owner
// only; admins do not bypass owner-only project mutation.
func (e *Engine) CanMutateProject(actor *models.User, project *models.Project) Decision {
	if actor.ID != project.OwnerID {
		return Deny(apierrors.ErrCodeInsufficientPermissions, "Only the project owner can perform this action")
	}
	return Allow()
}

// CanAddMember decides whether targetID may be added to the project by the
// actor. The actor must be the owner; the target must be an existing active
// user that is not already the owner or a member.
func (e *Engine) CanAddMember(actor *models.User, project *models.Project, targetID string) (Decision, error) {
	if d := e.CanMutateProject(actor, project); !d.Allowed {
		return d, nil
	}

	if targetID == project.OwnerID {
		return Deny(apierrors.ErrCodeAlreadyMember, "User already has access to this project"), nil
	}

	isMember, err := e.projectRepo.IsMember(project.ID, targetID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check membership: %w", err)
	}
	if isMember {
		return Deny(apierrors.ErrCodeAlreadyMember, "User is already a member of this project"), nil
	}

	target, err := e.userRepo.FindByID(targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Deny(apierrors.ErrCodeInvalidUser, "User does not exist"), nil
		}
		return Decision{}, fmt.Errorf("failed to find user: %w", err)
	}
	if !target.IsActive {
		return Deny(apierrors.ErrCodeInvalidUser, "User account is deactivated"), nil
	}

	return Allow(), nil
}

// CanRemoveMember decides whether targetID may be removed from the project.
// The owner can never be removed, by anyone. Beyond that, the actor must be
// the owner or the member removing themselves.
func (e *Engine) CanRemoveMember(actor *models.User, project *models.Project, targetID string) Decision {
	if targetID == project.OwnerID {
		return Deny(apierrors.ErrCodeCannotRemoveOwner, "The project owner cannot be removed")
	}

	if actor.ID != project.OwnerID && actor.ID != targetID {
		return Deny(apierrors.ErrCodeInsufficientPermissions, "Only the project owner can remove other members")
	}

	return Allow()
}

// CanAssignTask decides whether assigneeID may be assigned a task in the
// project. The assignee must have project access, independent of whatever
// permission the acting user holds.
func (e *Engine) CanAssignTask(project *models.Project, assigneeID string) (Decision, error) {
	ok, err := e.hasProjectAccess(project, assigneeID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check assignee access: %w", err)
	}
	if !ok {
		return Deny(apierrors.ErrCodeAssignedUserNoAccess, "Assigned user does not have access to this project"), nil
	}
	return Allow(), nil
}

// CanAccessUser decides profile reads and updates. Self or admin.
func (e *Engine) CanAccessUser(actor *models.User, targetID string) Decision {
	if actor.Role == models.RoleAdmin || actor.ID == targetID {
		return Allow()
	}
	return Deny(apierrors.ErrCodeAccessDenied, "You can only access your own profile")
}

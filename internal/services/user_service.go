package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okamura/project-management-api/internal/auth"
	"github.com/okamura/project-management-api/internal/authz"
	"github.com/okamura/project-management-api/internal/constants"
	apierrors "github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/models"
	"github.com/okamura/project-management-api/internal/repository"
	"gorm.io/gorm"
)

// UserService handles profile and account management.
type UserService struct {
	userRepo repository.UserRepository
	engine   *authz.Engine
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, engine *authz.Engine) *UserService {
	return &UserService{
		userRepo: userRepo,
		engine:   engine,
	}
}

// GetProfile returns a user profile. Self or admin.
func (s *UserService) GetProfile(actor *models.User, targetID string) (*models.User, error) {
	if d := s.engine.CanAccessUser(actor, targetID); !d.Allowed {
		return nil, d.Err()
	}

	user, err := s.userRepo.FindByID(targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// UpdateProfileInput represents partial profile changes.
type UpdateProfileInput struct {
	Name  *string
	Email *string
}

// UpdateProfile updates name and email. Self or admin. Changing the email
// re-checks uniqueness.
func (s *UserService) UpdateProfile(actor *models.User, targetID string, input UpdateProfileInput) (*models.User, error) {
	if d := s.engine.CanAccessUser(actor, targetID); !d.Allowed {
		return nil, d.Err()
	}

	user, err := s.userRepo.FindByID(targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apierrors.New(apierrors.ErrCodeValidation, "Name cannot be empty")
		}
		user.Name = name
	}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, apierrors.New(apierrors.ErrCodeValidation, "Email cannot be empty")
		}
		if email != user.Email {
			if _, err := s.userRepo.FindByEmail(email); err == nil {
				return nil, apierrors.New(apierrors.ErrCodeUserExists, "A user with this email already exists")
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			user.Email = email
		}
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// ChangePassword verifies the current password and replaces it. Self only;
// admins reset passwords through their own tooling, not this path.
func (s *UserService) ChangePassword(actor *models.User, targetID, currentPassword, newPassword string) error {
	if actor.ID != targetID {
		return apierrors.New(apierrors.ErrCodeAccessDenied, "You can only change your own password")
	}

	user, err := s.userRepo.FindByID(targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierrors.ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if !auth.CheckPassword(currentPassword, user.PasswordHash) {
		return apierrors.New(apierrors.ErrCodeInvalidCredentials, "Current password is incorrect")
	}

	if len(newPassword) < constants.MinPasswordLength {
		return apierrors.New(apierrors.ErrCodeValidation,
			fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = hash
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// ListUsers returns all users with pagination. Admin only.
func (s *UserService) ListUsers(actor *models.User, page, pageSize int) ([]models.User, int64, error) {
	if actor.Role != models.RoleAdmin {
		return nil, 0, apierrors.New(apierrors.ErrCodeAccessDenied, "Admin access required")
	}

	users, total, err := s.userRepo.List(page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// DeactivateUser soft-disables an account. Admin only. Login and token
// refresh are blocked immediately; outstanding access tokens remain valid
// until they expire.
func (s *UserService) DeactivateUser(actor *models.User, targetID string) error {
	if actor.Role != models.RoleAdmin {
		return apierrors.New(apierrors.ErrCodeAccessDenied, "Admin access required")
	}

	user, err := s.userRepo.FindByID(targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierrors.ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	user.IsActive = false
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	return nil
}

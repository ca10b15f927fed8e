package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okamura/project-management-api/internal/auth"
	"github.com/okamura/project-management-api/internal/constants"
	apierrors "github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/models"
	"github.com/okamura/project-management-api/internal/repository"
	"gorm.io/gorm"
)

// AuthService handles registration, login and token refresh.
type AuthService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// TokenPair is the access/refresh token pair issued on registration and login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a new user, storing the password only as a bcrypt hash,
// and issues a token pair. Newly registered users always get the "user"
// role; admins are provisioned out of band.
func (s *AuthService) Register(input RegisterInput) (*models.User, *TokenPair, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" {
		return nil, nil, apierrors.New(apierrors.ErrCodeValidation, "Name is required")
	}
	if email == "" {
		return nil, nil, apierrors.New(apierrors.ErrCodeValidation, "Email is required")
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, nil, apierrors.New(apierrors.ErrCodeValidation,
			fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, nil, apierrors.New(apierrors.ErrCodeUserExists, "A user with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsActive:     true,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials, stamps the last login time and issues a token
// pair. A deactivated account is reported with its own code; see DESIGN.md
// for the enumeration-leak trade-off.
func (s *AuthService) Login(input LoginInput) (*models.User, *TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apierrors.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !auth.CheckPassword(input.Password, user.PasswordHash) {
		return nil, nil, apierrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, nil, apierrors.ErrUserInactive
	}

	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(user.ID, now); err != nil {
		return nil, nil, fmt.Errorf("failed to update last login: %w", err)
	}
	user.LastLogin = &now

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Refresh verifies a refresh token, re-checks that the subject is still
// active and issues a new access token. The refresh token is not rotated.
func (s *AuthService) Refresh(refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyToken(refreshToken, auth.TokenKindRefresh)
	if err != nil {
		return "", tokenError(err)
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apierrors.ErrTokenInvalid
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if !user.IsActive {
		return "", apierrors.ErrUserInactive
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}

	return accessToken, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id string) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issuePair(user *models.User) (*TokenPair, error) {
	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// tokenError maps token verification failures to their API codes.
func tokenError(err error) *apierrors.APIError {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return apierrors.ErrTokenExpired
	default:
		return apierrors.ErrTokenInvalid
	}
}

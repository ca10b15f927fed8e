package errors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	// Authentication errors
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       = "USER_INACTIVE"
	ErrCodeTokenMissing       = "TOKEN_MISSING"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"

	// Authorization errors
	ErrCodeAccessDenied            = "ACCESS_DENIED"
	ErrCodeProjectAccessDenied     = "PROJECT_ACCESS_DENIED"
	ErrCodeTaskAccessDenied        = "TASK_ACCESS_DENIED"
	ErrCodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	ErrCodeAdminRequired           = "ADMIN_REQUIRED"

	// Resource errors
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
	ErrCodeProjectNotFound = "PROJECT_NOT_FOUND"
	ErrCodeTaskNotFound    = "TASK_NOT_FOUND"

	// Business rule errors
	ErrCodeUserExists           = "USER_EXISTS"
	ErrCodeAlreadyMember        = "ALREADY_MEMBER"
	ErrCodeInvalidUser          = "INVALID_USER"
	ErrCodeCannotRemoveOwner    = "CANNOT_REMOVE_OWNER"
	ErrCodeAssignedUserNoAccess = "ASSIGNED_USER_NO_ACCESS"
	ErrCodeValidation           = "VALIDATION_ERROR"

	// Infrastructure
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// APIError is the discriminated failure value returned by domain services
// for expected business failures. Infrastructure errors are not wrapped in
// it; they stay ordinary errors and surface as a generic 500.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// New creates a new APIError
func New(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// NewWithDetails creates a new APIError carrying field-level details
func NewWithDetails(code, message string, details interface{}) *APIError {
	return &APIError{Code: code, Message: message, Details: details}
}

// StatusFor maps a business error code to its transport status. The table is
// part of the API contract: *_NOT_FOUND→404, access/permission codes→403,
// token codes→401, USER_EXISTS→409, every other business code→400.
func StatusFor(code string) int {
	switch code {
	case ErrCodeAccessDenied, ErrCodeProjectAccessDenied, ErrCodeTaskAccessDenied,
		ErrCodeInsufficientPermissions, ErrCodeAdminRequired:
		return http.StatusForbidden
	case ErrCodeInvalidCredentials, ErrCodeUserInactive,
		ErrCodeTokenMissing, ErrCodeTokenExpired, ErrCodeTokenInvalid:
		return http.StatusUnauthorized
	case ErrCodeUserExists:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeInternalError:
		return http.StatusInternalServerError
	}
	if strings.HasSuffix(code, "_NOT_FOUND") {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

// Predefined errors
var (
	ErrInvalidCredentials = New(ErrCodeInvalidCredentials, "Invalid email or password")
	ErrUserInactive       = New(ErrCodeUserInactive, "Account is deactivated")
	ErrTokenMissing       = New(ErrCodeTokenMissing, "Authentication token required")
	ErrTokenExpired       = New(ErrCodeTokenExpired, "Token has expired")
	ErrTokenInvalid       = New(ErrCodeTokenInvalid, "Token is malformed or invalid")
	ErrUserNotFound       = New(ErrCodeUserNotFound, "User not found")
	ErrProjectNotFound    = New(ErrCodeProjectNotFound, "Project not found")
	ErrTaskNotFound       = New(ErrCodeTaskNotFound, "Task not found")
	ErrInternal           = New(ErrCodeInternalError, "Internal server error")
)

// Respond writes an APIError at its mapped status.
func Respond(c *gin.Context, err *APIError) {
	c.JSON(StatusFor(err.Code), err)
}

// BadRequest sends a 400 validation response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	c.JSON(http.StatusBadRequest, New(ErrCodeValidation, message))
}

// BadRequestWithDetails sends a 400 response with field-level details
func BadRequestWithDetails(c *gin.Context, message string, details interface{}) {
	c.JSON(http.StatusBadRequest, NewWithDetails(ErrCodeValidation, message, details))
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, err *APIError) {
	if err == nil {
		err = ErrTokenMissing
	}
	c.JSON(http.StatusUnauthorized, err)
}

// InternalError sends a generic 500 response. The concrete cause is logged
// server-side by the caller, never sent to the client.
func InternalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, ErrInternal)
}

package constants

// Pagination bounds
const (
	MinPage         = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Password policy
const MinPasswordLength = 8

// Context keys set by the auth middleware
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUserRole = "user_role"
	ContextKeyEmail    = "user_email"
)

// Bulk operation limits
const MaxBulkTaskIDs = 100

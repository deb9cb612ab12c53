package common

import (
	"context"
	"fmt"
	"strings"
	"time"

	"schoolhub/internal/models"

	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
	SchoolIDKey  contextKey = "school_id"
	RoleKey      contextKey = "role"
)

// WithUser stores the authenticated identity on the context.
func WithUser(ctx context.Context, userID uuid.UUID, email string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserEmailKey, email)
}

// WithSchool stores the resolved tenant on the context.
func WithSchool(ctx context.Context, schoolID uuid.UUID) context.Context {
	return context.WithValue(ctx, SchoolIDKey, schoolID)
}

// WithRole stores the resolved role on the context.
func WithRole(ctx context.Context, role models.Role) context.Context {
	return context.WithValue(ctx, RoleKey, role)
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}

// GetUserEmailFromContext extracts the authenticated email, if the token carried one
func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailKey).(string)
	return email, ok && email != ""
}

// GetSchoolIDFromContext extracts the resolved school. A false result means the
// request is unscoped.
func GetSchoolIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	schoolID, ok := ctx.Value(SchoolIDKey).(uuid.UUID)
	return schoolID, ok && schoolID != uuid.Nil
}

// GetRoleFromContext extracts the resolved role
func GetRoleFromContext(ctx context.Context) (models.Role, bool) {
	role, ok := ctx.Value(RoleKey).(models.Role)
	return role, ok && role != ""
}

// ValidateUUID parses an identifier coming from a path or body field
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a valid UUID", fieldName)
	}
	return id, nil
}

// ValidateDateFormat validates date strings
func ValidateDateFormat(dateStr, fieldName string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(dateStr))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be in YYYY-MM-DD format", fieldName)
	}
	return date, nil
}

// SafeString safely handles string pointer operations
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ValidatePaginationParams clamps pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

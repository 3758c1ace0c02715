package common

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"agencydesk/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	authContextKey contextKey = "auth_context"
	tenantKey      contextKey = "tenant"
)

// auditActorKey is an echo context key, not a request context key, so handlers on
// unauthenticated routes can name the user they just signed in.
const auditActorKey = "audit_actor"

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

func WithAuthContext(ctx context.Context, auth *models.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// GetAuthContext returns the identity resolved by the authentication middleware.
func GetAuthContext(ctx context.Context) (*models.AuthContext, bool) {
	auth, ok := ctx.Value(authContextKey).(*models.AuthContext)
	return auth, ok && auth != nil
}

func WithTenant(ctx context.Context, tenant *models.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, tenant)
}

// GetTenant returns the tenant admitted by the tenant gate. Administrators have none.
func GetTenant(ctx context.Context) (*models.Tenant, bool) {
	tenant, ok := ctx.Value(tenantKey).(*models.Tenant)
	return tenant, ok && tenant != nil
}

// SetAuditActor names the user a request acted as when no AuthContext exists yet.
func SetAuditActor(c echo.Context, user models.UserSummary) {
	c.Set(auditActorKey, user)
}

// GetAuditActor prefers the authenticated caller over a handler-provided actor.
func GetAuditActor(c echo.Context) (userID, tenantID *uuid.UUID) {
	if auth, ok := GetAuthContext(c.Request().Context()); ok {
		id := auth.UserID
		return &id, auth.TenantID
	}
	if user, ok := c.Get(auditActorKey).(models.UserSummary); ok {
		id := user.ID
		return &id, user.TenantID
	}
	return nil, nil
}

// ValidateUUID parses a path or query identifier.
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

// ParsePagination reads limit and offset query parameters, clamping them to sane bounds.
func ParsePagination(c echo.Context) (limit, offset int) {
	limit, offset = 10, 0
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}
	return limit, offset
}

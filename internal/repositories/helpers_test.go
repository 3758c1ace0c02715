package repositories

import (
	"time"

	"agencydesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func userColumnNames() []string {
	return []string{"id", "tenant_id", "name", "email", "password_hash", "role", "is_active", "last_login_at", "created_at", "updated_at"}
}

func tenantColumnNames() []string {
	return []string{"id", "name", "slug", "is_active", "is_system", "created_at", "updated_at"}
}

func userRow(user *models.User) *pgxmock.Rows {
	return pgxmock.NewRows(userColumnNames()).AddRow(user.ID, user.TenantID, user.Name, user.Email,
		user.PasswordHash, user.Role, user.IsActive, user.LastLoginAt, user.CreatedAt, user.UpdatedAt)
}

func tenantRow(tenant *models.Tenant) *pgxmock.Rows {
	return pgxmock.NewRows(tenantColumnNames()).AddRow(tenant.ID, tenant.Name, tenant.Slug,
		tenant.IsActive, tenant.IsSystem, tenant.CreatedAt, tenant.UpdatedAt)
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: constraint}
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

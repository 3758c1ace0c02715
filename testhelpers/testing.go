// Package testhelpers provides a real Postgres database for tests that need actual
// transaction and locking behavior. Tests using it are skipped unless
// TEST_DATABASE_URL is set.
package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"agencydesk/internal/models"
	"agencydesk/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool *pgxpool.Pool
}

// SetupTestDB migrates and truncates the test database and returns a pool that is
// closed when the test ends.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	if err := database.Migrate(dsn); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := database.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	db := &TestDB{Pool: pool}
	db.Truncate(t)
	return db
}

// Truncate empties every table the service owns.
func (db *TestDB) Truncate(t *testing.T) {
	t.Helper()
	_, err := db.Pool.Exec(context.Background(),
		`TRUNCATE sessions, users, client_profiles, tenants, audit_logs CASCADE`)
	if err != nil {
		t.Fatalf("Failed to truncate test database: %v", err)
	}
}

// SetupTestTenant creates an active client tenant with no profile or users.
func SetupTestTenant(t *testing.T, db *TestDB) *models.Tenant {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	tenant := &models.Tenant{
		ID:        uuid.New(),
		Name:      "Test Tenant",
		Slug:      "test-" + uuid.NewString()[:8],
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	query := `
		INSERT INTO tenants (id, name, slug, is_active, is_system, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $5)
	`
	_, err := db.Pool.Exec(context.Background(), query, tenant.ID, tenant.Name, tenant.Slug, tenant.IsActive, now)
	if err != nil {
		t.Fatalf("Failed to create test tenant: %v", err)
	}
	return tenant
}

// SetupTestUser creates an active user. The password hash is a placeholder and will
// not verify against any password.
func SetupTestUser(t *testing.T, db *TestDB, tenantID *uuid.UUID, role models.Role) *models.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Name:         "Test User",
		Email:        uuid.NewString()[:8] + "@example.test",
		PasswordHash: "not-a-bcrypt-hash",
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	query := `
		INSERT INTO users (id, tenant_id, name, email, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	_, err := db.Pool.Exec(context.Background(), query, user.ID, user.TenantID, user.Name, user.Email,
		user.PasswordHash, user.Role, user.IsActive, now)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// CountRows runs a COUNT(*) query and fails the test on error.
func CountRows(t *testing.T, db *TestDB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.Pool.QueryRow(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}

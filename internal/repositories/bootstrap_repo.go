package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agencydesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// bootstrapLockKey serializes every first-admin attempt cluster-wide.
const bootstrapLockKey int64 = 0x61646d696e // "admin"

const systemTenantSlug = "system"

// BootstrapRepository owns the first-administrator protocol.
type BootstrapRepository interface {
	HasAdmin(ctx context.Context) (bool, error)
	GetOrCreateSystemTenant(ctx context.Context, name string) (*models.Tenant, error)
	// CreateFirstAdmin creates admin under the system tenant only if no active admin exists.
	// The existence check and the insert commit together or not at all.
	CreateFirstAdmin(ctx context.Context, systemTenantName string, admin *models.User) (*models.Tenant, error)
}

type bootstrapRepo struct {
	db TxStarter
}

func NewBootstrapRepo(db TxStarter) BootstrapRepository {
	return &bootstrapRepo{db: db}
}

func hasAdmin(ctx context.Context, db DBTX) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE role = 'ADMIN' AND is_active)`
	if err := db.QueryRow(ctx, query).Scan(&exists); err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return exists, nil
}

// getOrCreateSystemTenant relies on tenants_single_system_idx: concurrent callers collapse
// onto the same row. The conflict target is left open so a racing insert that trips the
// slug index first is absorbed as well.
func getOrCreateSystemTenant(ctx context.Context, db DBTX, name string) (*models.Tenant, error) {
	_, err := db.Exec(ctx, `
		INSERT INTO tenants (id, name, slug, is_active, is_system, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, TRUE, NOW(), NOW())
		ON CONFLICT DO NOTHING
	`, uuid.New(), name, systemTenantSlug)
	if err != nil {
		return nil, fmt.Errorf("insert system tenant: %w", err)
	}

	query := `
		SELECT ` + tenantColumns + `
		FROM tenants t
		WHERE t.is_system
		  AND NOT EXISTS (SELECT 1 FROM client_profiles p WHERE p.tenant_id = t.id)
	`
	tenant, err := scanTenant(db.QueryRow(ctx, query))
	if err != nil {
		return nil, fmt.Errorf("load system tenant: %w", err)
	}
	return tenant, nil
}

func (r *bootstrapRepo) HasAdmin(ctx context.Context) (bool, error) {
	return hasAdmin(ctx, r.db)
}

func (r *bootstrapRepo) GetOrCreateSystemTenant(ctx context.Context, name string) (*models.Tenant, error) {
	return getOrCreateSystemTenant(ctx, r.db, name)
}

func (r *bootstrapRepo) CreateFirstAdmin(ctx context.Context, systemTenantName string, admin *models.User) (*models.Tenant, error) {
	var tenant *models.Tenant
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		// Statements after the lock run under fresh READ COMMITTED snapshots, so the
		// re-check below observes any admin committed by a previous lock holder.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
			return fmt.Errorf("acquire bootstrap lock: %w", err)
		}

		exists, err := hasAdmin(ctx, tx)
		if err != nil {
			return err
		}
		if exists {
			return ErrAdminExists
		}

		taken, err := emailExists(ctx, tx, admin.Email)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}

		tenant, err = getOrCreateSystemTenant(ctx, tx, systemTenantName)
		if err != nil {
			return err
		}

		if admin.ID == uuid.Nil {
			admin.ID = uuid.New()
		}
		now := time.Now().UTC()
		admin.TenantID = &tenant.ID
		admin.Role = models.RoleAdmin
		admin.IsActive = true
		admin.CreatedAt, admin.UpdatedAt = now, now
		return insertUser(ctx, tx, admin)
	})

	switch {
	case err == nil:
		return tenant, nil
	case errors.Is(err, ErrAdminExists), errors.Is(err, ErrEmailTaken):
		return nil, err
	case isSerializationFailure(err), isUniqueViolation(err, "tenants_single_system_idx"):
		return nil, ErrAdminExists
	}
	return nil, err
}

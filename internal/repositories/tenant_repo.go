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

type TenantRepository interface {
	// CreateWithOwner inserts the tenant, its client profile and its first user atomically.
	CreateWithOwner(ctx context.Context, tenant *models.Tenant, profile *models.ClientProfile, owner *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetProfile(ctx context.Context, tenantID uuid.UUID) (*models.ClientProfile, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
}

type tenantRepo struct {
	db TxStarter
}

func NewTenantRepo(db TxStarter) TenantRepository {
	return &tenantRepo{db: db}
}

const tenantColumns = `id, name, slug, is_active, is_system, created_at, updated_at`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	err := row.Scan(&tenant.ID, &tenant.Name, &tenant.Slug, &tenant.IsActive, &tenant.IsSystem,
		&tenant.CreatedAt, &tenant.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

func (r *tenantRepo) CreateWithOwner(ctx context.Context, tenant *models.Tenant, profile *models.ClientProfile, owner *models.User) error {
	now := time.Now().UTC()
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if owner.ID == uuid.Nil {
		owner.ID = uuid.New()
	}
	tenant.CreatedAt, tenant.UpdatedAt = now, now
	profile.TenantID, profile.CreatedAt = tenant.ID, now
	owner.TenantID = &tenant.ID
	owner.CreatedAt, owner.UpdatedAt = now, now

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO tenants (id, name, slug, is_active, is_system, created_at, updated_at)
			VALUES ($1, $2, $3, $4, FALSE, $5, $5)
		`, tenant.ID, tenant.Name, tenant.Slug, tenant.IsActive, now)
		if err != nil {
			return fmt.Errorf("insert tenant: %w", translateUserWrite(err))
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO client_profiles (id, tenant_id, company_name, contact_name, contact_email, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, profile.ID, profile.TenantID, profile.CompanyName, profile.ContactName, profile.ContactEmail, now)
		if err != nil {
			return fmt.Errorf("insert client profile: %w", err)
		}

		if err := insertUser(ctx, tx, owner); err != nil {
			return fmt.Errorf("insert tenant owner: %w", err)
		}
		return nil
	})
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(r.db.QueryRow(ctx, query, id))
}

func (r *tenantRepo) GetProfile(ctx context.Context, tenantID uuid.UUID) (*models.ClientProfile, error) {
	profile := &models.ClientProfile{}
	query := `
		SELECT id, tenant_id, company_name, contact_name, contact_email, created_at
		FROM client_profiles
		WHERE tenant_id = $1
	`
	err := r.db.QueryRow(ctx, query, tenantID).Scan(&profile.ID, &profile.TenantID, &profile.CompanyName,
		&profile.ContactName, &profile.ContactEmail, &profile.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *tenantRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE tenants SET is_active = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *tenantRepo) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := make([]*models.Tenant, 0, limit)
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

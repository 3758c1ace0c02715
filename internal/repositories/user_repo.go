package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agencydesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type userRepo struct {
	db TxStarter
}

func NewUserRepo(db TxStarter) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, tenant_id, name, email, password_hash, role, is_active, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.TenantID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.IsActive, &user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func insertUser(ctx context.Context, db DBTX, user *models.User) error {
	query := `
		INSERT INTO users (id, tenant_id, name, email, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	_, err := db.Exec(ctx, query, user.ID, user.TenantID, user.Name, user.Email, user.PasswordHash,
		user.Role, user.IsActive, user.CreatedAt)
	if err != nil {
		return translateUserWrite(err)
	}
	return nil
}

func emailExists(ctx context.Context, db DBTX, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`
	if err := db.QueryRow(ctx, query, strings.TrimSpace(email)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = user.CreatedAt
	return insertUser(ctx, r.db, user)
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByEmail looks the address up across every tenant; emails are globally unique.
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUser(r.db.QueryRow(ctx, query, strings.TrimSpace(email)))
}

func (r *userRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return emailExists(ctx, r.db, email)
}

func (r *userRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login_at = $1 WHERE id = $2`
	_, err := r.db.Exec(ctx, query, at, id)
	return err
}

func (r *userRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate is a soft delete that also ends every session the user holds.
// The last active administrator cannot be deactivated.
func (r *userRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		// Row locks on the active administrators serialize concurrent deactivations,
		// so two admins cannot remove each other.
		var activeAdmins int
		lockQuery := `
			SELECT count(*) FROM (
				SELECT id FROM users
				WHERE role = $1 AND is_active
				ORDER BY id
				FOR UPDATE
			) locked
		`
		if err := tx.QueryRow(ctx, lockQuery, models.RoleAdmin).Scan(&activeAdmins); err != nil {
			return fmt.Errorf("lock administrators: %w", err)
		}

		target, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		if err != nil {
			return err
		}
		if target.Role == models.RoleAdmin && target.IsActive && activeAdmins <= 1 {
			return ErrLastAdmin
		}

		query := `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
		if _, err := tx.Exec(ctx, query, id); err != nil {
			return err
		}
		if _, err := deleteUserSessions(ctx, tx, id); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		return nil
	})
}

package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agencydesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/gommon/random"
)

// placeholderLength is the size of the random value a session row holds until its
// first signed refresh token is written.
const placeholderLength = 64

// SessionRepository is the authoritative store for refresh-token validity.
type SessionRepository interface {
	Create(ctx context.Context, userID uuid.UUID, tenantID *uuid.UUID) (*models.Session, error)
	Lookup(ctx context.Context, id uuid.UUID) (*models.Session, error)
	// UpdateToken swaps the stored refresh value only if it still equals previous.
	UpdateToken(ctx context.Context, id uuid.UUID, previous, next string, expiresAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type sessionRepo struct {
	db         DBTX
	refreshTTL time.Duration
	now        func() time.Time
}

func NewSessionRepo(db DBTX, refreshTTL time.Duration, now func() time.Time) SessionRepository {
	if now == nil {
		now = time.Now
	}
	return &sessionRepo{db: db, refreshTTL: refreshTTL, now: now}
}

func (r *sessionRepo) Create(ctx context.Context, userID uuid.UUID, tenantID *uuid.UUID) (*models.Session, error) {
	now := r.now().UTC()
	session := &models.Session{
		ID:           uuid.New(),
		UserID:       userID,
		TenantID:     tenantID,
		RefreshToken: random.String(placeholderLength),
		ExpiresAt:    now.Add(r.refreshTTL),
		CreatedAt:    now,
	}

	query := `
		INSERT INTO sessions (id, user_id, tenant_id, refresh_token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, session.ID, session.UserID, session.TenantID, session.RefreshToken,
		session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

func (r *sessionRepo) Lookup(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session := &models.Session{}
	query := `
		SELECT id, user_id, tenant_id, refresh_token, expires_at, created_at
		FROM sessions
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&session.ID, &session.UserID, &session.TenantID,
		&session.RefreshToken, &session.ExpiresAt, &session.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionRepo) UpdateToken(ctx context.Context, id uuid.UUID, previous, next string, expiresAt time.Time) error {
	query := `
		UPDATE sessions
		SET refresh_token = $1, expires_at = $2
		WHERE id = $3 AND refresh_token = $4
	`
	tag, err := r.db.Exec(ctx, query, next, expiresAt, id, previous)
	if err != nil {
		return fmt.Errorf("update session token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionConflict
	}
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// deleteUserSessions removes every session of a user, invalidating its refresh and access tokens.
func deleteUserSessions(ctx context.Context, db DBTX, userID uuid.UUID) (int64, error) {
	tag, err := db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

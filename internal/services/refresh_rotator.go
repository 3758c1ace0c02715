package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agencydesk/internal/models"
	"agencydesk/internal/repositories"

	"github.com/google/uuid"
)

// RefreshRotator exchanges a refresh token for a new pair, retiring the old token.
type RefreshRotator struct {
	sessions repositories.SessionRepository
	users    repositories.UserRepository
	codec    TokenCodec
	now      func() time.Time
	logger   *slog.Logger
}

func NewRefreshRotator(sessions repositories.SessionRepository, users repositories.UserRepository, codec TokenCodec, now func() time.Time, logger *slog.Logger) *RefreshRotator {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshRotator{sessions: sessions, users: users, codec: codec, now: now, logger: logger}
}

func (r *RefreshRotator) Rotate(ctx context.Context, presented string) (*models.TokenPair, error) {
	claims, err := r.codec.Verify(presented, DomainRefresh)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.SessionID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	session, err := r.sessions.Lookup(ctx, claims.SessionID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	// A validly signed token that is not the one currently stored has already been rotated past.
	if subtle.ConstantTimeCompare([]byte(session.RefreshToken), []byte(presented)) != 1 {
		r.logger.Warn("refresh token replay", "session_id", session.ID, "user_id", session.UserID)
		return nil, ErrSessionExpired
	}
	if session.Expired(r.now()) || session.UserID != claims.UserID {
		return nil, ErrSessionExpired
	}

	// Role and active state come from the stored user so demotions apply at the next rotation.
	user, err := r.users.GetByID(ctx, session.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrSessionExpired
	}

	next := models.TokenClaims{
		UserID:    user.ID,
		Role:      user.Role,
		TenantID:  session.TenantID,
		SessionID: session.ID,
	}
	access, _, err := r.codec.Sign(next, DomainAccess)
	if err != nil {
		return nil, err
	}
	refresh, expiresAt, err := r.codec.Sign(next, DomainRefresh)
	if err != nil {
		return nil, err
	}

	err = r.sessions.UpdateToken(ctx, session.ID, presented, refresh, expiresAt)
	if errors.Is(err, repositories.ErrSessionConflict) {
		// Another request redeemed the same token first.
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

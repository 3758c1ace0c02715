package services

import (
	"context"
	"fmt"

	"agencydesk/internal/models"
	"agencydesk/internal/repositories"
)

// IssuedSession is the outcome of a successful login, registration or bootstrap sign-in.
type IssuedSession struct {
	models.TokenPair
	User    models.UserSummary `json:"user"`
	Session *models.Session    `json:"-"`
}

// SessionIssuer creates a session row and the token pair bound to it.
type SessionIssuer struct {
	sessions repositories.SessionRepository
	codec    TokenCodec
}

func NewSessionIssuer(sessions repositories.SessionRepository, codec TokenCodec) *SessionIssuer {
	return &SessionIssuer{sessions: sessions, codec: codec}
}

func (i *SessionIssuer) Issue(ctx context.Context, user *models.User) (*IssuedSession, error) {
	// The row is created first so its id can be embedded in both tokens; it holds a
	// random placeholder until the real refresh token replaces it below.
	session, err := i.sessions.Create(ctx, user.ID, user.TenantID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	issued, err := i.bind(ctx, user, session)
	if err != nil {
		// Drop the half-built row so no placeholder session outlives the failure.
		_ = i.sessions.Delete(context.WithoutCancel(ctx), session.ID)
		return nil, err
	}
	return issued, nil
}

// bind signs both tokens for session and stores the refresh token in place of the placeholder.
func (i *SessionIssuer) bind(ctx context.Context, user *models.User, session *models.Session) (*IssuedSession, error) {
	claims := models.TokenClaims{
		UserID:    user.ID,
		Role:      user.Role,
		TenantID:  user.TenantID,
		SessionID: session.ID,
	}
	access, _, err := i.codec.Sign(claims, DomainAccess)
	if err != nil {
		return nil, err
	}
	refresh, expiresAt, err := i.codec.Sign(claims, DomainRefresh)
	if err != nil {
		return nil, err
	}

	if err := i.sessions.UpdateToken(ctx, session.ID, session.RefreshToken, refresh, expiresAt); err != nil {
		return nil, fmt.Errorf("bind refresh token: %w", err)
	}
	session.RefreshToken = refresh
	session.ExpiresAt = expiresAt

	return &IssuedSession{
		TokenPair: models.TokenPair{AccessToken: access, RefreshToken: refresh},
		User:      user.Summary(),
		Session:   session,
	}, nil
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Session binds a user to the one refresh token currently redeemable for it.
type Session struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       uuid.UUID  `json:"userId" db:"user_id"`
	TenantID     *uuid.UUID `json:"tenantId" db:"tenant_id"`
	RefreshToken string     `json:"-" db:"refresh_token"` // Never return in JSON
	ExpiresAt    time.Time  `json:"expiresAt" db:"expires_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// TokenClaims is the claim set carried by both access and refresh tokens.
type TokenClaims struct {
	UserID    uuid.UUID  `json:"uid"`
	Role      Role       `json:"role"`
	TenantID  *uuid.UUID `json:"tid,omitempty"`
	SessionID uuid.UUID  `json:"sid"`
	ExpiresAt time.Time  `json:"-"`
}

// TokenPair is what login, registration and refresh hand back to the caller.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthContext is the resolved caller identity handed to downstream handlers.
type AuthContext struct {
	UserID    uuid.UUID
	Role      Role
	TenantID  *uuid.UUID
	SessionID uuid.UUID
}

func (a AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

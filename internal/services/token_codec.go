package services

import (
	"errors"
	"fmt"
	"time"

	"agencydesk/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "agencydesk"

type TokenDomain string

const (
	DomainAccess  TokenDomain = "access"
	DomainRefresh TokenDomain = "refresh"
)

// TokenCodec signs and verifies claim sets in two independent domains.
type TokenCodec interface {
	Sign(claims models.TokenClaims, domain TokenDomain) (token string, expiresAt time.Time, err error)
	// Verify fails with ErrInvalidToken for every kind of bad token.
	Verify(token string, domain TokenDomain) (*models.TokenClaims, error)
	Lifetime(domain TokenDomain) time.Duration
}

type TokenCodecConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

type domainKey struct {
	secret []byte
	ttl    time.Duration
}

type jwtCodec struct {
	keys map[TokenDomain]domainKey
	now  func() time.Time
}

// signedClaims is the wire form. TenantID and SessionID are optional so their absence
// is explicit rather than an empty string.
type signedClaims struct {
	Type      TokenDomain `json:"typ"`
	Role      models.Role `json:"role"`
	TenantID  *uuid.UUID  `json:"tid,omitempty"`
	SessionID *uuid.UUID  `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

func NewTokenCodec(cfg TokenCodecConfig, now func() time.Time) (TokenCodec, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &jwtCodec{
		keys: map[TokenDomain]domainKey{
			DomainAccess:  {secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
			DomainRefresh: {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
		},
		now: now,
	}, nil
}

func (c *jwtCodec) Lifetime(domain TokenDomain) time.Duration {
	return c.keys[domain].ttl
}

func (c *jwtCodec) Sign(claims models.TokenClaims, domain TokenDomain) (string, time.Time, error) {
	key, ok := c.keys[domain]
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown token domain %q", domain)
	}

	now := c.now().UTC()
	expiresAt := now.Add(key.ttl)
	wire := signedClaims{
		Type:     domain,
		Role:     claims.Role,
		TenantID: claims.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   claims.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			// A fresh jti keeps two tokens minted in the same second distinct.
			ID: uuid.NewString(),
		},
	}
	if claims.SessionID != uuid.Nil {
		sid := claims.SessionID
		wire.SessionID = &sid
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(key.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", domain, err)
	}
	return signed, expiresAt, nil
}

func (c *jwtCodec) Verify(token string, domain TokenDomain) (*models.TokenClaims, error) {
	key, ok := c.keys[domain]
	if !ok || token == "" {
		return nil, ErrInvalidToken
	}

	wire := &signedClaims{}
	parsed, err := jwt.ParseWithClaims(token, wire, func(t *jwt.Token) (interface{}, error) {
		return key.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if wire.Type != domain || !wire.Role.Valid() {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(wire.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims := &models.TokenClaims{
		UserID:    userID,
		Role:      wire.Role,
		TenantID:  wire.TenantID,
		ExpiresAt: wire.ExpiresAt.Time,
	}
	if wire.SessionID != nil {
		claims.SessionID = *wire.SessionID
	}
	return claims, nil
}

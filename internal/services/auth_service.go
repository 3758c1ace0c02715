package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agencydesk/internal/caching"
	"agencydesk/internal/models"
	"agencydesk/internal/repositories"

	"github.com/google/uuid"
)

// AuthService covers login, self-registration, refresh and access-token resolution.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*IssuedSession, error)
	Register(ctx context.Context, req *RegisterRequest) (*IssuedSession, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	// Authenticate resolves an access token into the caller identity. The bound
	// session must still exist and be unexpired.
	Authenticate(ctx context.Context, accessToken string) (*models.AuthContext, error)
	VerifyCredentials(ctx context.Context, email, password string) (*models.User, error)
}

type RegisterRequest struct {
	CompanyName string `json:"companyName"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type AuthDeps struct {
	Users     repositories.UserRepository
	Sessions  repositories.SessionRepository
	Codec     TokenCodec
	Hasher    PasswordHasher
	Issuer    *SessionIssuer
	Rotator   *RefreshRotator
	Bootstrap BootstrapService
	Tenants   TenantService
	Limiter   caching.LoginLimiter
	Now       func() time.Time
	Logger    *slog.Logger
}

type authService struct {
	users     repositories.UserRepository
	sessions  repositories.SessionRepository
	codec     TokenCodec
	hasher    PasswordHasher
	issuer    *SessionIssuer
	rotator   *RefreshRotator
	bootstrap BootstrapService
	tenants   TenantService
	limiter   caching.LoginLimiter
	now       func() time.Time
	logger    *slog.Logger
}

func NewAuthService(deps AuthDeps) AuthService {
	s := &authService{
		users:     deps.Users,
		sessions:  deps.Sessions,
		codec:     deps.Codec,
		hasher:    deps.Hasher,
		issuer:    deps.Issuer,
		rotator:   deps.Rotator,
		bootstrap: deps.Bootstrap,
		tenants:   deps.Tenants,
		limiter:   deps.Limiter,
		now:       deps.Now,
		logger:    deps.Logger,
	}
	if s.limiter == nil {
		s.limiter = caching.NewNoopLoginLimiter()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "auth")
	return s
}

func (s *authService) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		s.hasher.VerifyDummy(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	// The hash is checked even for inactive users so both paths cost the same.
	valid := s.hasher.Verify(password, user.PasswordHash)
	if !valid || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*IssuedSession, error) {
	if !s.limiter.Allow(ctx, email) {
		return nil, ErrTooManyAttempts
	}

	user, err := s.VerifyCredentials(ctx, email, password)
	if errors.Is(err, ErrInvalidCredentials) {
		s.limiter.RecordFailure(ctx, email)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	issued, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	// Recorded only once a session exists; the tokens are already bound, so a failure here is not fatal.
	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record login time", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}
	s.limiter.Reset(ctx, email)
	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return issued, nil
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*IssuedSession, error) {
	email := normalizeEmail(req.Email)
	if err := validateRequired("companyName", req.CompanyName); err != nil {
		return nil, err
	}
	if err := validateRequired("name", req.Name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	taken, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailInUse
	}

	// While no administrator exists the first registrant becomes one.
	hasAdmin, err := s.bootstrap.HasAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if !hasAdmin {
		admin, err := s.bootstrap.SetupFirstAdmin(ctx, &SetupAdminRequest{
			Name:     req.Name,
			Email:    email,
			Password: req.Password,
		})
		switch {
		case err == nil:
			s.logger.Info("registration upgraded to first administrator", "user_id", admin.ID)
			return s.issuer.Issue(ctx, admin)
		case errors.Is(err, ErrAdminAlreadyExists):
			// Lost the race to another bootstrap; continue as an ordinary client.
		default:
			return nil, err
		}
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	owner, err := s.tenants.Register(ctx, &RegisterTenantRequest{
		CompanyName:  req.CompanyName,
		OwnerName:    req.Name,
		Email:        email,
		PasswordHash: digest,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("client tenant registered", "user_id", owner.ID, "tenant_id", owner.TenantID)
	return s.issuer.Issue(ctx, owner)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	return s.rotator.Rotate(ctx, refreshToken)
}

func (s *authService) Authenticate(ctx context.Context, accessToken string) (*models.AuthContext, error) {
	claims, err := s.codec.Verify(accessToken, DomainAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.SessionID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	session, err := s.sessions.Lookup(ctx, claims.SessionID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if session.UserID != claims.UserID {
		return nil, ErrInvalidToken
	}
	if session.Expired(s.now()) {
		return nil, ErrSessionExpired
	}

	return &models.AuthContext{
		UserID:    claims.UserID,
		Role:      claims.Role,
		TenantID:  claims.TenantID,
		SessionID: claims.SessionID,
	}, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"agencydesk/internal/models"
	"agencydesk/internal/repositories"
)

// BootstrapService manages the first-admin lifecycle and the system tenant.
type BootstrapService interface {
	HasAdmin(ctx context.Context) (bool, error)
	GetOrCreateSystemTenant(ctx context.Context) (*models.Tenant, error)
	SetupFirstAdmin(ctx context.Context, req *SetupAdminRequest) (*models.User, error)
	// EnsureStartupAdmin provisions the configured admin when none exists and
	// reports whether one was created. An existing admin is not an error.
	EnsureStartupAdmin(ctx context.Context, req *SetupAdminRequest) (bool, error)
}

type SetupAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type bootstrapService struct {
	repo             repositories.BootstrapRepository
	hasher           PasswordHasher
	systemTenantName string
	logger           *slog.Logger
}

func NewBootstrapService(repo repositories.BootstrapRepository, hasher PasswordHasher, systemTenantName string, logger *slog.Logger) BootstrapService {
	if logger == nil {
		logger = slog.Default()
	}
	return &bootstrapService{
		repo:             repo,
		hasher:           hasher,
		systemTenantName: systemTenantName,
		logger:           logger.With("component", "bootstrap"),
	}
}

func (s *bootstrapService) HasAdmin(ctx context.Context) (bool, error) {
	return s.repo.HasAdmin(ctx)
}

func (s *bootstrapService) GetOrCreateSystemTenant(ctx context.Context) (*models.Tenant, error) {
	return s.repo.GetOrCreateSystemTenant(ctx, s.systemTenantName)
}

func (s *bootstrapService) SetupFirstAdmin(ctx context.Context, req *SetupAdminRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	if err := validateRequired("name", req.Name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	// Cheap pre-check so a set-up system does not pay for a bcrypt hash. The
	// transaction below repeats it under the bootstrap lock.
	exists, err := s.repo.HasAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAdminAlreadyExists
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	admin := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: digest,
	}
	tenant, err := s.repo.CreateFirstAdmin(ctx, s.systemTenantName, admin)
	switch {
	case errors.Is(err, repositories.ErrAdminExists):
		return nil, ErrAdminAlreadyExists
	case errors.Is(err, repositories.ErrEmailTaken):
		return nil, ErrEmailInUse
	case err != nil:
		return nil, fmt.Errorf("create first admin: %w", err)
	}

	s.logger.Info("first administrator created", "user_id", admin.ID, "tenant_id", tenant.ID)
	return admin, nil
}

func (s *bootstrapService) EnsureStartupAdmin(ctx context.Context, req *SetupAdminRequest) (bool, error) {
	if _, err := s.GetOrCreateSystemTenant(ctx); err != nil {
		return false, fmt.Errorf("ensure system tenant: %w", err)
	}

	_, err := s.SetupFirstAdmin(ctx, req)
	if errors.Is(err, ErrAdminAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agencydesk/internal/models"
	"agencydesk/internal/repositories"

	"github.com/google/uuid"
)

type UserService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	// ProvisionAdmin adds another administrator to the system tenant.
	ProvisionAdmin(ctx context.Context, req *ProvisionAdminRequest) (*models.User, error)
	Deactivate(ctx context.Context, actorID, id uuid.UUID) error
	ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error
}

type ProvisionAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userService struct {
	userRepo  repositories.UserRepository
	bootstrap BootstrapService
	hasher    PasswordHasher
}

func NewUserService(userRepo repositories.UserRepository, bootstrap BootstrapService, hasher PasswordHasher) UserService {
	return &userService{userRepo: userRepo, bootstrap: bootstrap, hasher: hasher}
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}

func (s *userService) ProvisionAdmin(ctx context.Context, req *ProvisionAdminRequest) (*models.User, error) {
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

	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailInUse
	}

	tenant, err := s.bootstrap.GetOrCreateSystemTenant(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve system tenant: %w", err)
	}
	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		TenantID:     &tenant.ID,
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: digest,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) Deactivate(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return ValidationError("id", "you cannot deactivate your own account")
	}
	// The repository revokes the user's sessions in the same transaction, so
	// outstanding access and refresh tokens stop working immediately.
	err := s.userRepo.Deactivate(ctx, id)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repositories.ErrLastAdmin):
		return ErrLastAdmin
	}
	return err
}

func (s *userService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if err := validatePassword(next); err != nil {
		return err
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	digest, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, id, digest); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agencydesk/internal/caching"
	"agencydesk/internal/models"
	"agencydesk/internal/repositories"

	"github.com/google/uuid"
	"github.com/labstack/gommon/random"
)

const (
	tenantListPrefix = "tenants:list:"
	slugAttempts     = 4
)

type TenantService interface {
	// Register creates a client tenant, its profile and its owning user in one unit.
	Register(ctx context.Context, req *RegisterTenantRequest) (*models.User, error)
	// GetByID always reads through to storage; it backs the tenant gate.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*models.TenantDetail, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Tenant, error)
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
}

type tenantService struct {
	tenantRepo repositories.TenantRepository
	userRepo   repositories.UserRepository
	cache      caching.Cache
	cacheTTL   time.Duration
}

func NewTenantService(tenantRepo repositories.TenantRepository, userRepo repositories.UserRepository, cache caching.Cache, cacheTTL time.Duration) TenantService {
	if cache == nil {
		cache = caching.NewNoopCache()
	}
	return &tenantService{tenantRepo: tenantRepo, userRepo: userRepo, cache: cache, cacheTTL: cacheTTL}
}

// RegisterTenantRequest carries an already hashed password.
type RegisterTenantRequest struct {
	CompanyName  string
	OwnerName    string
	Email        string
	PasswordHash string
}

func (s *tenantService) Register(ctx context.Context, req *RegisterTenantRequest) (*models.User, error) {
	if err := validateRequired("companyName", req.CompanyName); err != nil {
		return nil, err
	}
	base := slugify(req.CompanyName)
	if base == "" || base == "system" {
		base = "client"
	}

	owner := &models.User{
		Name:         strings.TrimSpace(req.OwnerName),
		Email:        normalizeEmail(req.Email),
		PasswordHash: req.PasswordHash,
		Role:         models.RoleClient,
		IsActive:     true,
	}
	profile := &models.ClientProfile{
		CompanyName:  strings.TrimSpace(req.CompanyName),
		ContactName:  owner.Name,
		ContactEmail: owner.Email,
	}

	slug := base
	for attempt := 0; attempt < slugAttempts; attempt++ {
		tenant := &models.Tenant{
			Name:     profile.CompanyName,
			Slug:     slug,
			IsActive: true,
		}
		err := s.tenantRepo.CreateWithOwner(ctx, tenant, profile, owner)
		switch {
		case err == nil:
			s.cache.DeletePrefix(ctx, tenantListPrefix)
			return owner, nil
		case errors.Is(err, repositories.ErrEmailTaken):
			return nil, ErrEmailInUse
		case errors.Is(err, repositories.ErrSlugTaken):
			slug = base + "-" + random.String(6, random.Lowercase, random.Numeric)
			// Fresh ids for the retry; the failed transaction rolled everything back.
			owner.ID, profile.ID = uuid.Nil, uuid.Nil
		default:
			return nil, fmt.Errorf("register tenant: %w", err)
		}
	}
	return nil, fmt.Errorf("register tenant: no free slug for %q", base)
}

func (s *tenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	return tenant, err
}

func (s *tenantService) GetDetail(ctx context.Context, id uuid.UUID) (*models.TenantDetail, error) {
	tenant, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.TenantDetail{Tenant: *tenant}
	profile, err := s.tenantRepo.GetProfile(ctx, id)
	switch {
	case err == nil:
		detail.Profile = profile
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	users, err := s.userRepo.ListByTenant(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list tenant users: %w", err)
	}
	detail.Users = make([]models.UserSummary, 0, len(users))
	for _, user := range users {
		detail.Users = append(detail.Users, user.Summary())
	}
	return detail, nil
}

func (s *tenantService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Tenant, error) {
	tenant, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant.IsSystem && !active {
		return nil, ValidationError("isActive", "the system tenant cannot be deactivated")
	}
	if err := s.tenantRepo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.cache.DeletePrefix(ctx, tenantListPrefix)

	tenant.IsActive = active
	return tenant, nil
}

func (s *tenantService) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	key := fmt.Sprintf("%s%d:%d", tenantListPrefix, limit, offset)
	var cached []*models.Tenant
	if caching.GetJSON(ctx, s.cache, key, &cached) {
		return cached, nil
	}

	tenants, err := s.tenantRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	caching.SetJSON(ctx, s.cache, key, tenants, s.cacheTTL)
	return tenants, nil
}

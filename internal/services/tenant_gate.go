package services

import (
	"context"
	"errors"

	"agencydesk/internal/models"
)

// TenantGate decides whether a caller's tenant permits the request.
type TenantGate struct {
	tenants TenantService
}

func NewTenantGate(tenants TenantService) *TenantGate {
	return &TenantGate{tenants: tenants}
}

// Check requires every caller to carry a tenant. Administrators then pass without
// a lookup and get a nil tenant; clients need a tenant that exists and is active.
func (g *TenantGate) Check(ctx context.Context, auth *models.AuthContext) (*models.Tenant, error) {
	if auth.TenantID == nil {
		return nil, ErrTenantNotResolved
	}
	if auth.IsAdmin() {
		return nil, nil
	}

	tenant, err := g.tenants.GetByID(ctx, *auth.TenantID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrTenantNotResolved
	}
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive {
		return nil, ErrTenantInactive
	}
	return tenant, nil
}

package handlers

import (
	"net/http"

	"agencydesk/internal/common"
	"agencydesk/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TenantHandlers handles tenant-related HTTP requests
type TenantHandlers struct {
	tenantService services.TenantService
}

// NewTenantHandlers creates a new tenant handlers instance
func NewTenantHandlers(tenantService services.TenantService) *TenantHandlers {
	return &TenantHandlers{tenantService: tenantService}
}

type SetTenantStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

// ListTenants returns a page of tenants (admin only)
func (h *TenantHandlers) ListTenants(c echo.Context) error {
	limit, offset := common.ParsePagination(c)

	tenants, err := h.tenantService.List(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetTenant returns one tenant with its client profile (admin only)
func (h *TenantHandlers) GetTenant(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return services.ValidationError("id", err.Error())
	}

	detail, err := h.tenantService.GetDetail(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// SetTenantStatus activates or deactivates a tenant (admin only)
func (h *TenantHandlers) SetTenantStatus(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return services.ValidationError("id", err.Error())
	}
	var req SetTenantStatusRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	if req.IsActive == nil {
		return services.ValidationError("isActive", "isActive is required")
	}

	tenant, err := h.tenantService.SetActive(c.Request().Context(), id, *req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenant)
}

// CurrentTenant returns the caller's own tenant. It runs behind the tenant gate.
func (h *TenantHandlers) CurrentTenant(c echo.Context) error {
	ctx := c.Request().Context()
	var tenantID *uuid.UUID
	if tenant, ok := common.GetTenant(ctx); ok {
		tenantID = &tenant.ID
	} else if auth, ok := common.GetAuthContext(ctx); ok {
		// Administrators are not gated; show them the system tenant they belong to.
		tenantID = auth.TenantID
	}
	if tenantID == nil {
		return services.ErrTenantNotResolved
	}

	detail, err := h.tenantService.GetDetail(ctx, *tenantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

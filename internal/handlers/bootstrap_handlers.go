package handlers

import (
	"net/http"

	"agencydesk/internal/common"
	"agencydesk/internal/models"
	"agencydesk/internal/services"

	"github.com/labstack/echo/v4"
)

type BootstrapHandlers struct {
	bootstrapService services.BootstrapService
}

func NewBootstrapHandlers(bootstrapService services.BootstrapService) *BootstrapHandlers {
	return &BootstrapHandlers{bootstrapService: bootstrapService}
}

type BootstrapStatus struct {
	IsSetup bool `json:"isSetup"`
}

// Status reports whether an administrator exists yet
func (h *BootstrapHandlers) Status(c echo.Context) error {
	exists, err := h.bootstrapService.HasAdmin(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, BootstrapStatus{IsSetup: exists})
}

// Setup creates the first administrator. It fails with 403 once one exists.
func (h *BootstrapHandlers) Setup(c echo.Context) error {
	var req services.SetupAdminRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	admin, err := h.bootstrapService.SetupFirstAdmin(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	common.SetAuditActor(c, admin.Summary())
	return c.JSON(http.StatusCreated, struct {
		ID    string      `json:"id"`
		Name  string      `json:"name"`
		Email string      `json:"email"`
		Role  models.Role `json:"role"`
	}{admin.ID.String(), admin.Name, admin.Email, admin.Role})
}

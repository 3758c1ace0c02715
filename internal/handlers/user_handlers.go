package handlers

import (
	"net/http"

	"agencydesk/internal/common"
	"agencydesk/internal/services"

	"github.com/labstack/echo/v4"
)

// UserHandlers handles self-service profile endpoints and admin user management
type UserHandlers struct {
	userService services.UserService
}

func NewUserHandlers(userService services.UserService) *UserHandlers {
	return &UserHandlers{userService: userService}
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Me returns the authenticated user's profile
func (h *UserHandlers) Me(c echo.Context) error {
	auth, ok := common.GetAuthContext(c.Request().Context())
	if !ok {
		return services.ErrInvalidToken
	}

	user, err := h.userService.Get(c.Request().Context(), auth.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// ChangePassword replaces the caller's password after re-checking the current one
func (h *UserHandlers) ChangePassword(c echo.Context) error {
	auth, ok := common.GetAuthContext(c.Request().Context())
	if !ok {
		return services.ErrInvalidToken
	}
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	if err := h.userService.ChangePassword(c.Request().Context(), auth.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ProvisionAdmin adds another administrator (admin only)
func (h *UserHandlers) ProvisionAdmin(c echo.Context) error {
	var req services.ProvisionAdminRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	user, err := h.userService.ProvisionAdmin(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user.Summary())
}

// DeactivateUser soft-deactivates an account (admin only)
func (h *UserHandlers) DeactivateUser(c echo.Context) error {
	auth, ok := common.GetAuthContext(c.Request().Context())
	if !ok {
		return services.ErrInvalidToken
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return services.ValidationError("id", err.Error())
	}

	if err := h.userService.Deactivate(c.Request().Context(), auth.UserID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

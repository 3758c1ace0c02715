package handlers

import (
	"net/http"

	"agencydesk/internal/common"
	"agencydesk/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers handles login, registration and refresh
type AuthHandlers struct {
	authService services.AuthService
}

func NewAuthHandlers(authService services.AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges email and password for a token pair
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	issued, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	common.SetAuditActor(c, issued.User)
	return c.JSON(http.StatusOK, issued)
}

// Register creates a client tenant with its owner, or the first administrator
func (h *AuthHandlers) Register(c echo.Context) error {
	var req services.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	issued, err := h.authService.Register(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	common.SetAuditActor(c, issued.User)
	return c.JSON(http.StatusCreated, issued)
}

// Refresh rotates a refresh token into a new pair
func (h *AuthHandlers) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	if req.RefreshToken == "" {
		return services.ValidationError("refreshToken", "refreshToken is required")
	}

	pair, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

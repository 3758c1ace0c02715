package middleware

import (
	"agencydesk/internal/common"
	"agencydesk/internal/models"
	"agencydesk/internal/services"

	"github.com/labstack/echo/v4"
)

// RequireRole admits callers whose role is one of roles. It must run after Authenticate.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth, ok := common.GetAuthContext(c.Request().Context())
			if !ok {
				return services.ErrInvalidToken
			}
			if !allowed[auth.Role] {
				return services.ErrForbidden
			}
			return next(c)
		}
	}
}

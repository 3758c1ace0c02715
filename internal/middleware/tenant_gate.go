package middleware

import (
	"agencydesk/internal/common"
	"agencydesk/internal/services"

	"github.com/labstack/echo/v4"
)

// TenantGate rejects client callers whose tenant is missing or inactive. On success
// the tenant is placed on the request context. It must run after Authenticate.
func TenantGate(gate *services.TenantGate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			auth, ok := common.GetAuthContext(ctx)
			if !ok {
				return services.ErrInvalidToken
			}

			tenant, err := gate.Check(ctx, auth)
			if err != nil {
				return err
			}
			if tenant != nil {
				c.SetRequest(c.Request().WithContext(common.WithTenant(ctx, tenant)))
			}
			return next(c)
		}
	}
}

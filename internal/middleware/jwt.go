package middleware

import (
	"errors"

	"agencydesk/internal/common"
	"agencydesk/internal/services"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	authContextKey = "auth"
	authErrorKey   = "auth_error"
)

// Authenticate resolves the bearer access token into an AuthContext on the request context.
// Token parsing is delegated to the auth service so the bound session is corroborated too.
func Authenticate(auth services.AuthService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  authContextKey,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			ctx := c.Request().Context()
			resolved, err := auth.Authenticate(ctx, token)
			if err != nil {
				// Kept so the error handler sees it unwrapped.
				c.Set(authErrorKey, err)
				return nil, err
			}
			c.SetRequest(c.Request().WithContext(common.WithAuthContext(ctx, resolved)))
			return resolved, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if parseErr, ok := c.Get(authErrorKey).(error); ok {
				err = parseErr
			}
			var appErr *services.AppError
			if errors.As(err, &appErr) {
				return appErr
			}
			if c.Get(authErrorKey) != nil {
				// Storage faults while corroborating the session.
				return err
			}
			// Missing or malformed Authorization header.
			return services.ErrInvalidToken
		},
	})
}

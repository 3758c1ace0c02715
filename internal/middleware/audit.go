package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"agencydesk/internal/common"
	"agencydesk/internal/models"
	"agencydesk/internal/services"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// AuditRequests writes one structured line per request. Authentication failures
// (401 and 403) are raised to warn so they stand out.
func AuditRequests(logger *slog.Logger) echo.MiddlewareFunc {
	return echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
			}
			if auth, ok := common.GetAuthContext(c.Request().Context()); ok {
				attrs = append(attrs,
					slog.String("user_id", auth.UserID.String()),
					slog.String("role", string(auth.Role)),
				)
			}

			level := slog.LevelInfo
			switch {
			case v.Status >= 500:
				level = slog.LevelError
			case v.Status == 401 || v.Status == 403 || v.Status == 429:
				level = slog.LevelWarn
			}
			if v.Error != nil && level != slog.LevelInfo {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	})
}

// RecordAudit persists one audit entry per state-changing request after the handler
// returns. Reads are not recorded. The actor is the authenticated caller, or the user a
// login, registration or bootstrap handler just signed in.
func RecordAudit(audits services.AuditLogService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return err
			}

			actorID, tenantID := common.GetAuditActor(c)
			entry := &models.AuditLog{
				TenantID:  tenantID,
				ActorID:   actorID,
				Action:    c.Request().Method + " " + c.Path(),
				Status:    responseStatus(c, err),
				RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
				RemoteIP:  c.RealIP(),
			}
			var appErr *services.AppError
			if errors.As(err, &appErr) {
				entry.Details = models.JSONB{"code": appErr.Code}
			}

			// The write outlives a client that hung up early.
			audits.Record(context.WithoutCancel(c.Request().Context()), entry)
			return err
		}
	}
}

// responseStatus predicts the status the error handler will write for err.
func responseStatus(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var appErr *services.AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"agencydesk/internal/common"
	"agencydesk/internal/services"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every failure as {"error":{code,message,details}}. AppErrors keep
// their status and code, echo errors keep their status, anything else is logged and hidden.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := renderError(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"error", err,
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error("write error response", "error", writeErr)
		}
	}
}

func renderError(err error) (int, *common.ErrorResponse) {
	var appErr *services.AppError
	if errors.As(err, &appErr) {
		return appErr.Status, common.CreateErrorResponse(appErr.Code, appErr.Message, appErr.Details)
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok && m != "" {
			message = m
		}
		return httpErr.Code, common.CreateErrorResponse(statusCode(httpErr.Code), message, nil)
	}

	return http.StatusInternalServerError,
		common.CreateErrorResponse("SERVER_ERROR", "An unexpected error occurred", nil)
}

// statusCode turns 404 into NOT_FOUND, 405 into METHOD_NOT_ALLOWED and so on.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return fmt.Sprintf("HTTP_%d", status)
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

var errInvalidBody = services.ValidationError("body", "request body is not valid JSON")

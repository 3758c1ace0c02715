package handlers

import (
	"net/http"
	"strconv"
	"time"

	"agencydesk/internal/common"
	"agencydesk/internal/models"
	"agencydesk/internal/services"

	"github.com/labstack/echo/v4"
)

// AuditLogsHandlers handles audit logs related HTTP requests
type AuditLogsHandlers struct {
	auditLogService services.AuditLogService
}

// NewAuditLogsHandlers creates a new audit logs handlers instance
func NewAuditLogsHandlers(auditLogService services.AuditLogService) *AuditLogsHandlers {
	return &AuditLogsHandlers{auditLogService: auditLogService}
}

// ListAuditLogs retrieves audit logs with filtering and pagination (admin only)
func (h *AuditLogsHandlers) ListAuditLogs(c echo.Context) error {
	filters := &models.AuditLogFilters{Action: c.QueryParam("action")}

	if actor := c.QueryParam("actor_id"); actor != "" {
		id, err := common.ValidateUUID(actor, "actor_id")
		if err != nil {
			return services.ValidationError("actor_id", err.Error())
		}
		filters.ActorID = &id
	}
	if tenant := c.QueryParam("tenant_id"); tenant != "" {
		id, err := common.ValidateUUID(tenant, "tenant_id")
		if err != nil {
			return services.ValidationError("tenant_id", err.Error())
		}
		filters.TenantID = &id
	}
	for _, field := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filters.From}, {"to", &filters.To}} {
		raw := c.QueryParam(field.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return services.ValidationError(field.name, field.name+" must be an RFC 3339 timestamp")
		}
		*field.dst = &t
	}

	filters.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	filters.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	logs, err := h.auditLogService.List(c.Request().Context(), filters)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   logs,
		"total":  len(logs),
		"limit":  filters.Limit,
		"offset": filters.Offset,
	})
}

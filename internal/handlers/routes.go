package handlers

import (
	"agencydesk/internal/middleware"
	"agencydesk/internal/models"
	"agencydesk/internal/services"

	"github.com/labstack/echo/v4"
)

// Routes wires handlers to paths. A nil AuditService disables audit recording.
type Routes struct {
	Auth         *AuthHandlers
	Bootstrap    *BootstrapHandlers
	Tenants      *TenantHandlers
	Users        *UserHandlers
	Health       *HealthHandlers
	AuditLogs    *AuditLogsHandlers
	AuthService  services.AuthService
	AuditService services.AuditLogService
	Gate         *services.TenantGate
}

// Register mounts every endpoint on e.
func (r Routes) Register(e *echo.Echo) {
	e.GET("/health", r.Health.HealthCheck)
	e.GET("/health/ready", r.Health.ReadinessCheck)

	v1 := e.Group("/v1", middleware.VersionHeader("v1"))
	if r.AuditService != nil {
		v1.Use(middleware.RecordAudit(r.AuditService))
	}

	auth := v1.Group("/auth")
	auth.POST("/login", r.Auth.Login)
	auth.POST("/register", r.Auth.Register)
	auth.POST("/refresh", r.Auth.Refresh)

	v1.GET("/bootstrap/status", r.Bootstrap.Status)
	v1.POST("/bootstrap", r.Bootstrap.Setup)

	protected := v1.Group("", middleware.Authenticate(r.AuthService))
	protected.GET("/me", r.Users.Me)
	protected.PUT("/me/password", r.Users.ChangePassword)
	protected.GET("/tenant", r.Tenants.CurrentTenant, middleware.TenantGate(r.Gate))

	admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.GET("/tenants", r.Tenants.ListTenants)
	admin.GET("/tenants/:id", r.Tenants.GetTenant)
	admin.PATCH("/tenants/:id/status", r.Tenants.SetTenantStatus)
	admin.POST("/users", r.Users.ProvisionAdmin)
	admin.POST("/users/:id/deactivate", r.Users.DeactivateUser)
	if r.AuditLogs != nil {
		admin.GET("/audit-logs", r.AuditLogs.ListAuditLogs)
	}
}

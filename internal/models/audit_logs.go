package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records one state-changing request against the service.
type AuditLog struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TenantID  *uuid.UUID `json:"tenantId,omitempty" db:"tenant_id"`
	ActorID   *uuid.UUID `json:"actorId,omitempty" db:"actor_id"`
	Action    string     `json:"action" db:"action"` // e.g. "POST /v1/auth/login"
	Status    int        `json:"status" db:"status"`
	RequestID string     `json:"requestId,omitempty" db:"request_id"`
	RemoteIP  string     `json:"remoteIp,omitempty" db:"remote_ip"`
	Details   JSONB      `json:"details,omitempty" db:"details"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}

// JSONB is a free-form object stored in a jsonb column.
type JSONB map[string]any

// AuditLogFilters narrows an audit log listing. Zero values mean "any".
type AuditLogFilters struct {
	Action   string
	ActorID  *uuid.UUID
	TenantID *uuid.UUID
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

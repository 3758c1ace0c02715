package models

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	IsSystem  bool      `json:"isSystem" db:"is_system"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ClientProfile is the customer record attached to every non-system tenant.
type ClientProfile struct {
	ID           uuid.UUID `json:"id" db:"id"`
	TenantID     uuid.UUID `json:"tenantId" db:"tenant_id"`
	CompanyName  string    `json:"companyName" db:"company_name"`
	ContactName  string    `json:"contactName" db:"contact_name"`
	ContactEmail string    `json:"contactEmail" db:"contact_email"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// TenantDetail is a tenant with its client profile, nil for the system tenant, and its users.
type TenantDetail struct {
	Tenant
	Profile *ClientProfile `json:"profile,omitempty"`
	Users   []UserSummary  `json:"users"`
}

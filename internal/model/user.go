package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a user's role. super_admin is the only role without a tenant.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleUser        Role = "user"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTenantAdmin, RoleUser:
		return true
	}
	return false
}

// User represents an account. Email is unique within a tenant, not globally.
type User struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID     *string   `json:"tenantId" gorm:"type:uuid;uniqueIndex:idx_users_email_tenant,priority:2;index"`
	Email        string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex:idx_users_email_tenant,priority:1"`
	FullName     string    `json:"fullName" gorm:"type:varchar(255);not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	Role         Role      `json:"role" gorm:"type:varchar(20);not null;index"`
	IsActive     bool      `json:"isActive" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Relations
	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns an id when the caller did not
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsSuperAdmin reports whether the user carries the tenant-independent role
func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// UserRef is the trimmed user shape embedded in project and task payloads
type UserRef struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
}

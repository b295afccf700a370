package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantStatus is the lifecycle state of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusTrial     TenantStatus = "trial"
)

// Valid reports whether s is a known tenant status
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantStatusActive, TenantStatusSuspended, TenantStatusTrial:
		return true
	}
	return false
}

// SubscriptionPlan is the billing plan a tenant is on
type SubscriptionPlan string

const (
	PlanFree       SubscriptionPlan = "free"
	PlanPro        SubscriptionPlan = "pro"
	PlanEnterprise SubscriptionPlan = "enterprise"
)

// Valid reports whether p is a known subscription plan
func (p SubscriptionPlan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// Defaults applied to newly registered tenants
const (
	DefaultMaxUsers    = 5
	DefaultMaxProjects = 3
)

// Tenant represents an isolated organization.
// Users, projects and tasks hang off a tenant and are removed with it.
type Tenant struct {
	ID               string           `json:"id" gorm:"type:uuid;primaryKey"`
	Name             string           `json:"name" gorm:"type:varchar(255);not null"`
	Subdomain        string           `json:"subdomain" gorm:"type:varchar(63);uniqueIndex;not null"`
	Status           TenantStatus     `json:"status" gorm:"type:varchar(20);not null;index"`
	SubscriptionPlan SubscriptionPlan `json:"subscriptionPlan" gorm:"type:varchar(20);not null;index"`
	MaxUsers         int              `json:"maxUsers" gorm:"not null"`
	MaxProjects      int              `json:"maxProjects" gorm:"not null"`
	CreatedAt        time.Time        `json:"createdAt" gorm:"index"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// BeforeCreate assigns an id when the caller did not
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TenantStats are the per-tenant resource counts shown on the tenant page
type TenantStats struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalProjects int64 `json:"totalProjects"`
	TotalTasks    int64 `json:"totalTasks"`
}

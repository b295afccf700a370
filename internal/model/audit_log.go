package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog is an immutable record of a state-changing action.
// It carries no foreign keys so deleting a user or tenant never fails on its history.
type AuditLog struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID   *string   `json:"tenantId" gorm:"type:uuid;index"`
	UserID     *string   `json:"userId" gorm:"type:uuid;index"`
	Action     string    `json:"action" gorm:"type:varchar(64);not null"`
	EntityType string    `json:"entityType" gorm:"type:varchar(32)"`
	EntityID   string    `json:"entityId" gorm:"type:varchar(64)"`
	IPAddress  *string   `json:"ipAddress" gorm:"type:varchar(64)"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index"`
}

// BeforeCreate assigns an id when the caller did not
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Models lists every entity for AutoMigrate, parents first
func Models() []interface{} {
	return []interface{}{&Tenant{}, &User{}, &Project{}, &Task{}, &AuditLog{}}
}

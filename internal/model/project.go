package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectStatus is the lifecycle state of a project
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusArchived  ProjectStatus = "archived"
	ProjectStatusCompleted ProjectStatus = "completed"
)

// Valid reports whether s is a known project status
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusArchived, ProjectStatusCompleted:
		return true
	}
	return false
}

// Project belongs to exactly one tenant; TenantID never changes after creation.
type Project struct {
	ID          string        `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID    string        `json:"tenantId" gorm:"type:uuid;not null;index"`
	Name        string        `json:"name" gorm:"type:varchar(255);not null"`
	Description string        `json:"description" gorm:"type:text"`
	Status      ProjectStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	CreatedBy   string        `json:"createdBy" gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time     `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time     `json:"updatedAt"`

	Tenant  *Tenant  `json:"-" gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	Creator *UserRef `json:"creator,omitempty" gorm:"-"`

	// Filled on list reads only
	TaskCount          *int64 `json:"taskCount,omitempty" gorm:"-"`
	CompletedTaskCount *int64 `json:"completedTaskCount,omitempty" gorm:"-"`
}

// BeforeCreate assigns an id when the caller did not
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

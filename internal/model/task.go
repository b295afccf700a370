package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskStatus is the workflow state of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known task status
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskPriority orders tasks within a project
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is a known priority
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is owned by one project. TenantID is a copy of the project's tenant so
// authorization does not need a join.
type Task struct {
	ID          string       `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID   string       `json:"projectId" gorm:"type:uuid;not null;index"`
	TenantID    string       `json:"tenantId" gorm:"type:uuid;not null;index"`
	Title       string       `json:"title" gorm:"type:varchar(255);not null"`
	Description string       `json:"description" gorm:"type:text"`
	Status      TaskStatus   `json:"status" gorm:"type:varchar(20);not null;index"`
	Priority    TaskPriority `json:"priority" gorm:"type:varchar(10);not null"`
	AssignedTo  *string      `json:"assignedTo" gorm:"type:uuid;index"`
	DueDate     *time.Time   `json:"dueDate" gorm:"type:date"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`

	Project  *Project `json:"-" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	Tenant   *Tenant  `json:"-" gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	Assignee *User    `json:"-" gorm:"foreignKey:AssignedTo;constraint:OnDelete:SET NULL"`

	AssigneeRef *UserRef `json:"assignee,omitempty" gorm:"-"`
}

// BeforeCreate assigns an id when the caller did not
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// AfterFind exposes the preloaded assignee in its trimmed form
func (t *Task) AfterFind(tx *gorm.DB) error {
	if t.Assignee != nil {
		t.AssigneeRef = &UserRef{ID: t.Assignee.ID, FullName: t.Assignee.FullName, Email: t.Assignee.Email}
	}
	return nil
}

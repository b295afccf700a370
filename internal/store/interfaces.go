package store

import (
	"context"
	"errors"

	"github.com/suteetoe/taskhub/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a unique index
	ErrConflict = errors.New("conflict")
)

// TenantStore holds tenants
type TenantStore interface {
	CreateTenant(ctx context.Context, t *model.Tenant) error
	GetTenant(ctx context.Context, id string) (*model.Tenant, error)
	GetTenantBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error)
	UpdateTenant(ctx context.Context, t *model.Tenant) error
	ListTenants(ctx context.Context, f TenantFilter) ([]TenantSummary, int64, error)
}

// UserStore holds users
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserWithTenant(ctx context.Context, id string) (*model.User, error)
	FindUserByEmail(ctx context.Context, tenantID, email string) (*model.User, error)
	FindSuperAdminByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	// DeleteUser removes the user and unassigns its tasks
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, f UserFilter) ([]model.User, int64, error)
	CountUsers(ctx context.Context, tenantID string) (int64, error)
}

// ProjectStore holds projects
type ProjectStore interface {
	CreateProject(ctx context.Context, p *model.Project) error
	// GetProject loads the project with its creator
	GetProject(ctx context.Context, id string) (*model.Project, error)
	UpdateProject(ctx context.Context, p *model.Project) error
	// DeleteProject removes the project and its tasks
	DeleteProject(ctx context.Context, id string) error
	// ListProjects fills the creator and the task counters of every row
	ListProjects(ctx context.Context, f ProjectFilter) ([]model.Project, int64, error)
	CountProjects(ctx context.Context, tenantID string) (int64, error)
}

// TaskStore holds tasks
type TaskStore interface {
	CreateTask(ctx context.Context, t *model.Task) error
	// GetTask loads the task with its assignee
	GetTask(ctx context.Context, id string) (*model.Task, error)
	UpdateTask(ctx context.Context, t *model.Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, f TaskFilter) ([]model.Task, int64, error)
	CountTasks(ctx context.Context, tenantID string) (int64, error)
}

// AuditStore appends audit entries. Nothing in the service reads them back.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, entry *model.AuditLog) error
}

// Store is every entity store plus transactions
type Store interface {
	TenantStore
	UserStore
	ProjectStore
	TaskStore
	AuditStore

	// Transaction runs fn against a Store bound to one database transaction.
	// fn's error rolls the transaction back and is returned unchanged.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

package store

import "github.com/suteetoe/taskhub/internal/model"

const MaxLimit = 100

// Page selects a window of a list
type Page struct {
	Page  int
	Limit int
}

// Normalize fills defaults and clamps the window.
// A zero limit means "not given" and takes def; anything else is clamped to [1, MaxLimit].
func (p Page) Normalize(def int) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.Limit == 0:
		p.Limit = def
	case p.Limit < 1:
		p.Limit = 1
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

// Offset is the number of rows skipped
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

type TenantFilter struct {
	Page
	Status           model.TenantStatus
	SubscriptionPlan model.SubscriptionPlan
}

type UserFilter struct {
	Page
	TenantID string
	Role     model.Role
	Search   string
}

// ProjectFilter lists projects. An empty TenantID lists every tenant.
type ProjectFilter struct {
	Page
	TenantID string
	Status   model.ProjectStatus
	Search   string
}

type TaskFilter struct {
	Page
	ProjectID  string
	Status     model.TaskStatus
	Priority   model.TaskPriority
	AssignedTo string
	Search     string
}

// TenantSummary is a tenant row in the tenant list
type TenantSummary struct {
	model.Tenant
	TotalUsers    int64 `json:"totalUsers"`
	TotalProjects int64 `json:"totalProjects"`
}

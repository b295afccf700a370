package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/suteetoe/taskhub/internal/apperr"
	"github.com/suteetoe/taskhub/internal/audit"
	"github.com/suteetoe/taskhub/internal/authz"
	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/internal/quota"
	"github.com/suteetoe/taskhub/internal/store"
	"github.com/suteetoe/taskhub/pkg/logger"
)

const MsgProjectNotFound = "Project not found"

// ProjectService manages projects
type ProjectService struct {
	store store.Store
	quota *quota.Checker
	audit Auditor
	log   *zap.Logger
}

func NewProjectService(s store.Store, q *quota.Checker, auditor Auditor, log *zap.Logger) *ProjectService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProjectService{store: s, quota: q, audit: auditor, log: log}
}

type CreateProjectInput struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Status      model.ProjectStatus `json:"status"`
}

// Create adds a project to the caller's tenant, subject to the project ceiling.
// Tenant and creator always come from the caller.
func (s *ProjectService) Create(ctx context.Context, c authz.Caller, in CreateProjectInput) (*model.Project, error) {
	log := logger.FromCtx(ctx, s.log)

	tenantID := deref(c.TenantID)
	if err := authorize(ctx, c, authz.Resource{Type: authz.ProjectResource, TenantID: tenantID}, authz.Create); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.Invalid("Project name is required")
	}
	if in.Status == "" {
		in.Status = model.ProjectStatusActive
	}
	if !in.Status.Valid() {
		return nil, apperr.Invalid("Invalid project status")
	}

	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, lookupErr("service.CreateProject", err, MsgTenantNotFound)
	}
	if err := s.quota.CheckProjects(ctx, tenant); err != nil {
		return nil, err
	}

	p := &model.Project{
		TenantID:    tenant.ID,
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		CreatedBy:   c.UserID,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, apperr.Internal("service.CreateProject", err)
	}

	log.Info("Project created", zap.String("project_id", p.ID), zap.String("tenant_id", p.TenantID))
	record(ctx, s.audit, audit.Entry{
		TenantID:   &p.TenantID,
		UserID:     &c.UserID,
		Action:     audit.ActionCreateProject,
		EntityType: audit.EntityProject,
		EntityID:   p.ID,
	})
	return p, nil
}

// List pages through the caller's projects; super admins see every tenant
func (s *ProjectService) List(ctx context.Context, c authz.Caller, f store.ProjectFilter) (*List[model.Project], error) {
	f.TenantID = deref(c.TenantID)
	if c.IsSuperAdmin() {
		f.TenantID = ""
	}
	if err := authorize(ctx, c, authz.Resource{Type: authz.ProjectResource, TenantID: f.TenantID}, authz.List); err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalid("Invalid project status")
	}

	f.Page = f.Page.Normalize(DefaultProjectLimit)
	projects, total, err := s.store.ListProjects(ctx, f)
	if err != nil {
		return nil, apperr.Internal("service.ListProjects", err)
	}
	return &List[model.Project]{Items: projects, Total: total, Page: f.Page}, nil
}

// load fetches a project and authorizes op on it
func (s *ProjectService) load(ctx context.Context, c authz.Caller, id string, op authz.Operation) (*model.Project, error) {
	if !validID(id) {
		return nil, apperr.NotFound(MsgProjectNotFound)
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, lookupErr("service.Project", err, MsgProjectNotFound)
	}
	res := authz.Resource{Type: authz.ProjectResource, ID: p.ID, TenantID: p.TenantID, OwnerID: p.CreatedBy}
	if err := authorize(ctx, c, res, op); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns one project with its creator
func (s *ProjectService) Get(ctx context.Context, c authz.Caller, id string) (*model.Project, error) {
	return s.load(ctx, c, id, authz.Read)
}

type UpdateProjectInput struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	Status      *model.ProjectStatus `json:"status"`
}

// Update changes name, description or status. The owning tenant never changes.
func (s *ProjectService) Update(ctx context.Context, c authz.Caller, id string, in UpdateProjectInput) (*model.Project, error) {
	log := logger.FromCtx(ctx, s.log)

	p, err := s.load(ctx, c, id, authz.Update)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Invalid("Project name cannot be empty")
		}
		p.Name = name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperr.Invalid("Invalid project status")
		}
		p.Status = *in.Status
	}

	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, lookupErr("service.UpdateProject", err, MsgProjectNotFound)
	}

	log.Info("Project updated", zap.String("project_id", p.ID))
	record(ctx, s.audit, audit.Entry{
		TenantID:   &p.TenantID,
		UserID:     &c.UserID,
		Action:     audit.ActionUpdateProject,
		EntityType: audit.EntityProject,
		EntityID:   p.ID,
	})
	return p, nil
}

// Delete removes a project and all its tasks
func (s *ProjectService) Delete(ctx context.Context, c authz.Caller, id string) error {
	log := logger.FromCtx(ctx, s.log)

	p, err := s.load(ctx, c, id, authz.Delete)
	if err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, p.ID); err != nil {
		return lookupErr("service.DeleteProject", err, MsgProjectNotFound)
	}

	log.Info("Project deleted", zap.String("project_id", p.ID))
	record(ctx, s.audit, audit.Entry{
		TenantID:   &p.TenantID,
		UserID:     &c.UserID,
		Action:     audit.ActionDeleteProject,
		EntityType: audit.EntityProject,
		EntityID:   p.ID,
	})
	return nil
}

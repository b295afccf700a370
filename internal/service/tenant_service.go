package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/suteetoe/taskhub/internal/apperr"
	"github.com/suteetoe/taskhub/internal/audit"
	"github.com/suteetoe/taskhub/internal/authz"
	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/internal/store"
	"github.com/suteetoe/taskhub/pkg/logger"
	"github.com/suteetoe/taskhub/prometheus"
)

// TenantService reads and administers tenants
type TenantService struct {
	store store.Store
	audit Auditor
	log   *zap.Logger
}

func NewTenantService(s store.Store, auditor Auditor, log *zap.Logger) *TenantService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TenantService{store: s, audit: auditor, log: log}
}

// TenantDetails is a tenant with its resource counts
type TenantDetails struct {
	model.Tenant
	Stats model.TenantStats `json:"stats"`
}

// Get returns the tenant with its user, project and task totals
func (s *TenantService) Get(ctx context.Context, c authz.Caller, id string) (*TenantDetails, error) {
	prometheus.RecordTenantOperation("read")
	if !validID(id) {
		return nil, apperr.NotFound(MsgTenantNotFound)
	}
	tenant, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, lookupErr("service.GetTenant", err, MsgTenantNotFound)
	}
	res := authz.Resource{Type: authz.TenantResource, ID: tenant.ID, TenantID: tenant.ID}
	if err := authorize(ctx, c, res, authz.Read); err != nil {
		return nil, err
	}

	var stats model.TenantStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalUsers, err = s.store.CountUsers(gctx, tenant.ID)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalProjects, err = s.store.CountProjects(gctx, tenant.ID)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalTasks, err = s.store.CountTasks(gctx, tenant.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal("service.GetTenant", err)
	}

	return &TenantDetails{Tenant: *tenant, Stats: stats}, nil
}

// UpdateTenantInput holds the fields present in an update request
type UpdateTenantInput struct {
	Name             *string
	Status           *model.TenantStatus
	SubscriptionPlan *model.SubscriptionPlan
	MaxUsers         *int
	MaxProjects      *int
	// Unknown lists request fields that are not tenant attributes
	Unknown []string
}

func (in UpdateTenantInput) fields() []string {
	var f []string
	if in.Name != nil {
		f = append(f, authz.FieldName)
	}
	if in.Status != nil {
		f = append(f, authz.FieldStatus)
	}
	if in.SubscriptionPlan != nil {
		f = append(f, authz.FieldSubscriptionPlan)
	}
	if in.MaxUsers != nil {
		f = append(f, authz.FieldMaxUsers)
	}
	if in.MaxProjects != nil {
		f = append(f, authz.FieldMaxProjects)
	}
	return append(f, in.Unknown...)
}

func (in UpdateTenantInput) validate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return apperr.Invalid("Tenant name cannot be empty")
	}
	if in.Status != nil && !in.Status.Valid() {
		return apperr.Invalid("Invalid tenant status")
	}
	if in.SubscriptionPlan != nil && !in.SubscriptionPlan.Valid() {
		return apperr.Invalid("Invalid subscription plan")
	}
	if in.MaxUsers != nil && *in.MaxUsers < 1 {
		return apperr.Invalid("maxUsers must be a positive number")
	}
	if in.MaxProjects != nil && *in.MaxProjects < 1 {
		return apperr.Invalid("maxProjects must be a positive number")
	}
	return nil
}

// Update changes tenant attributes. Tenant admins may only rename their own tenant.
func (s *TenantService) Update(ctx context.Context, c authz.Caller, id string, in UpdateTenantInput) (*model.Tenant, error) {
	log := logger.FromCtx(ctx, s.log)
	prometheus.RecordTenantOperation("update")

	if !validID(id) {
		return nil, apperr.NotFound(MsgTenantNotFound)
	}
	tenant, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, lookupErr("service.UpdateTenant", err, MsgTenantNotFound)
	}
	res := authz.Resource{Type: authz.TenantResource, ID: tenant.ID, TenantID: tenant.ID, Fields: in.fields()}
	if err := authorize(ctx, c, res, authz.Update); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	if in.Name != nil {
		tenant.Name = strings.TrimSpace(*in.Name)
	}
	if in.Status != nil {
		tenant.Status = *in.Status
	}
	if in.SubscriptionPlan != nil {
		tenant.SubscriptionPlan = *in.SubscriptionPlan
	}
	if in.MaxUsers != nil {
		tenant.MaxUsers = *in.MaxUsers
	}
	if in.MaxProjects != nil {
		tenant.MaxProjects = *in.MaxProjects
	}
	if err := s.store.UpdateTenant(ctx, tenant); err != nil {
		return nil, lookupErr("service.UpdateTenant", err, MsgTenantNotFound)
	}

	log.Info("Tenant updated", zap.String("tenant_id", tenant.ID), zap.Strings("fields", res.Fields))
	record(ctx, s.audit, audit.Entry{
		TenantID:   &tenant.ID,
		UserID:     &c.UserID,
		Action:     audit.ActionUpdateTenant,
		EntityType: audit.EntityTenant,
		EntityID:   tenant.ID,
	})
	return tenant, nil
}

// List pages through every tenant. Super admins only.
func (s *TenantService) List(ctx context.Context, c authz.Caller, f store.TenantFilter) (*List[store.TenantSummary], error) {
	prometheus.RecordTenantOperation("list")
	if err := authorize(ctx, c, authz.Resource{Type: authz.TenantResource}, authz.List); err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalid("Invalid tenant status")
	}
	if f.SubscriptionPlan != "" && !f.SubscriptionPlan.Valid() {
		return nil, apperr.Invalid("Invalid subscription plan")
	}

	f.Page = f.Page.Normalize(DefaultTenantLimit)
	rows, total, err := s.store.ListTenants(ctx, f)
	if err != nil {
		return nil, apperr.Internal("service.ListTenants", err)
	}
	return &List[store.TenantSummary]{Items: rows, Total: total, Page: f.Page}, nil
}

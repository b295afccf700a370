package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/suteetoe/taskhub/internal/apperr"
	"github.com/suteetoe/taskhub/internal/audit"
	"github.com/suteetoe/taskhub/internal/authz"
	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/internal/quota"
	"github.com/suteetoe/taskhub/internal/store"
	"github.com/suteetoe/taskhub/pkg/logger"
	"github.com/suteetoe/taskhub/pkg/password"
)

const (
	MsgUserNotFound = "User not found"
	MsgEmailTaken   = "Email already exists in this tenant"
)

// UserService manages the users of a tenant
type UserService struct {
	store  store.Store
	hasher password.Hasher
	quota  *quota.Checker
	audit  Auditor
	log    *zap.Logger
}

func NewUserService(s store.Store, hasher password.Hasher, q *quota.Checker, auditor Auditor, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{store: s, hasher: hasher, quota: q, audit: auditor, log: log}
}

type CreateUserInput struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	FullName string     `json:"fullName"`
	Role     model.Role `json:"role"`
}

// Create adds a user to tenantID, subject to the tenant's user ceiling
func (s *UserService) Create(ctx context.Context, c authz.Caller, tenantID string, in CreateUserInput) (*model.User, error) {
	log := logger.FromCtx(ctx, s.log)

	if !validID(tenantID) {
		return nil, apperr.NotFound(MsgTenantNotFound)
	}
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, lookupErr("service.CreateUser", err, MsgTenantNotFound)
	}
	if err := authorize(ctx, c, authz.Resource{Type: authz.UserResource, TenantID: tenant.ID}, authz.Create); err != nil {
		return nil, err
	}

	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Email == "" || in.Password == "" || in.FullName == "" {
		return nil, apperr.Invalid("Email, password and fullName are required")
	}
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if in.Role != model.RoleUser && in.Role != model.RoleTenantAdmin {
		return nil, apperr.Invalid("Role must be user or tenant_admin")
	}

	if err := s.quota.CheckUsers(ctx, tenant); err != nil {
		return nil, err
	}

	if _, err := s.store.FindUserByEmail(ctx, tenant.ID, in.Email); err == nil {
		return nil, apperr.Conflict(MsgEmailTaken)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("service.CreateUser", err)
	}

	digest, err := hashPassword("service.CreateUser", s.hasher, in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		TenantID:     &tenant.ID,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: digest,
		Role:         in.Role,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.Conflict(MsgEmailTaken)
		}
		return nil, apperr.Internal("service.CreateUser", err)
	}

	log.Info("User created", zap.String("user_id", u.ID), zap.String("tenant_id", tenant.ID), zap.String("role", string(u.Role)))
	record(ctx, s.audit, audit.Entry{
		TenantID:   &tenant.ID,
		UserID:     &c.UserID,
		Action:     audit.ActionCreateUser,
		EntityType: audit.EntityUser,
		EntityID:   u.ID,
	})
	return u, nil
}

// List pages through the users of tenantID
func (s *UserService) List(ctx context.Context, c authz.Caller, tenantID string, f store.UserFilter) (*List[model.User], error) {
	if !validID(tenantID) {
		return nil, apperr.NotFound(MsgTenantNotFound)
	}
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, lookupErr("service.ListUsers", err, MsgTenantNotFound)
	}
	if err := authorize(ctx, c, authz.Resource{Type: authz.UserResource, TenantID: tenant.ID}, authz.List); err != nil {
		return nil, err
	}
	if f.Role != "" && !f.Role.Valid() {
		return nil, apperr.Invalid("Invalid role")
	}

	f.TenantID = tenant.ID
	f.Page = f.Page.Normalize(DefaultUserLimit)
	users, total, err := s.store.ListUsers(ctx, f)
	if err != nil {
		return nil, apperr.Internal("service.ListUsers", err)
	}
	return &List[model.User]{Items: users, Total: total, Page: f.Page}, nil
}

// UpdateUserInput holds the fields present in an update request
type UpdateUserInput struct {
	FullName *string
	Role     *model.Role
	IsActive *bool
	// Unknown lists request fields that cannot be updated through this operation
	Unknown []string
}

func (in UpdateUserInput) fields() []string {
	var f []string
	if in.FullName != nil {
		f = append(f, authz.FieldFullName)
	}
	if in.Role != nil {
		f = append(f, authz.FieldRole)
	}
	if in.IsActive != nil {
		f = append(f, authz.FieldIsActive)
	}
	return append(f, in.Unknown...)
}

// Update changes a user. Users may rename themselves; tenant admins may also
// change role and active flag of users in their tenant.
func (s *UserService) Update(ctx context.Context, c authz.Caller, id string, in UpdateUserInput) (*model.User, error) {
	log := logger.FromCtx(ctx, s.log)

	if !validID(id) {
		return nil, apperr.NotFound(MsgUserNotFound)
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, lookupErr("service.UpdateUser", err, MsgUserNotFound)
	}
	res := authz.Resource{Type: authz.UserResource, ID: u.ID, TenantID: deref(u.TenantID), Fields: in.fields()}
	if err := authorize(ctx, c, res, authz.Update); err != nil {
		return nil, err
	}

	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, apperr.Invalid("fullName cannot be empty")
		}
		u.FullName = name
	}
	if in.Role != nil {
		if *in.Role != model.RoleUser && *in.Role != model.RoleTenantAdmin {
			return nil, apperr.Invalid("Role must be user or tenant_admin")
		}
		u.Role = *in.Role
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}

	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, lookupErr("service.UpdateUser", err, MsgUserNotFound)
	}

	log.Info("User updated", zap.String("user_id", u.ID), zap.Strings("fields", res.Fields))
	record(ctx, s.audit, audit.Entry{
		TenantID:   u.TenantID,
		UserID:     &c.UserID,
		Action:     audit.ActionUpdateUser,
		EntityType: audit.EntityUser,
		EntityID:   u.ID,
	})
	return u, nil
}

// Delete removes a user and unassigns its tasks. Nobody can delete themselves.
func (s *UserService) Delete(ctx context.Context, c authz.Caller, id string) error {
	log := logger.FromCtx(ctx, s.log)

	if !validID(id) {
		return apperr.NotFound(MsgUserNotFound)
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return lookupErr("service.DeleteUser", err, MsgUserNotFound)
	}
	res := authz.Resource{Type: authz.UserResource, ID: u.ID, TenantID: deref(u.TenantID)}
	if err := authorize(ctx, c, res, authz.Delete); err != nil {
		return err
	}

	if err := s.store.DeleteUser(ctx, u.ID); err != nil {
		return lookupErr("service.DeleteUser", err, MsgUserNotFound)
	}

	log.Info("User deleted", zap.String("user_id", u.ID))
	record(ctx, s.audit, audit.Entry{
		TenantID:   u.TenantID,
		UserID:     &c.UserID,
		Action:     audit.ActionDeleteUser,
		EntityType: audit.EntityUser,
		EntityID:   u.ID,
	})
	return nil
}

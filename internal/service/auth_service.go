package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/suteetoe/taskhub/internal/apperr"
	"github.com/suteetoe/taskhub/internal/audit"
	"github.com/suteetoe/taskhub/internal/authz"
	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/internal/store"
	"github.com/suteetoe/taskhub/pkg/jwtutil"
	"github.com/suteetoe/taskhub/pkg/logger"
	"github.com/suteetoe/taskhub/pkg/password"
	"github.com/suteetoe/taskhub/prometheus"
)

const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgAccountSuspended   = "Account suspended"
	MsgTenantNotActive    = "Tenant is not active"
	MsgTenantNotFound     = "Tenant not found"
	MsgSubdomainTaken     = "Subdomain already exists"
	MsgMissingFields      = "Missing required fields"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// AuthService registers tenants and opens sessions
type AuthService struct {
	store  store.Store
	hasher password.Hasher
	tokens jwtutil.TokenService
	audit  Auditor
	log    *zap.Logger

	// digest compared against when no account matches, so a miss costs the same as a wrong password
	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(s store.Store, hasher password.Hasher, tokens jwtutil.TokenService, auditor Auditor, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{store: s, hasher: hasher, tokens: tokens, audit: auditor, log: log}
}

type RegisterTenantInput struct {
	TenantName    string `json:"tenantName"`
	Subdomain     string `json:"subdomain"`
	AdminEmail    string `json:"adminEmail"`
	AdminPassword string `json:"adminPassword"`
	AdminFullName string `json:"adminFullName"`
}

type RegisterTenantResult struct {
	TenantID  string      `json:"tenantId"`
	Subdomain string      `json:"subdomain"`
	AdminUser *model.User `json:"adminUser"`
}

// RegisterTenant creates a tenant and its first tenant admin atomically
func (s *AuthService) RegisterTenant(ctx context.Context, in RegisterTenantInput) (*RegisterTenantResult, error) {
	log := logger.FromCtx(ctx, s.log)
	prometheus.RegisterCounter.Inc()

	in.TenantName = strings.TrimSpace(in.TenantName)
	in.Subdomain = strings.ToLower(strings.TrimSpace(in.Subdomain))
	in.AdminEmail = normalizeEmail(in.AdminEmail)
	in.AdminFullName = strings.TrimSpace(in.AdminFullName)
	if in.TenantName == "" || in.Subdomain == "" || in.AdminEmail == "" || in.AdminPassword == "" || in.AdminFullName == "" {
		return nil, apperr.Invalid(MsgMissingFields)
	}
	if !subdomainPattern.MatchString(in.Subdomain) {
		return nil, apperr.Invalid("Subdomain may contain only lowercase letters, digits and inner hyphens")
	}

	// advisory; the unique index decides
	if _, err := s.store.GetTenantBySubdomain(ctx, in.Subdomain); err == nil {
		return nil, apperr.Conflict(MsgSubdomainTaken)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("service.RegisterTenant", err)
	}

	digest, err := hashPassword("service.RegisterTenant", s.hasher, in.AdminPassword)
	if err != nil {
		return nil, err
	}

	tenant := &model.Tenant{
		Name:             in.TenantName,
		Subdomain:        in.Subdomain,
		Status:           model.TenantStatusActive,
		SubscriptionPlan: model.PlanFree,
		MaxUsers:         model.DefaultMaxUsers,
		MaxProjects:      model.DefaultMaxProjects,
	}
	admin := &model.User{
		Email:        in.AdminEmail,
		FullName:     in.AdminFullName,
		PasswordHash: digest,
		Role:         model.RoleTenantAdmin,
		IsActive:     true,
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateTenant(ctx, tenant); err != nil {
			return err
		}
		admin.TenantID = &tenant.ID
		return tx.CreateUser(ctx, admin)
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, apperr.Conflict(MsgSubdomainTaken)
	}
	if err != nil {
		log.Error("Tenant registration rolled back", zap.String("subdomain", in.Subdomain), zap.Error(err))
		return nil, apperr.Internal("service.RegisterTenant", err)
	}

	log.Info("Tenant registered", zap.String("tenant_id", tenant.ID), zap.String("subdomain", tenant.Subdomain))
	record(ctx, s.audit, audit.Entry{
		TenantID:   &tenant.ID,
		UserID:     &admin.ID,
		Action:     audit.ActionRegisterTenant,
		EntityType: audit.EntityTenant,
		EntityID:   tenant.ID,
	})

	return &RegisterTenantResult{TenantID: tenant.ID, Subdomain: tenant.Subdomain, AdminUser: admin}, nil
}

type LoginInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	TenantSubdomain string `json:"tenantSubdomain"`
	TenantID        string `json:"tenantId"`
}

type LoginResult struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expiresIn"`
}

// Login verifies credentials and issues a session token.
//
// With a tenant selector the account is looked up in that tenant first and a
// super admin with the same email is the fallback. Without one only super
// admins can log in. Unknown email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	log := logger.FromCtx(ctx, s.log)
	prometheus.LoginCounter.Inc()

	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperr.Invalid("Email and password are required")
	}

	tenant, err := s.resolveTenant(ctx, in)
	if err != nil {
		return nil, err
	}

	var candidate *model.User
	if tenant != nil {
		candidate, err = s.store.FindUserByEmail(ctx, tenant.ID, email)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Internal("service.Login", err)
		}
	}
	if candidate == nil {
		candidate, err = s.store.FindSuperAdminByEmail(ctx, email)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Internal("service.Login", err)
		}
	}

	if candidate == nil {
		s.burnVerify(in.Password)
		prometheus.RecordAuthError("invalid_credentials")
		return nil, apperr.Unauthenticated(MsgInvalidCredentials)
	}
	ok, err := s.hasher.Verify(in.Password, candidate.PasswordHash)
	if err != nil {
		log.Warn("Stored password digest is unreadable", zap.String("user_id", candidate.ID), zap.Error(err))
	}
	if !ok {
		prometheus.RecordAuthError("invalid_credentials")
		return nil, apperr.Unauthenticated(MsgInvalidCredentials)
	}
	if !candidate.IsActive {
		prometheus.RecordAuthError("account_suspended")
		return nil, apperr.Forbidden(MsgAccountSuspended)
	}

	claims := jwtutil.Claims{UserID: candidate.ID, TenantID: candidate.TenantID, Role: string(candidate.Role)}
	if candidate.IsSuperAdmin() {
		claims.TenantID = nil
	}
	token, err := s.tokens.Issue(claims)
	if err != nil {
		prometheus.RecordAuthError("token_generation_failed")
		return nil, apperr.Internal("service.Login", err)
	}

	var auditTenant *string
	if tenant != nil {
		auditTenant = &tenant.ID
	}
	record(ctx, s.audit, audit.Entry{
		TenantID:   auditTenant,
		UserID:     &candidate.ID,
		Action:     audit.ActionLogin,
		EntityType: audit.EntityUser,
		EntityID:   candidate.ID,
	})
	log.Info("User logged in", zap.String("user_id", candidate.ID), zap.String("role", string(candidate.Role)))

	return &LoginResult{
		User:      candidate,
		Token:     token,
		ExpiresIn: int64(s.tokens.ExpiresIn().Seconds()),
	}, nil
}

// resolveTenant finds the tenant named by the login selector; nil when none was given
func (s *AuthService) resolveTenant(ctx context.Context, in LoginInput) (*model.Tenant, error) {
	var (
		tenant *model.Tenant
		err    error
	)
	switch {
	case strings.TrimSpace(in.TenantID) != "":
		id := strings.TrimSpace(in.TenantID)
		if !validID(id) {
			return nil, apperr.NotFound(MsgTenantNotFound)
		}
		tenant, err = s.store.GetTenant(ctx, id)
	case strings.TrimSpace(in.TenantSubdomain) != "":
		tenant, err = s.store.GetTenantBySubdomain(ctx, strings.ToLower(strings.TrimSpace(in.TenantSubdomain)))
	default:
		return nil, nil
	}
	if err != nil {
		return nil, lookupErr("service.Login", err, MsgTenantNotFound)
	}
	if tenant.Status != model.TenantStatusActive {
		prometheus.RecordAuthError("tenant_not_active")
		return nil, apperr.Forbidden(MsgTenantNotActive)
	}
	return tenant, nil
}

func (s *AuthService) burnVerify(plain string) {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.hasher.Hash("taskhub-no-such-account")
	})
	if s.dummyDigest != "" {
		_, _ = s.hasher.Verify(plain, s.dummyDigest)
	}
}

// GetMe returns the caller's account with its tenant
func (s *AuthService) GetMe(ctx context.Context, c authz.Caller) (*model.User, error) {
	u, err := s.store.GetUserWithTenant(ctx, c.UserID)
	if err != nil {
		return nil, lookupErr("service.GetMe", err, "User not found")
	}
	return u, nil
}

// Logout is stateless; it only leaves a trail
func (s *AuthService) Logout(ctx context.Context, c authz.Caller) error {
	record(ctx, s.audit, audit.Entry{
		TenantID:   c.TenantID,
		UserID:     &c.UserID,
		Action:     audit.ActionLogout,
		EntityType: audit.EntityUser,
		EntityID:   c.UserID,
	})
	return nil
}

// EnsureSuperAdmin creates a tenant-less super admin unless one with email exists.
// It reports whether an account was created.
func (s *AuthService) EnsureSuperAdmin(ctx context.Context, email, plain, fullName string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || plain == "" {
		return false, apperr.Invalid("super admin email and password are required")
	}
	if _, err := s.store.FindSuperAdminByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, apperr.Internal("service.EnsureSuperAdmin", err)
	}

	digest, err := s.hasher.Hash(plain)
	if err != nil {
		return false, apperr.Internal("service.EnsureSuperAdmin", err)
	}
	if strings.TrimSpace(fullName) == "" {
		fullName = "Super Admin"
	}
	u := &model.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: digest,
		Role:         model.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return false, apperr.Internal("service.EnsureSuperAdmin", err)
	}
	s.log.Info("Super admin created", zap.String("user_id", u.ID), zap.String("email", email))
	return true, nil
}

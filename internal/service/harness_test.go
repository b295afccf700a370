package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/suteetoe/taskhub/internal/audit"
	"github.com/suteetoe/taskhub/internal/authz"
	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/internal/quota"
	"github.com/suteetoe/taskhub/internal/store"
	"github.com/suteetoe/taskhub/pkg/database/dbtest"
	"github.com/suteetoe/taskhub/pkg/jwtutil"
	"github.com/suteetoe/taskhub/pkg/password"
)

type harness struct {
	t        *testing.T
	ctx      context.Context
	store    *store.GormStore
	recorder *audit.Recorder
	tokens   *jwtutil.JWTUtil

	auth     *AuthService
	tenants  *TenantService
	users    *UserService
	projects *ProjectService
	tasks    *TaskService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s := store.NewGormStore(dbtest.Open(t))
	log := zap.NewNop()
	hasher := password.NewBcrypt(bcrypt.MinCost)
	tokens := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test", ExpirationHours: 24})
	rec := audit.NewRecorder(s, log, time.Second)
	t.Cleanup(rec.Wait)
	q := quota.NewChecker(s)

	return &harness{
		t:        t,
		ctx:      context.Background(),
		store:    s,
		recorder: rec,
		tokens:   tokens,
		auth:     NewAuthService(s, hasher, tokens, rec, log),
		tenants:  NewTenantService(s, rec, log),
		users:    NewUserService(s, hasher, q, rec, log),
		projects: NewProjectService(s, q, rec, log),
		tasks:    NewTaskService(s, rec, log),
	}
}

// registerTenant creates a tenant and returns it with its admin as a caller
func (h *harness) registerTenant(subdomain string) (*RegisterTenantResult, authz.Caller) {
	h.t.Helper()
	res, err := h.auth.RegisterTenant(h.ctx, RegisterTenantInput{
		TenantName:    subdomain + " inc",
		Subdomain:     subdomain,
		AdminEmail:    "admin@" + subdomain + ".test",
		AdminPassword: "secret",
		AdminFullName: "Admin " + subdomain,
	})
	require.NoError(h.t, err)
	return res, callerOf(res.AdminUser)
}

func (h *harness) addUser(admin authz.Caller, tenantID, email string, role model.Role) (*model.User, authz.Caller) {
	h.t.Helper()
	u, err := h.users.Create(h.ctx, admin, tenantID, CreateUserInput{Email: email, Password: "secret", FullName: email, Role: role})
	require.NoError(h.t, err)
	return u, callerOf(u)
}

func (h *harness) superAdmin() authz.Caller {
	h.t.Helper()
	_, err := h.auth.EnsureSuperAdmin(h.ctx, "root@platform.test", "rootpw", "Root")
	require.NoError(h.t, err)
	u, err := h.store.FindSuperAdminByEmail(h.ctx, "root@platform.test")
	require.NoError(h.t, err)
	return callerOf(u)
}

func (h *harness) auditActions(tenantID string) []string {
	h.t.Helper()
	h.recorder.Wait()
	rows, err := h.store.ListAuditLogs(h.ctx, tenantID, 100)
	require.NoError(h.t, err)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Action)
	}
	return out
}

func callerOf(u *model.User) authz.Caller {
	c := authz.Caller{UserID: u.ID, Role: u.Role}
	if !u.IsSuperAdmin() {
		c.TenantID = u.TenantID
	}
	return c
}

package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suteetoe/taskhub/internal/apperr"
	"github.com/suteetoe/taskhub/internal/audit"
	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/internal/store"
)

func assertAppErr(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
	if msg != "" {
		assert.Equal(t, msg, apperr.Message(err))
	}
}

func TestRegisterTenant(t *testing.T) {
	h := newHarness(t)

	res, err := h.auth.RegisterTenant(h.ctx, RegisterTenantInput{
		TenantName:    "Acme",
		Subdomain:     "  ACME ",
		AdminEmail:    "Boss@Acme.test",
		AdminPassword: "secret",
		AdminFullName: "Boss",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme", res.Subdomain)
	assert.Equal(t, "boss@acme.test", res.AdminUser.Email)
	assert.Equal(t, model.RoleTenantAdmin, res.AdminUser.Role)
	assert.True(t, res.AdminUser.IsActive)

	tenant, err := h.store.GetTenant(h.ctx, res.TenantID)
	require.NoError(t, err)
	assert.Equal(t, model.TenantStatusActive, tenant.Status)
	assert.Equal(t, model.PlanFree, tenant.SubscriptionPlan)
	assert.Equal(t, 5, tenant.MaxUsers)
	assert.Equal(t, 3, tenant.MaxProjects)

	assert.Contains(t, h.auditActions(res.TenantID), audit.ActionRegisterTenant)
}

func TestRegisterTenantValidation(t *testing.T) {
	h := newHarness(t)
	h.registerTenant("acme")

	_, err := h.auth.RegisterTenant(h.ctx, RegisterTenantInput{TenantName: "x", Subdomain: "x"})
	assertAppErr(t, err, apperr.KindInvalid, MsgMissingFields)

	_, err = h.auth.RegisterTenant(h.ctx, RegisterTenantInput{
		TenantName: "x", Subdomain: "-bad-", AdminEmail: "a@b.c", AdminPassword: "p", AdminFullName: "n",
	})
	assertAppErr(t, err, apperr.KindInvalid, "")

	_, err = h.auth.RegisterTenant(h.ctx, RegisterTenantInput{
		TenantName: "again", Subdomain: "acme", AdminEmail: "a@b.c", AdminPassword: "p", AdminFullName: "n",
	})
	assertAppErr(t, err, apperr.KindConflict, MsgSubdomainTaken)
}

func TestRegisterTenantRejectsLongPassword(t *testing.T) {
	h := newHarness(t)

	_, err := h.auth.RegisterTenant(h.ctx, RegisterTenantInput{
		TenantName:    "Acme",
		Subdomain:     "acme",
		AdminEmail:    "boss@acme.test",
		AdminPassword: strings.Repeat("x", 80),
		AdminFullName: "Boss",
	})
	assertAppErr(t, err, apperr.KindInvalid, MsgPasswordTooLong)

	_, err = h.store.GetTenantBySubdomain(h.ctx, "acme")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoginTenantAdmin(t *testing.T) {
	h := newHarness(t)
	reg, _ := h.registerTenant("acme")

	res, err := h.auth.Login(h.ctx, LoginInput{Email: "admin@acme.test", Password: "secret", TenantSubdomain: "acme"})
	require.NoError(t, err)
	assert.EqualValues(t, 86400, res.ExpiresIn)
	assert.Equal(t, reg.AdminUser.ID, res.User.ID)

	claims, err := h.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.AdminUser.ID, claims.UserID)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, reg.TenantID, *claims.TenantID)
	assert.Equal(t, string(model.RoleTenantAdmin), claims.Role)

	byID, err := h.auth.Login(h.ctx, LoginInput{Email: "admin@acme.test", Password: "secret", TenantID: reg.TenantID})
	require.NoError(t, err)
	assert.Equal(t, reg.AdminUser.ID, byID.User.ID)

	assert.Contains(t, h.auditActions(reg.TenantID), audit.ActionLogin)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h := newHarness(t)
	h.registerTenant("acme")

	_, wrongPassword := h.auth.Login(h.ctx, LoginInput{Email: "admin@acme.test", Password: "nope", TenantSubdomain: "acme"})
	_, unknownEmail := h.auth.Login(h.ctx, LoginInput{Email: "ghost@acme.test", Password: "nope", TenantSubdomain: "acme"})

	assertAppErr(t, wrongPassword, apperr.KindUnauthenticated, MsgInvalidCredentials)
	assertAppErr(t, unknownEmail, apperr.KindUnauthenticated, MsgInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLoginTenantChecks(t *testing.T) {
	h := newHarness(t)
	reg, _ := h.registerTenant("acme")
	sa := h.superAdmin()

	_, err := h.auth.Login(h.ctx, LoginInput{Email: "admin@acme.test", Password: "secret", TenantSubdomain: "nowhere"})
	assertAppErr(t, err, apperr.KindNotFound, MsgTenantNotFound)

	_, err = h.auth.Login(h.ctx, LoginInput{Email: "admin@acme.test", Password: "secret", TenantID: "not-a-uuid"})
	assertAppErr(t, err, apperr.KindNotFound, MsgTenantNotFound)

	suspended := model.TenantStatusSuspended
	_, err = h.tenants.Update(h.ctx, sa, reg.TenantID, UpdateTenantInput{Status: &suspended})
	require.NoError(t, err)

	_, err = h.auth.Login(h.ctx, LoginInput{Email: "admin@acme.test", Password: "secret", TenantSubdomain: "acme"})
	assertAppErr(t, err, apperr.KindForbidden, MsgTenantNotActive)

	_, err = h.auth.Login(h.ctx, LoginInput{Email: "", Password: "secret", TenantSubdomain: "acme"})
	assertAppErr(t, err, apperr.KindInvalid, "")
}

func TestLoginInactiveUser(t *testing.T) {
	h := newHarness(t)
	reg, admin := h.registerTenant("acme")
	u, _ := h.addUser(admin, reg.TenantID, "worker@acme.test", model.RoleUser)

	inactive := false
	_, err := h.users.Update(h.ctx, admin, u.ID, UpdateUserInput{IsActive: &inactive})
	require.NoError(t, err)

	_, err = h.auth.Login(h.ctx, LoginInput{Email: "worker@acme.test", Password: "wrong", TenantSubdomain: "acme"})
	assertAppErr(t, err, apperr.KindUnauthenticated, MsgInvalidCredentials)

	_, err = h.auth.Login(h.ctx, LoginInput{Email: "worker@acme.test", Password: "secret", TenantSubdomain: "acme"})
	assertAppErr(t, err, apperr.KindForbidden, MsgAccountSuspended)
}

func TestSuperAdminLogin(t *testing.T) {
	h := newHarness(t)
	h.registerTenant("acme")
	h.superAdmin()

	viaTenant, err := h.auth.Login(h.ctx, LoginInput{Email: "root@platform.test", Password: "rootpw", TenantSubdomain: "acme"})
	require.NoError(t, err)
	claims, err := h.tokens.Verify(viaTenant.Token)
	require.NoError(t, err)
	assert.Nil(t, claims.TenantID)
	assert.Equal(t, string(model.RoleSuperAdmin), claims.Role)

	direct, err := h.auth.Login(h.ctx, LoginInput{Email: "root@platform.test", Password: "rootpw"})
	require.NoError(t, err)
	assert.Equal(t, viaTenant.User.ID, direct.User.ID)

	// tenant users cannot log in without naming their tenant
	_, err = h.auth.Login(h.ctx, LoginInput{Email: "admin@acme.test", Password: "secret"})
	assertAppErr(t, err, apperr.KindUnauthenticated, MsgInvalidCredentials)
}

func TestEnsureSuperAdminIsIdempotent(t *testing.T) {
	h := newHarness(t)

	created, err := h.auth.EnsureSuperAdmin(h.ctx, "root@platform.test", "pw", "")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = h.auth.EnsureSuperAdmin(h.ctx, "ROOT@platform.test", "pw", "")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = h.auth.EnsureSuperAdmin(h.ctx, "", "pw", "")
	assertAppErr(t, err, apperr.KindInvalid, "")
}

func TestGetMeAndLogout(t *testing.T) {
	h := newHarness(t)
	reg, admin := h.registerTenant("acme")

	me, err := h.auth.GetMe(h.ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, reg.AdminUser.ID, me.ID)
	require.NotNil(t, me.Tenant)
	assert.Equal(t, "acme", me.Tenant.Subdomain)

	require.NoError(t, h.auth.Logout(h.ctx, admin))
	assert.Contains(t, h.auditActions(reg.TenantID), audit.ActionLogout)

	ghost := admin
	ghost.UserID = "00000000-0000-0000-0000-000000000000"
	_, err = h.auth.GetMe(h.ctx, ghost)
	assertAppErr(t, err, apperr.KindNotFound, "User not found")
}

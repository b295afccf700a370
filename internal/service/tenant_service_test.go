package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suteetoe/taskhub/internal/apperr"
	"github.com/suteetoe/taskhub/internal/audit"
	"github.com/suteetoe/taskhub/internal/authz"
	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/internal/store"
)

func TestGetTenantStats(t *testing.T) {
	h := newHarness(t)
	reg, admin := h.registerTenant("acme")
	h.addUser(admin, reg.TenantID, "one@acme.test", model.RoleUser)

	p, err := h.projects.Create(h.ctx, admin, CreateProjectInput{Name: "Roadmap"})
	require.NoError(t, err)
	_, err = h.tasks.Create(h.ctx, admin, p.ID, CreateTaskInput{Title: "a"})
	require.NoError(t, err)
	_, err = h.tasks.Create(h.ctx, admin, p.ID, CreateTaskInput{Title: "b"})
	require.NoError(t, err)

	got, err := h.tenants.Get(h.ctx, admin, reg.TenantID)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Subdomain)
	assert.Equal(t, model.TenantStats{TotalUsers: 2, TotalProjects: 1, TotalTasks: 2}, got.Stats)
}

func TestGetTenantIsolation(t *testing.T) {
	h := newHarness(t)
	acme, _ := h.registerTenant("acme")
	_, globex := h.registerTenant("globex")
	sa := h.superAdmin()

	_, err := h.tenants.Get(h.ctx, globex, acme.TenantID)
	assertAppErr(t, err, apperr.KindNotFound, MsgTenantNotFound)

	_, err = h.tenants.Get(h.ctx, globex, "garbage")
	assertAppErr(t, err, apperr.KindNotFound, MsgTenantNotFound)

	got, err := h.tenants.Get(h.ctx, sa, acme.TenantID)
	require.NoError(t, err)
	assert.Equal(t, acme.TenantID, got.ID)
}

func TestUpdateTenantByTenantAdmin(t *testing.T) {
	h := newHarness(t)
	reg, admin := h.registerTenant("acme")

	name := "  Acme Corp "
	got, err := h.tenants.Update(h.ctx, admin, reg.TenantID, UpdateTenantInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)

	plan := model.PlanEnterprise
	_, err = h.tenants.Update(h.ctx, admin, reg.TenantID, UpdateTenantInput{Name: &name, SubscriptionPlan: &plan})
	assertAppErr(t, err, apperr.KindForbidden, authz.ReasonTenantNameOnly)

	_, err = h.tenants.Update(h.ctx, admin, reg.TenantID, UpdateTenantInput{Unknown: []string{"subdomain"}})
	assertAppErr(t, err, apperr.KindForbidden, authz.ReasonTenantNameOnly)

	stored, err := h.store.GetTenant(h.ctx, reg.TenantID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, stored.SubscriptionPlan)
	assert.Equal(t, "acme", stored.Subdomain)

	assert.Contains(t, h.auditActions(reg.TenantID), audit.ActionUpdateTenant)
}

func TestUpdateTenantByMember(t *testing.T) {
	h := newHarness(t)
	reg, admin := h.registerTenant("acme")
	_, member := h.addUser(admin, reg.TenantID, "m@acme.test", model.RoleUser)

	name := "mine now"
	_, err := h.tenants.Update(h.ctx, member, reg.TenantID, UpdateTenantInput{Name: &name})
	assertAppErr(t, err, apperr.KindForbidden, authz.ReasonInsufficient)
}

func TestUpdateTenantBySuperAdmin(t *testing.T) {
	h := newHarness(t)
	reg, _ := h.registerTenant("acme")
	sa := h.superAdmin()

	plan := model.PlanPro
	maxUsers, maxProjects := 25, 10
	got, err := h.tenants.Update(h.ctx, sa, reg.TenantID, UpdateTenantInput{
		SubscriptionPlan: &plan, MaxUsers: &maxUsers, MaxProjects: &maxProjects,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, got.SubscriptionPlan)
	assert.Equal(t, 25, got.MaxUsers)
	assert.Equal(t, 10, got.MaxProjects)

	zero := 0
	_, err = h.tenants.Update(h.ctx, sa, reg.TenantID, UpdateTenantInput{MaxUsers: &zero})
	assertAppErr(t, err, apperr.KindInvalid, "")

	bogus := model.TenantStatus("frozen")
	_, err = h.tenants.Update(h.ctx, sa, reg.TenantID, UpdateTenantInput{Status: &bogus})
	assertAppErr(t, err, apperr.KindInvalid, "Invalid tenant status")
}

func TestListTenants(t *testing.T) {
	h := newHarness(t)
	_, admin := h.registerTenant("acme")
	h.registerTenant("globex")
	h.registerTenant("initech")
	sa := h.superAdmin()

	_, err := h.tenants.List(h.ctx, admin, store.TenantFilter{})
	assertAppErr(t, err, apperr.KindForbidden, authz.ReasonSuperAdminOnly)

	res, err := h.tenants.List(h.ctx, sa, store.TenantFilter{Page: store.Page{Page: 1, Limit: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 2, res.Page.Limit)
	for _, s := range res.Items {
		assert.EqualValues(t, 1, s.TotalUsers)
	}

	res, err = h.tenants.List(h.ctx, sa, store.TenantFilter{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTenantLimit, res.Page.Limit)

	_, err = h.tenants.List(h.ctx, sa, store.TenantFilter{Status: "frozen"})
	assertAppErr(t, err, apperr.KindInvalid, "")
}

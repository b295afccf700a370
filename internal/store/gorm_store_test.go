package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/pkg/database/dbtest"
)

func newTestStore(t *testing.T) *GormStore {
	return NewGormStore(dbtest.Open(t))
}

func seedTenant(t *testing.T, s Store, subdomain string) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{
		Name:             subdomain,
		Subdomain:        subdomain,
		Status:           model.TenantStatusActive,
		SubscriptionPlan: model.PlanFree,
		MaxUsers:         model.DefaultMaxUsers,
		MaxProjects:      model.DefaultMaxProjects,
	}
	require.NoError(t, s.CreateTenant(context.Background(), tenant))
	return tenant
}

func seedUser(t *testing.T, s Store, tenant *model.Tenant, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Email: email, FullName: email, PasswordHash: "x", Role: role, IsActive: true}
	if tenant != nil {
		u.TenantID = &tenant.ID
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedProject(t *testing.T, s Store, tenant *model.Tenant, owner *model.User, name string) *model.Project {
	t.Helper()
	p := &model.Project{TenantID: tenant.ID, Name: name, Status: model.ProjectStatusActive, CreatedBy: owner.ID}
	require.NoError(t, s.CreateProject(context.Background(), p))
	return p
}

func seedTask(t *testing.T, s Store, p *model.Project, title string, prio model.TaskPriority, assignee *string) *model.Task {
	t.Helper()
	task := &model.Task{
		ProjectID:  p.ID,
		TenantID:   p.TenantID,
		Title:      title,
		Status:     model.TaskStatusTodo,
		Priority:   prio,
		AssignedTo: assignee,
	}
	require.NoError(t, s.CreateTask(context.Background(), task))
	return task
}

func TestTenantCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := seedTenant(t, s, "acme")
	require.NotEmpty(t, tenant.ID)

	got, err := s.GetTenantBySubdomain(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got.ID)

	got.Name = "Acme Inc"
	got.MaxUsers = 20
	require.NoError(t, s.UpdateTenant(ctx, got))

	again, err := s.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", again.Name)
	assert.Equal(t, 20, again.MaxUsers)

	_, err = s.GetTenant(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateTenant(ctx, &model.Tenant{ID: "00000000-0000-0000-0000-000000000000", Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateSubdomainIsConflict(t *testing.T) {
	s := newTestStore(t)
	seedTenant(t, s, "acme")

	err := s.CreateTenant(context.Background(), &model.Tenant{Name: "again", Subdomain: "acme", Status: model.TenantStatusActive, SubscriptionPlan: model.PlanFree})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestEmailUniquePerTenant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedTenant(t, s, "a")
	b := seedTenant(t, s, "b")

	seedUser(t, s, a, "x@example.com", model.RoleUser)
	seedUser(t, s, b, "x@example.com", model.RoleUser)

	err := s.CreateUser(ctx, &model.User{TenantID: &a.ID, Email: "x@example.com", FullName: "dup", PasswordHash: "x", Role: model.RoleUser})
	assert.ErrorIs(t, err, ErrConflict)

	u, err := s.FindUserByEmail(ctx, b.ID, "x@example.com")
	require.NoError(t, err)
	assert.Equal(t, b.ID, *u.TenantID)
}

func TestFindSuperAdminByEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedTenant(t, s, "a")
	seedUser(t, s, a, "root@example.com", model.RoleTenantAdmin)

	_, err := s.FindSuperAdminByEmail(ctx, "root@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	sa := seedUser(t, s, nil, "root@example.com", model.RoleSuperAdmin)
	got, err := s.FindSuperAdminByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, sa.ID, got.ID)
	assert.Nil(t, got.TenantID)
}

func TestUpdateUserWritesFalse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedTenant(t, s, "a")
	u := seedUser(t, s, a, "u@example.com", model.RoleUser)

	u.IsActive = false
	u.Role = model.RoleTenantAdmin
	require.NoError(t, s.UpdateUser(ctx, u))

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, model.RoleTenantAdmin, got.Role)
}

func TestListUsersFiltersAndPages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedTenant(t, s, "a")
	b := seedTenant(t, s, "b")
	seedUser(t, s, a, "alice@example.com", model.RoleTenantAdmin)
	seedUser(t, s, a, "bob@example.com", model.RoleUser)
	seedUser(t, s, a, "carol@example.com", model.RoleUser)
	seedUser(t, s, b, "dave@example.com", model.RoleUser)

	users, total, err := s.ListUsers(ctx, UserFilter{TenantID: a.ID, Page: Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, users, 3)

	_, total, err = s.ListUsers(ctx, UserFilter{TenantID: a.ID, Role: model.RoleUser, Page: Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	users, total, err = s.ListUsers(ctx, UserFilter{TenantID: a.ID, Search: "BOB", Page: Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "bob@example.com", users[0].Email)

	users, total, err = s.ListUsers(ctx, UserFilter{TenantID: a.ID, Page: Page{Page: 2, Limit: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, users, 1)
}

func TestDeleteUserUnassignsTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedTenant(t, s, "a")
	owner := seedUser(t, s, a, "owner@example.com", model.RoleTenantAdmin)
	worker := seedUser(t, s, a, "worker@example.com", model.RoleUser)
	p := seedProject(t, s, a, owner, "p")
	task := seedTask(t, s, p, "t", model.PriorityMedium, &worker.ID)

	require.NoError(t, s.DeleteUser(ctx, worker.ID))

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedTo)
	assert.Nil(t, got.AssigneeRef)

	assert.ErrorIs(t, s.DeleteUser(ctx, worker.ID), ErrNotFound)
}

func TestDeleteProjectCascadesTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedTenant(t, s, "a")
	owner := seedUser(t, s, a, "owner@example.com", model.RoleTenantAdmin)
	p := seedProject(t, s, a, owner, "p")
	keep := seedProject(t, s, a, owner, "keep")
	task := seedTask(t, s, p, "t", model.PriorityLow, nil)
	other := seedTask(t, s, keep, "other", model.PriorityLow, nil)

	require.NoError(t, s.DeleteProject(ctx, p.ID))

	_, err := s.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetTask(ctx, other.ID)
	assert.NoError(t, err)

	n, err := s.CountTasks(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestListProjectsCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedTenant(t, s, "a")
	b := seedTenant(t, s, "b")
	owner := seedUser(t, s, a, "owner@example.com", model.RoleTenantAdmin)
	ownerB := seedUser(t, s, b, "owner@example.com", model.RoleTenantAdmin)
	p := seedProject(t, s, a, owner, "Website Redesign")
	seedProject(t, s, a, owner, "Mobile")
	seedProject(t, s, b, ownerB, "Other tenant")

	seedTask(t, s, p, "one", model.PriorityLow, nil)
	done := seedTask(t, s, p, "two", model.PriorityLow, nil)
	done.Status = model.TaskStatusCompleted
	require.NoError(t, s.UpdateTask(ctx, done))

	projects, total, err := s.ListProjects(ctx, ProjectFilter{TenantID: a.ID, Search: "website", Page: Page{Page: 1, Limit: 20}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, projects, 1)
	assert.EqualValues(t, 2, *projects[0].TaskCount)
	assert.EqualValues(t, 1, *projects[0].CompletedTaskCount)
	require.NotNil(t, projects[0].Creator)
	assert.Equal(t, owner.ID, projects[0].Creator.ID)

	projects, total, err = s.ListProjects(ctx, ProjectFilter{TenantID: a.ID, Page: Page{Page: 1, Limit: 20}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, pr := range projects {
		assert.Equal(t, a.ID, pr.TenantID)
	}

	_, total, err = s.ListProjects(ctx, ProjectFilter{Page: Page{Page: 1, Limit: 20}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestListTasksOrderAndFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedTenant(t, s, "a")
	owner := seedUser(t, s, a, "owner@example.com", model.RoleTenantAdmin)
	p := seedProject(t, s, a, owner, "p")

	low := seedTask(t, s, p, "low", model.PriorityLow, nil)
	highLate := seedTask(t, s, p, "high late", model.PriorityHigh, &owner.ID)
	highSoon := seedTask(t, s, p, "high soon", model.PriorityHigh, nil)
	medium := seedTask(t, s, p, "medium", model.PriorityMedium, nil)

	late := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	soon := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	highLate.DueDate = &late
	highSoon.DueDate = &soon
	require.NoError(t, s.UpdateTask(ctx, highLate))
	require.NoError(t, s.UpdateTask(ctx, highSoon))

	tasks, total, err := s.ListTasks(ctx, TaskFilter{ProjectID: p.ID, Page: Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{highSoon.ID, highLate.ID, medium.ID, low.ID}, ids)
	require.NotNil(t, tasks[1].AssigneeRef)
	assert.Equal(t, owner.ID, tasks[1].AssigneeRef.ID)

	tasks, _, err = s.ListTasks(ctx, TaskFilter{ProjectID: p.ID, AssignedTo: owner.ID, Page: Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, highLate.ID, tasks[0].ID)

	_, total, err = s.ListTasks(ctx, TaskFilter{ProjectID: p.ID, Search: "HIGH", Priority: model.PriorityHigh, Page: Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestListTenantsSummaries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedTenant(t, s, "a")
	b := seedTenant(t, s, "b")
	b.Status = model.TenantStatusSuspended
	require.NoError(t, s.UpdateTenant(ctx, b))
	owner := seedUser(t, s, a, "o@example.com", model.RoleTenantAdmin)
	seedUser(t, s, a, "u@example.com", model.RoleUser)
	seedProject(t, s, a, owner, "p")

	rows, total, err := s.ListTenants(ctx, TenantFilter{Page: Page{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	byID := map[string]TenantSummary{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	assert.EqualValues(t, 2, byID[a.ID].TotalUsers)
	assert.EqualValues(t, 1, byID[a.ID].TotalProjects)
	assert.EqualValues(t, 0, byID[b.ID].TotalUsers)

	rows, total, err = s.ListTenants(ctx, TenantFilter{Status: model.TenantStatusSuspended, Page: Page{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, b.ID, rows[0].ID)
}

func TestTransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx Store) error {
		seedTenant(t, tx, "rolled")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetTenantBySubdomain(ctx, "rolled")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuditLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := "t1"
	require.NoError(t, s.CreateAuditLog(ctx, &model.AuditLog{TenantID: &tenant, Action: "LOGIN", EntityType: "user", EntityID: "u1", CreatedAt: time.Now()}))

	rows, err := s.ListAuditLogs(ctx, tenant, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "LOGIN", rows[0].Action)
}

func TestStoreDoesNotReadAuditLogs(t *testing.T) {
	_, found := reflect.TypeOf((*Store)(nil)).Elem().MethodByName("ListAuditLogs")
	assert.False(t, found)
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Limit: 20}, Page{}.Normalize(20))
	assert.Equal(t, Page{Page: 1, Limit: 100}, Page{Page: -3, Limit: 1000}.Normalize(20))
	assert.Equal(t, Page{Page: 2, Limit: 1}, Page{Page: 2, Limit: -5}.Normalize(20))
	assert.Equal(t, 40, Page{Page: 3, Limit: 20}.Offset())
}

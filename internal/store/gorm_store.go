package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/prometheus"
)

// GormStore implements Store on gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store on db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}

// affected turns a zero-row write into ErrNotFound
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func like(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}

// Tenants

func (s *GormStore) CreateTenant(ctx context.Context, t *model.Tenant) error {
	defer prometheus.TrackDBOperation("create_tenant")(time.Now())
	return translate(s.conn(ctx).Omit(clause.Associations).Create(t).Error)
}

func (s *GormStore) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	var t model.Tenant
	if err := s.conn(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *GormStore) GetTenantBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error) {
	var t model.Tenant
	if err := s.conn(ctx).Where("subdomain = ?", subdomain).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *GormStore) UpdateTenant(ctx context.Context, t *model.Tenant) error {
	defer prometheus.TrackDBOperation("update_tenant")(time.Now())
	res := s.conn(ctx).Model(t).
		Select("name", "status", "subscription_plan", "max_users", "max_projects", "updated_at").
		Updates(t)
	return affected(res)
}

type tenantCount struct {
	TenantID string
	N        int64
}

func (s *GormStore) ListTenants(ctx context.Context, f TenantFilter) ([]TenantSummary, int64, error) {
	defer prometheus.TrackDBOperation("list_tenants")(time.Now())

	q := s.conn(ctx).Model(&model.Tenant{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.SubscriptionPlan != "" {
		q = q.Where("subscription_plan = ?", f.SubscriptionPlan)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tenants []model.Tenant
	if err := q.Order("created_at DESC").Offset(f.Offset()).Limit(f.Limit).Find(&tenants).Error; err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(tenants))
	for _, t := range tenants {
		ids = append(ids, t.ID)
	}
	users, err := s.countByTenant(ctx, &model.User{}, ids)
	if err != nil {
		return nil, 0, err
	}
	projects, err := s.countByTenant(ctx, &model.Project{}, ids)
	if err != nil {
		return nil, 0, err
	}

	out := make([]TenantSummary, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, TenantSummary{Tenant: t, TotalUsers: users[t.ID], TotalProjects: projects[t.ID]})
	}
	return out, total, nil
}

func (s *GormStore) countByTenant(ctx context.Context, m interface{}, tenantIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(tenantIDs))
	if len(tenantIDs) == 0 {
		return out, nil
	}
	var rows []tenantCount
	err := s.conn(ctx).Model(m).
		Select("tenant_id, COUNT(*) AS n").
		Where("tenant_id IN ?", tenantIDs).
		Group("tenant_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.TenantID] = r.N
	}
	return out, nil
}

// Users

func (s *GormStore) CreateUser(ctx context.Context, u *model.User) error {
	defer prometheus.TrackDBOperation("create_user")(time.Now())
	return translate(s.conn(ctx).Omit(clause.Associations).Create(u).Error)
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.conn(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) GetUserWithTenant(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.conn(ctx).Preload("Tenant").Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, tenantID, email string) (*model.User, error) {
	var u model.User
	err := s.conn(ctx).Where("tenant_id = ? AND email = ?", tenantID, email).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) FindSuperAdminByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.conn(ctx).Where("email = ? AND role = ?", email, model.RoleSuperAdmin).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, u *model.User) error {
	defer prometheus.TrackDBOperation("update_user")(time.Now())
	res := s.conn(ctx).Model(u).
		Select("full_name", "role", "is_active", "updated_at").
		Updates(u)
	return affected(res)
}

func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	defer prometheus.TrackDBOperation("delete_user")(time.Now())
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Task{}).Where("assigned_to = ?", id).Update("assigned_to", nil).Error; err != nil {
			return err
		}
		return affected(tx.Where("id = ?", id).Delete(&model.User{}))
	})
}

func (s *GormStore) ListUsers(ctx context.Context, f UserFilter) ([]model.User, int64, error) {
	defer prometheus.TrackDBOperation("list_users")(time.Now())

	q := s.conn(ctx).Model(&model.User{}).Where("tenant_id = ?", f.TenantID)
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Search != "" {
		term := like(f.Search)
		q = q.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", term, term)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []model.User
	if err := q.Order("created_at DESC").Offset(f.Offset()).Limit(f.Limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *GormStore) CountUsers(ctx context.Context, tenantID string) (int64, error) {
	defer prometheus.TrackDBOperation("count_users")(time.Now())
	var n int64
	err := s.conn(ctx).Model(&model.User{}).Where("tenant_id = ?", tenantID).Count(&n).Error
	return n, err
}

// Projects

func (s *GormStore) CreateProject(ctx context.Context, p *model.Project) error {
	defer prometheus.TrackDBOperation("create_project")(time.Now())
	return translate(s.conn(ctx).Omit(clause.Associations).Create(p).Error)
}

func (s *GormStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	if err := s.conn(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	refs, err := s.userRefs(ctx, []string{p.CreatedBy})
	if err != nil {
		return nil, err
	}
	p.Creator = refs[p.CreatedBy]
	return &p, nil
}

func (s *GormStore) UpdateProject(ctx context.Context, p *model.Project) error {
	defer prometheus.TrackDBOperation("update_project")(time.Now())
	res := s.conn(ctx).Model(p).
		Select("name", "description", "status", "updated_at").
		Updates(p)
	return affected(res)
}

func (s *GormStore) DeleteProject(ctx context.Context, id string) error {
	defer prometheus.TrackDBOperation("delete_project")(time.Now())
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		return affected(tx.Where("id = ?", id).Delete(&model.Project{}))
	})
}

type taskCounts struct {
	ProjectID string
	Total     int64
	Completed int64
}

func (s *GormStore) ListProjects(ctx context.Context, f ProjectFilter) ([]model.Project, int64, error) {
	defer prometheus.TrackDBOperation("list_projects")(time.Now())

	q := s.conn(ctx).Model(&model.Project{})
	if f.TenantID != "" {
		q = q.Where("tenant_id = ?", f.TenantID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		q = q.Where("LOWER(name) LIKE ?", like(f.Search))
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var projects []model.Project
	if err := q.Order("created_at DESC").Offset(f.Offset()).Limit(f.Limit).Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	if len(projects) == 0 {
		return projects, total, nil
	}

	ids := make([]string, 0, len(projects))
	creators := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
		creators = append(creators, p.CreatedBy)
	}

	var counts []taskCounts
	err := s.conn(ctx).Model(&model.Task{}).
		Select("project_id, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed", model.TaskStatusCompleted).
		Where("project_id IN ?", ids).
		Group("project_id").
		Scan(&counts).Error
	if err != nil {
		return nil, 0, err
	}
	byProject := make(map[string]taskCounts, len(counts))
	for _, c := range counts {
		byProject[c.ProjectID] = c
	}

	refs, err := s.userRefs(ctx, creators)
	if err != nil {
		return nil, 0, err
	}

	for i := range projects {
		c := byProject[projects[i].ID]
		n, done := c.Total, c.Completed
		projects[i].TaskCount = &n
		projects[i].CompletedTaskCount = &done
		projects[i].Creator = refs[projects[i].CreatedBy]
	}
	return projects, total, nil
}

func (s *GormStore) CountProjects(ctx context.Context, tenantID string) (int64, error) {
	defer prometheus.TrackDBOperation("count_projects")(time.Now())
	var n int64
	err := s.conn(ctx).Model(&model.Project{}).Where("tenant_id = ?", tenantID).Count(&n).Error
	return n, err
}

// userRefs loads the trimmed form of the given users; missing users are absent from the map
func (s *GormStore) userRefs(ctx context.Context, ids []string) (map[string]*model.UserRef, error) {
	var users []model.User
	if err := s.conn(ctx).Select("id", "full_name").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	out := make(map[string]*model.UserRef, len(users))
	for _, u := range users {
		out[u.ID] = &model.UserRef{ID: u.ID, FullName: u.FullName}
	}
	return out, nil
}

// Tasks

func (s *GormStore) CreateTask(ctx context.Context, t *model.Task) error {
	defer prometheus.TrackDBOperation("create_task")(time.Now())
	return translate(s.conn(ctx).Omit(clause.Associations).Create(t).Error)
}

func (s *GormStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var t model.Task
	if err := s.conn(ctx).Preload("Assignee").Where("id = ?", id).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *GormStore) UpdateTask(ctx context.Context, t *model.Task) error {
	defer prometheus.TrackDBOperation("update_task")(time.Now())
	res := s.conn(ctx).Model(t).Omit(clause.Associations).
		Select("title", "description", "status", "priority", "assigned_to", "due_date", "updated_at").
		Updates(t)
	return affected(res)
}

func (s *GormStore) DeleteTask(ctx context.Context, id string) error {
	defer prometheus.TrackDBOperation("delete_task")(time.Now())
	return affected(s.conn(ctx).Where("id = ?", id).Delete(&model.Task{}))
}

const taskOrder = "CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, " +
	"CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC, created_at DESC"

func (s *GormStore) ListTasks(ctx context.Context, f TaskFilter) ([]model.Task, int64, error) {
	defer prometheus.TrackDBOperation("list_tasks")(time.Now())

	q := s.conn(ctx).Model(&model.Task{}).Where("project_id = ?", f.ProjectID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.AssignedTo != "" {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	if f.Search != "" {
		q = q.Where("LOWER(title) LIKE ?", like(f.Search))
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var tasks []model.Task
	err := q.Preload("Assignee").Order(taskOrder).Offset(f.Offset()).Limit(f.Limit).Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (s *GormStore) CountTasks(ctx context.Context, tenantID string) (int64, error) {
	defer prometheus.TrackDBOperation("count_tasks")(time.Now())
	var n int64
	err := s.conn(ctx).Model(&model.Task{}).Where("tenant_id = ?", tenantID).Count(&n).Error
	return n, err
}

// Audit

func (s *GormStore) CreateAuditLog(ctx context.Context, entry *model.AuditLog) error {
	return translate(s.conn(ctx).Create(entry).Error)
}

// ListAuditLogs returns the newest entries of a tenant. It is for operators and
// tests inspecting the trail; it is not part of Store.
func (s *GormStore) ListAuditLogs(ctx context.Context, tenantID string, limit int) ([]model.AuditLog, error) {
	var rows []model.AuditLog
	err := s.conn(ctx).Where("tenant_id = ?", tenantID).Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/suteetoe/taskhub/internal/apperr"
	"github.com/suteetoe/taskhub/internal/audit"
	"github.com/suteetoe/taskhub/internal/authz"
	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/internal/store"
	"github.com/suteetoe/taskhub/pkg/logger"
)

const (
	MsgTaskNotFound      = "Task not found"
	MsgAssigneeMismatch  = "Assigned user does not belong to this tenant"
	MsgInvalidTaskStatus = "Invalid task status"

	MsgInvalidAssigneeFilter = "assignedTo must be a user id"
)

// TaskService manages the tasks of a project
type TaskService struct {
	store store.Store
	audit Auditor
	log   *zap.Logger
}

func NewTaskService(s store.Store, auditor Auditor, log *zap.Logger) *TaskService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskService{store: s, audit: auditor, log: log}
}

type CreateTaskInput struct {
	Title       string
	Description string
	Priority    model.TaskPriority
	AssignedTo  *string
	DueDate     *time.Time
}

// Create adds a task to projectID. New tasks always start as todo.
func (s *TaskService) Create(ctx context.Context, c authz.Caller, projectID string, in CreateTaskInput) (*model.Task, error) {
	log := logger.FromCtx(ctx, s.log)

	p, err := s.loadProject(ctx, c, projectID, authz.Create)
	if err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, apperr.Invalid("Task title is required")
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, apperr.Invalid("Invalid task priority")
	}
	if in.AssignedTo != nil {
		if err := s.checkAssignee(ctx, p.TenantID, *in.AssignedTo); err != nil {
			return nil, err
		}
	}

	t := &model.Task{
		ProjectID:   p.ID,
		TenantID:    p.TenantID,
		Title:       in.Title,
		Description: in.Description,
		Status:      model.TaskStatusTodo,
		Priority:    in.Priority,
		AssignedTo:  in.AssignedTo,
		DueDate:     in.DueDate,
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, apperr.Internal("service.CreateTask", err)
	}

	log.Info("Task created", zap.String("task_id", t.ID), zap.String("project_id", p.ID))
	record(ctx, s.audit, audit.Entry{
		TenantID:   &t.TenantID,
		UserID:     &c.UserID,
		Action:     audit.ActionCreateTask,
		EntityType: audit.EntityTask,
		EntityID:   t.ID,
	})
	return s.reload(ctx, t)
}

// List pages through the tasks of projectID, highest priority and nearest due date first
func (s *TaskService) List(ctx context.Context, c authz.Caller, projectID string, f store.TaskFilter) (*List[model.Task], error) {
	p, err := s.loadProject(ctx, c, projectID, authz.List)
	if err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalid(MsgInvalidTaskStatus)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, apperr.Invalid("Invalid task priority")
	}
	if f.AssignedTo != "" && !validID(f.AssignedTo) {
		return nil, apperr.Invalid(MsgInvalidAssigneeFilter)
	}

	f.ProjectID = p.ID
	f.Page = f.Page.Normalize(DefaultTaskLimit)
	tasks, total, err := s.store.ListTasks(ctx, f)
	if err != nil {
		return nil, apperr.Internal("service.ListTasks", err)
	}
	return &List[model.Task]{Items: tasks, Total: total, Page: f.Page}, nil
}

// UpdateTaskInput is a partial update. AssignedTo and DueDate may be
// explicitly null to unassign or clear the due date.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	AssignedTo  Optional[string]
	DueDate     Optional[time.Time]
}

// Update changes any task attribute except its project and tenant
func (s *TaskService) Update(ctx context.Context, c authz.Caller, id string, in UpdateTaskInput) (*model.Task, error) {
	log := logger.FromCtx(ctx, s.log)

	t, err := s.load(ctx, c, id, authz.Update)
	if err != nil {
		return nil, err
	}
	t.Assignee, t.AssigneeRef = nil, nil

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.Invalid("Task title cannot be empty")
		}
		t.Title = title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperr.Invalid(MsgInvalidTaskStatus)
		}
		t.Status = *in.Status
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, apperr.Invalid("Invalid task priority")
		}
		t.Priority = *in.Priority
	}
	if in.AssignedTo.Set {
		if in.AssignedTo.Value != nil {
			if err := s.checkAssignee(ctx, t.TenantID, *in.AssignedTo.Value); err != nil {
				return nil, err
			}
		}
		t.AssignedTo = in.AssignedTo.Value
	}
	if in.DueDate.Set {
		t.DueDate = in.DueDate.Value
	}

	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, lookupErr("service.UpdateTask", err, MsgTaskNotFound)
	}

	log.Info("Task updated", zap.String("task_id", t.ID))
	record(ctx, s.audit, audit.Entry{
		TenantID:   &t.TenantID,
		UserID:     &c.UserID,
		Action:     audit.ActionUpdateTask,
		EntityType: audit.EntityTask,
		EntityID:   t.ID,
	})
	return s.reload(ctx, t)
}

// UpdateStatus moves a task to status and touches nothing else
func (s *TaskService) UpdateStatus(ctx context.Context, c authz.Caller, id string, status model.TaskStatus) (*model.Task, error) {
	t, err := s.load(ctx, c, id, authz.Update)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Invalid(MsgInvalidTaskStatus)
	}

	t.Status = status
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, lookupErr("service.UpdateTaskStatus", err, MsgTaskNotFound)
	}

	record(ctx, s.audit, audit.Entry{
		TenantID:   &t.TenantID,
		UserID:     &c.UserID,
		Action:     audit.ActionUpdateTaskStatus,
		EntityType: audit.EntityTask,
		EntityID:   t.ID,
	})
	return s.reload(ctx, t)
}

// Delete removes one task
func (s *TaskService) Delete(ctx context.Context, c authz.Caller, id string) error {
	t, err := s.load(ctx, c, id, authz.Delete)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, t.ID); err != nil {
		return lookupErr("service.DeleteTask", err, MsgTaskNotFound)
	}

	logger.FromCtx(ctx, s.log).Info("Task deleted", zap.String("task_id", t.ID))
	record(ctx, s.audit, audit.Entry{
		TenantID:   &t.TenantID,
		UserID:     &c.UserID,
		Action:     audit.ActionDeleteTask,
		EntityType: audit.EntityTask,
		EntityID:   t.ID,
	})
	return nil
}

func (s *TaskService) loadProject(ctx context.Context, c authz.Caller, projectID string, op authz.Operation) (*model.Project, error) {
	if !validID(projectID) {
		return nil, apperr.NotFound(MsgProjectNotFound)
	}
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, lookupErr("service.Task", err, MsgProjectNotFound)
	}
	if err := authorize(ctx, c, authz.Resource{Type: authz.TaskResource, TenantID: p.TenantID}, op); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *TaskService) load(ctx context.Context, c authz.Caller, id string, op authz.Operation) (*model.Task, error) {
	if !validID(id) {
		return nil, apperr.NotFound(MsgTaskNotFound)
	}
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, lookupErr("service.Task", err, MsgTaskNotFound)
	}
	if err := authorize(ctx, c, authz.Resource{Type: authz.TaskResource, ID: t.ID, TenantID: t.TenantID}, op); err != nil {
		return nil, err
	}
	return t, nil
}

// checkAssignee enforces that a task's assignee belongs to the task's tenant
func (s *TaskService) checkAssignee(ctx context.Context, tenantID, userID string) error {
	if !validID(userID) {
		return apperr.Invalid(MsgAssigneeMismatch)
	}
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Invalid(MsgAssigneeMismatch)
	}
	if err != nil {
		return apperr.Internal("service.checkAssignee", err)
	}
	if u.TenantID == nil || *u.TenantID != tenantID {
		return apperr.Invalid(MsgAssigneeMismatch)
	}
	return nil
}

// reload returns t as stored, with its assignee
func (s *TaskService) reload(ctx context.Context, t *model.Task) (*model.Task, error) {
	fresh, err := s.store.GetTask(ctx, t.ID)
	if err != nil {
		return nil, lookupErr("service.Task", err, MsgTaskNotFound)
	}
	return fresh, nil
}

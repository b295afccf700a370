package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/suteetoe/taskhub/internal/apperr"
	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/internal/service"
	"github.com/suteetoe/taskhub/internal/store"
	"github.com/suteetoe/taskhub/pkg/response"
)

// TaskHandler serves the tasks of a project
type TaskHandler struct {
	tasks *service.TaskService
}

func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type createTaskRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Priority    model.TaskPriority `json:"priority"`
	AssignedTo  *string            `json:"assignedTo"`
	DueDate     *string            `json:"dueDate"`
}

// Create handles POST /api/projects/:id/tasks
func (h *TaskHandler) Create(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	var req createTaskRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	in := service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	}
	if req.AssignedTo != nil && *req.AssignedTo != "" {
		in.AssignedTo = req.AssignedTo
	}
	if req.DueDate != nil && *req.DueDate != "" {
		if in.DueDate, err = parseDate(*req.DueDate); err != nil {
			return respondError(c, err)
		}
	}

	t, err := h.tasks.Create(c.Request().Context(), cl, c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return response.SuccessMessage(c, http.StatusCreated, t, "Task created")
}

// List handles GET /api/projects/:id/tasks
func (h *TaskHandler) List(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := pageParams(c)
	if err != nil {
		return respondError(c, err)
	}
	f := store.TaskFilter{
		Page:       page,
		Status:     model.TaskStatus(c.QueryParam("status")),
		Priority:   model.TaskPriority(c.QueryParam("priority")),
		AssignedTo: c.QueryParam("assignedTo"),
		Search:     c.QueryParam("search"),
	}
	res, err := h.tasks.List(c.Request().Context(), cl, c.Param("id"), f)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, http.StatusOK, listData("tasks", res))
}

// Update handles PUT /api/tasks/:id. assignedTo and dueDate accept null to clear them.
func (h *TaskHandler) Update(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	p, err := bindPatch(c)
	if err != nil {
		return respondError(c, err)
	}

	var in service.UpdateTaskInput
	if in.Title, err = field[string](p, "title"); err != nil {
		return respondError(c, err)
	}
	if in.Description, err = field[string](p, "description"); err != nil {
		return respondError(c, err)
	}
	if in.Status, err = field[model.TaskStatus](p, "status"); err != nil {
		return respondError(c, err)
	}
	if in.Priority, err = field[model.TaskPriority](p, "priority"); err != nil {
		return respondError(c, err)
	}
	if in.AssignedTo, err = nullable[string](p, "assignedTo"); err != nil {
		return respondError(c, err)
	}
	if in.DueDate, err = dueDate(p); err != nil {
		return respondError(c, err)
	}

	t, err := h.tasks.Update(c.Request().Context(), cl, c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return response.SuccessMessage(c, http.StatusOK, t, "Task updated")
}

func dueDate(p patch) (service.Optional[time.Time], error) {
	raw, err := nullable[string](p, "dueDate")
	if err != nil || !raw.Set || raw.Value == nil {
		return service.Optional[time.Time]{Set: raw.Set}, err
	}
	d, err := parseDate(*raw.Value)
	if err != nil {
		return service.Optional[time.Time]{}, err
	}
	return service.Optional[time.Time]{Set: true, Value: d}, nil
}

// UpdateStatus handles PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateStatus(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Status model.TaskStatus `json:"status"`
	}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.Status == "" {
		return respondError(c, apperr.Invalid("status is required"))
	}
	t, err := h.tasks.UpdateStatus(c.Request().Context(), cl, c.Param("id"), req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, http.StatusOK, t)
}

// Delete handles DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.tasks.Delete(c.Request().Context(), cl, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return response.SuccessMessage(c, http.StatusOK, nil, "Task deleted")
}

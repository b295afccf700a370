package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/internal/service"
	"github.com/suteetoe/taskhub/internal/store"
	"github.com/suteetoe/taskhub/pkg/response"
)

// ProjectHandler serves projects
type ProjectHandler struct {
	projects *service.ProjectService
}

func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	var req service.CreateProjectInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	p, err := h.projects.Create(c.Request().Context(), cl, req)
	if err != nil {
		return respondError(c, err)
	}
	return response.SuccessMessage(c, http.StatusCreated, p, "Project created")
}

// List handles GET /api/projects
func (h *ProjectHandler) List(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := pageParams(c)
	if err != nil {
		return respondError(c, err)
	}
	f := store.ProjectFilter{
		Page:   page,
		Status: model.ProjectStatus(c.QueryParam("status")),
		Search: c.QueryParam("search"),
	}
	res, err := h.projects.List(c.Request().Context(), cl, f)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, http.StatusOK, listData("projects", res))
}

// Get handles GET /api/projects/:id
func (h *ProjectHandler) Get(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	p, err := h.projects.Get(c.Request().Context(), cl, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, http.StatusOK, p)
}

// Update handles PUT /api/projects/:id. Fields other than name, description
// and status are ignored; a project never moves between tenants.
func (h *ProjectHandler) Update(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	p, err := bindPatch(c)
	if err != nil {
		return respondError(c, err)
	}

	var in service.UpdateProjectInput
	if in.Name, err = field[string](p, "name"); err != nil {
		return respondError(c, err)
	}
	if in.Description, err = field[string](p, "description"); err != nil {
		return respondError(c, err)
	}
	if in.Status, err = field[model.ProjectStatus](p, "status"); err != nil {
		return respondError(c, err)
	}

	project, err := h.projects.Update(c.Request().Context(), cl, c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return response.SuccessMessage(c, http.StatusOK, project, "Project updated")
}

// Delete handles DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.projects.Delete(c.Request().Context(), cl, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return response.SuccessMessage(c, http.StatusOK, nil, "Project deleted")
}

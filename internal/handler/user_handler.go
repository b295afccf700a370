package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/suteetoe/taskhub/internal/authz"
	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/internal/service"
	"github.com/suteetoe/taskhub/internal/store"
	"github.com/suteetoe/taskhub/pkg/response"
)

// UserHandler serves the users of a tenant
type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Create handles POST /api/tenants/:id/users
func (h *UserHandler) Create(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	var req service.CreateUserInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	u, err := h.users.Create(c.Request().Context(), cl, c.Param("id"), req)
	if err != nil {
		return respondError(c, err)
	}
	return response.SuccessMessage(c, http.StatusCreated, u, "User created successfully")
}

// List handles GET /api/tenants/:id/users
func (h *UserHandler) List(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := pageParams(c)
	if err != nil {
		return respondError(c, err)
	}
	f := store.UserFilter{
		Page:   page,
		Role:   model.Role(c.QueryParam("role")),
		Search: c.QueryParam("search"),
	}
	res, err := h.users.List(c.Request().Context(), cl, c.Param("id"), f)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, http.StatusOK, listData("users", res))
}

const fieldIsActiveLegacy = "is_active"

// Update handles PUT /api/users/:id
func (h *UserHandler) Update(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	p, err := bindPatch(c)
	if err != nil {
		return respondError(c, err)
	}

	var in service.UpdateUserInput
	if in.FullName, err = field[string](p, authz.FieldFullName); err != nil {
		return respondError(c, err)
	}
	if in.Role, err = field[model.Role](p, authz.FieldRole); err != nil {
		return respondError(c, err)
	}
	// is_active is the older spelling; isActive wins when both are sent
	if in.IsActive, err = field[bool](p, p.keyOf(authz.FieldIsActive, fieldIsActiveLegacy)); err != nil {
		return respondError(c, err)
	}
	in.Unknown = p.unknown(authz.FieldFullName, authz.FieldRole, authz.FieldIsActive, fieldIsActiveLegacy)

	u, err := h.users.Update(c.Request().Context(), cl, c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return response.SuccessMessage(c, http.StatusOK, u, "User updated successfully")
}

// Delete handles DELETE /api/users/:id
func (h *UserHandler) Delete(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.users.Delete(c.Request().Context(), cl, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return response.SuccessMessage(c, http.StatusOK, nil, "User deleted successfully")
}

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

// TenantHandler serves tenant administration
type TenantHandler struct {
	tenants *service.TenantService
}

func NewTenantHandler(tenants *service.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// List handles GET /api/tenants
func (h *TenantHandler) List(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := pageParams(c)
	if err != nil {
		return respondError(c, err)
	}
	f := store.TenantFilter{
		Page:             page,
		Status:           model.TenantStatus(c.QueryParam("status")),
		SubscriptionPlan: model.SubscriptionPlan(c.QueryParam("subscriptionPlan")),
	}
	res, err := h.tenants.List(c.Request().Context(), cl, f)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, http.StatusOK, listData("tenants", res))
}

// Get handles GET /api/tenants/:id
func (h *TenantHandler) Get(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	t, err := h.tenants.Get(c.Request().Context(), cl, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, http.StatusOK, t)
}

// Update handles PUT /api/tenants/:id
func (h *TenantHandler) Update(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	p, err := bindPatch(c)
	if err != nil {
		return respondError(c, err)
	}

	var in service.UpdateTenantInput
	if in.Name, err = field[string](p, authz.FieldName); err != nil {
		return respondError(c, err)
	}
	if in.Status, err = field[model.TenantStatus](p, authz.FieldStatus); err != nil {
		return respondError(c, err)
	}
	if in.SubscriptionPlan, err = field[model.SubscriptionPlan](p, authz.FieldSubscriptionPlan); err != nil {
		return respondError(c, err)
	}
	if in.MaxUsers, err = field[int](p, authz.FieldMaxUsers); err != nil {
		return respondError(c, err)
	}
	if in.MaxProjects, err = field[int](p, authz.FieldMaxProjects); err != nil {
		return respondError(c, err)
	}
	in.Unknown = p.unknown(authz.FieldName, authz.FieldStatus, authz.FieldSubscriptionPlan,
		authz.FieldMaxUsers, authz.FieldMaxProjects)

	t, err := h.tenants.Update(c.Request().Context(), cl, c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return response.SuccessMessage(c, http.StatusOK, t, "Tenant updated successfully")
}

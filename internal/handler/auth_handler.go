package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/suteetoe/taskhub/internal/service"
	"github.com/suteetoe/taskhub/pkg/response"
)

// AuthHandler serves registration and sessions
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterTenant handles POST /api/auth/register-tenant
func (h *AuthHandler) RegisterTenant(c echo.Context) error {
	var req service.RegisterTenantInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	res, err := h.auth.RegisterTenant(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return response.SuccessMessage(c, http.StatusCreated, res, "Tenant registered successfully")
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	res, err := h.auth.Login(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, http.StatusOK, res)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	u, err := h.auth.GetMe(c.Request().Context(), cl)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, http.StatusOK, u)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.auth.Logout(c.Request().Context(), cl); err != nil {
		return respondError(c, err)
	}
	return response.SuccessMessage(c, http.StatusOK, nil, "Logged out successfully")
}

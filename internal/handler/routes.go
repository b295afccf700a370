package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/suteetoe/taskhub/internal/middleware"
	"github.com/suteetoe/taskhub/pkg/jwtutil"
)

// Handlers groups every resource handler
type Handlers struct {
	Health   *HealthHandler
	Auth     *AuthHandler
	Tenants  *TenantHandler
	Users    *UserHandler
	Projects *ProjectHandler
	Tasks    *TaskHandler
}

// RegisterRoutes mounts the REST surface on e. loginLimit guards the login endpoint.
func RegisterRoutes(e *echo.Echo, h Handlers, tokens jwtutil.TokenService, loginLimit echo.MiddlewareFunc) {
	// Public routes
	e.GET("/health", h.Health.Check)
	e.GET("/metrics", MetricsHandler)

	api := e.Group("/api")
	api.GET("/health", h.Health.Check)

	auth := api.Group("/auth")
	auth.POST("/register-tenant", h.Auth.RegisterTenant)
	if loginLimit != nil {
		auth.POST("/login", h.Auth.Login, loginLimit)
	} else {
		auth.POST("/login", h.Auth.Login)
	}

	// Everything below requires a bearer token
	requireAuth := middleware.AuthMiddleware(tokens)
	auth.GET("/me", h.Auth.Me, requireAuth)
	auth.POST("/logout", h.Auth.Logout, requireAuth)

	tenants := api.Group("/tenants", requireAuth)
	tenants.GET("", h.Tenants.List)
	tenants.GET("/:id", h.Tenants.Get)
	tenants.PUT("/:id", h.Tenants.Update)
	tenants.POST("/:id/users", h.Users.Create)
	tenants.GET("/:id/users", h.Users.List)

	users := api.Group("/users", requireAuth)
	users.PUT("/:id", h.Users.Update)
	users.DELETE("/:id", h.Users.Delete)

	projects := api.Group("/projects", requireAuth)
	projects.POST("", h.Projects.Create)
	projects.GET("", h.Projects.List)
	projects.GET("/:id", h.Projects.Get)
	projects.PUT("/:id", h.Projects.Update)
	projects.DELETE("/:id", h.Projects.Delete)
	projects.POST("/:id/tasks", h.Tasks.Create)
	projects.GET("/:id/tasks", h.Tasks.List)

	tasks := api.Group("/tasks", requireAuth)
	tasks.PUT("/:id", h.Tasks.Update)
	tasks.PATCH("/:id", h.Tasks.Update)
	tasks.PATCH("/:id/status", h.Tasks.UpdateStatus)
	tasks.DELETE("/:id", h.Tasks.Delete)
}

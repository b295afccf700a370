package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/suteetoe/taskhub/internal/audit"
)

// OriginMiddleware puts the client address on the request context for audit entries
func OriginMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		c.SetRequest(req.WithContext(audit.WithOrigin(req.Context(), audit.Origin(req))))
		return next(c)
	}
}

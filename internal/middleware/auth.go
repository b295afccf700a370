package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/suteetoe/taskhub/internal/authz"
	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/pkg/jwtutil"
	"github.com/suteetoe/taskhub/pkg/logger"
	"github.com/suteetoe/taskhub/pkg/response"
	"github.com/suteetoe/taskhub/prometheus"
)

const callerKey = "caller"

// MsgUnauthorized is the body of every rejected bearer token
const MsgUnauthorized = "Unauthorized"

// AuthMiddleware verifies the bearer token and stores the caller on the context
func AuthMiddleware(tokens jwtutil.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				log.Debug("Missing Authorization header")
				prometheus.RecordAuthError("missing_token")
				return response.Error(c, http.StatusUnauthorized, MsgUnauthorized)
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				log.Debug("Invalid Authorization header format")
				prometheus.RecordAuthError("invalid_auth_format")
				return response.Error(c, http.StatusUnauthorized, MsgUnauthorized)
			}

			claims, err := tokens.Verify(parts[1])
			if err != nil {
				log.Debug("Invalid JWT token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return response.Error(c, http.StatusUnauthorized, MsgUnauthorized)
			}

			caller := authz.Caller{UserID: claims.UserID, TenantID: claims.TenantID, Role: model.Role(claims.Role)}
			c.Set(callerKey, caller)

			ctxLogger := log.With(zap.String("user_id", caller.UserID))
			c.Set("logger", ctxLogger)
			c.SetRequest(c.Request().WithContext(logger.WithLogger(c.Request().Context(), ctxLogger)))

			return next(c)
		}
	}
}

// CallerFrom returns the caller stored by AuthMiddleware
func CallerFrom(c echo.Context) (authz.Caller, bool) {
	caller, ok := c.Get(callerKey).(authz.Caller)
	return caller, ok
}

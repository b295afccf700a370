package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/suteetoe/taskhub/internal/apperr"
	"github.com/suteetoe/taskhub/internal/authz"
	"github.com/suteetoe/taskhub/internal/middleware"
	"github.com/suteetoe/taskhub/internal/service"
	"github.com/suteetoe/taskhub/pkg/logger"
	"github.com/suteetoe/taskhub/pkg/response"
)

// respondError writes err as a failure envelope. Internal causes are logged
// and never shown to the caller.
func respondError(c echo.Context, err error) error {
	status := apperr.HTTPStatus(err)
	if apperr.KindOf(err) == apperr.KindInternal {
		logger.FromContext(c).Error("Request failed",
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return response.Error(c, status, apperr.Message(err))
}

// caller returns the authenticated caller; routes without AuthMiddleware never call it
func caller(c echo.Context) (authz.Caller, error) {
	cl, ok := middleware.CallerFrom(c)
	if !ok {
		return authz.Caller{}, apperr.Unauthenticated(middleware.MsgUnauthorized)
	}
	return cl, nil
}

// listData shapes one page of results the way every list endpoint answers
func listData[T any](key string, l *service.List[T]) echo.Map {
	items := l.Items
	if items == nil {
		items = []T{}
	}
	return response.List(key, items, l.Total, l.Page.Page, l.Page.Limit)
}

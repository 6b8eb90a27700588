package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	metricsvc "github.com/trezcool/shule/services/metrics"
)

// rolesMiddleware lets through callers holding any of roles. Admins always pass.
func rolesMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.hasAnyRole([]string{RoleAdmin}) || claims.hasAnyRole(roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return rolesMiddleware(RoleAdmin)
}

func staffMiddleware() echo.MiddlewareFunc {
	return rolesMiddleware(RoleTeacher)
}

func metricsMiddleware(m *metricsvc.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				ctx.Error(err) // commits the response status
			}
			req := ctx.Request()
			m.ObserveRequest(req.Method, ctx.Path(), ctx.Response().Status, time.Since(start))
			return nil
		}
	}
}

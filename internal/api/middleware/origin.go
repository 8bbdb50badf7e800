package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
)

// Origin stores the caller's address on the request context so audit
// events can record where an action came from.
func Origin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(domain.WithOrigin(req.Context(), c.RealIP())))
			return next(c)
		}
	}
}

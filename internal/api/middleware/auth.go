package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/service"
)

// PrincipalKey is the echo.Context key holding the authenticated caller.
const PrincipalKey = "principal"

// Guard is the part of service.Guard the middleware needs.
type Guard interface {
	Authenticate(ctx context.Context, token string) (*domain.Principal, error)
	Check(p *domain.Principal, req service.Requirement) error
}

// Auth validates the bearer token and injects the principal into context.
// Failures are returned as errors so the central error handler renders them.
func Auth(guard Guard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			principal, err := guard.Authenticate(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				return err
			}

			c.Set(PrincipalKey, principal)
			return next(c)
		}
	}
}

// RequireCapability rejects callers whose role lacks capability.
func RequireCapability(guard Guard, capability domain.Capability) echo.MiddlewareFunc {
	return require(guard, service.RequireCapability(capability))
}

// RequireRoles rejects callers holding none of roles.
func RequireRoles(guard Guard, roles ...domain.Role) echo.MiddlewareFunc {
	return require(guard, service.RequireRoles(roles...))
}

func require(guard Guard, req service.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, _ := c.Get(PrincipalKey).(*domain.Principal)
			if err := guard.Check(p, req); err != nil {
				return err
			}
			return next(c)
		}
	}
}

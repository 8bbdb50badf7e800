package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/api/middleware"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
)

// ctxPrincipal extracts the caller injected by the Auth middleware. Its
// absence means the route was registered without Auth, so fail closed.
func ctxPrincipal(c echo.Context) (*domain.Principal, error) {
	p, ok := c.Get(middleware.PrincipalKey).(*domain.Principal)
	if !ok || p == nil || p.AccountID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}

// bindAndValidate decodes the request into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

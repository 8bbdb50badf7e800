package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
)

// ComplianceHandler serves retention checks, purges and policy review.
type ComplianceHandler struct {
	service ports.ComplianceService
}

func NewComplianceHandler(service ports.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{service: service}
}

// Check handles GET /v1/compliance/check. It never deletes anything.
//
// @Summary      Run a compliance check
// @Tags         compliance
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.ComplianceReport
// @Failure      403  {object}  errorResponse
// @Router       /v1/compliance/check [get]
func (h *ComplianceHandler) Check(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	report, err := h.service.CheckCompliance(c.Request().Context(), p.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// Purge handles POST /v1/compliance/purge.
//
// @Summary      Purge rows past retention
// @Tags         compliance
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.PurgeResult
// @Failure      403  {object}  errorResponse
// @Router       /v1/compliance/purge [post]
func (h *ComplianceHandler) Purge(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	result, err := h.service.PurgeExpired(c.Request().Context(), p.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Policies handles GET /v1/compliance/policies.
//
// @Summary      List retention policies
// @Tags         compliance
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.RetentionPolicy
// @Failure      403  {object}  errorResponse
// @Router       /v1/compliance/policies [get]
func (h *ComplianceHandler) Policies(c echo.Context) error {
	policies, err := h.service.ListPolicies(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, policies)
}

// UpdatePolicy handles PUT /v1/compliance/policies/:table.
//
// @Summary      Update a retention policy
// @Tags         compliance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        table  path      string               true  "Table name"
// @Param        body   body      updatePolicyRequest  true  "Retention period and legal basis"
// @Success      200    {object}  domain.RetentionPolicy
// @Failure      400    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Router       /v1/compliance/policies/{table} [put]
func (h *ComplianceHandler) UpdatePolicy(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req updatePolicyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	policy, err := h.service.UpdatePolicy(c.Request().Context(), c.Param("table"), req.RetentionDays, req.LegalBasis, p.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, policy)
}

// Reports handles GET /v1/compliance/reports.
//
// @Summary      Archived compliance reports
// @Tags         compliance
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Number of reports (max 100)"
// @Success      200    {array}   domain.ComplianceReport
// @Failure      403    {object}  errorResponse
// @Router       /v1/compliance/reports [get]
func (h *ComplianceHandler) Reports(c echo.Context) error {
	var q reportsQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	reports, err := h.service.ReportHistory(c.Request().Context(), q.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reports)
}

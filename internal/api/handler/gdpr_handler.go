package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
)

// GDPRHandler exposes data-subject rights to administrators acting on a
// subject's behalf.
type GDPRHandler struct {
	service ports.GDPRService
}

func NewGDPRHandler(service ports.GDPRService) *GDPRHandler {
	return &GDPRHandler{service: service}
}

// Access handles POST /v1/gdpr/access.
//
// @Summary      Subject access request
// @Tags         gdpr
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      subjectRequest  true  "Data subject"
// @Success      200   {object}  domain.AccessExport
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/gdpr/access [post]
func (h *GDPRHandler) Access(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req subjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	export, err := h.service.HandleAccess(c.Request().Context(), req.Email, p.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, export)
}

// Portability handles POST /v1/gdpr/portability. The export is served as a
// download.
//
// @Summary      Data portability export
// @Tags         gdpr
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      subjectRequest  true  "Data subject"
// @Success      200   {object}  domain.PortableExport
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/gdpr/portability [post]
func (h *GDPRHandler) Portability(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req subjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	export, err := h.service.HandlePortability(c.Request().Context(), req.Email, p.AccountID)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="data-export.json"`)
	return c.JSON(http.StatusOK, export)
}

// Rectification handles POST /v1/gdpr/rectification.
//
// @Summary      Rectify personal data
// @Tags         gdpr
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      rectificationRequest  true  "Subject and corrections"
// @Success      200   {object}  domain.Account
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/gdpr/rectification [post]
func (h *GDPRHandler) Rectification(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req rectificationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.service.HandleRectification(c.Request().Context(), req.Email, p.AccountID, domain.Rectification{
		FirstName:  req.Corrections.FirstName,
		LastName:   req.Corrections.LastName,
		Department: req.Corrections.Department,
		Phone:      req.Corrections.Phone,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// Erasure handles POST /v1/gdpr/erasure. A legal hold answers 409 with the
// regulatory reason.
//
// @Summary      Erase a data subject
// @Tags         gdpr
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      subjectRequest  true  "Data subject"
// @Success      200   {object}  domain.ErasureResult
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/gdpr/erasure [post]
func (h *GDPRHandler) Erasure(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req subjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.service.HandleErasure(c.Request().Context(), req.Email, p.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Restriction handles POST /v1/gdpr/restriction.
//
// @Summary      Restrict processing
// @Tags         gdpr
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      restrictionRequest  true  "Subject and reason"
// @Success      200   {object}  domain.Account
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/gdpr/restriction [post]
func (h *GDPRHandler) Restriction(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req restrictionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.service.HandleRestriction(c.Request().Context(), req.Email, p.AccountID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

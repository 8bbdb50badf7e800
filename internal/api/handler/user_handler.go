package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
)

// UserHandler serves administrative account management.
type UserHandler struct {
	service ports.AccountService
}

func NewUserHandler(service ports.AccountService) *UserHandler {
	return &UserHandler{service: service}
}

// Create handles POST /v1/users. New accounts start pending approval.
//
// @Summary      Create an account
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "Account details"
// @Success      201   {object}  domain.Account
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.service.CreateAccount(c.Request().Context(), ports.CreateAccountInput{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       domain.Role(req.Role),
		Department: req.Department,
		Phone:      req.Phone,
	}, p.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, account)
}

// List handles GET /v1/users.
//
// @Summary      List accounts
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        role    query     string  false  "Filter by role"
// @Param        status  query     string  false  "Filter by status"
// @Param        search  query     string  false  "Partial match on email or name"
// @Param        page    query     int     false  "Page number (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Success      200     {object}  listUsersResponse
// @Failure      400     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Router       /v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	var q listUsersQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	result, err := h.service.ListAccounts(c.Request().Context(), domain.AccountFilter{
		Role:   domain.Role(q.Role),
		Status: domain.Status(q.Status),
		Search: q.Search,
		Page:   q.Page,
		Limit:  q.Limit,
	})
	if err != nil {
		return err
	}

	items := result.Items
	if items == nil {
		items = []*domain.Account{}
	}
	return c.JSON(http.StatusOK, listUsersResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
	})
}

// Stats handles GET /v1/users/stats.
//
// @Summary      Account statistics
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.AccountStats
// @Failure      403  {object}  errorResponse
// @Router       /v1/users/stats [get]
func (h *UserHandler) Stats(c echo.Context) error {
	stats, err := h.service.Statistics(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Get handles GET /v1/users/:id.
//
// @Summary      Get an account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  domain.Account
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	account, err := h.service.GetAccount(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// Update handles PATCH /v1/users/:id.
//
// @Summary      Update an account profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Account ID"
// @Param        body  body      profileRequest  true  "Fields to change"
// @Success      200   {object}  domain.Account
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/users/{id} [patch]
func (h *UserHandler) Update(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req profileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.service.UpdateProfile(c.Request().Context(), c.Param("id"), req.toUpdate(), p.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// ChangeStatus handles PATCH /v1/users/:id/status. Any status other than
// active ends the account's sessions.
//
// @Summary      Change account status
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Account ID"
// @Param        body  body      changeStatusRequest  true  "New status"
// @Success      200   {object}  domain.Account
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/users/{id}/status [patch]
func (h *UserHandler) ChangeStatus(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req changeStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.service.ChangeStatus(c.Request().Context(), c.Param("id"), domain.Status(req.Status), p.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// Delete handles DELETE /v1/users/:id. The account is deactivated, not
// removed; erasure goes through the GDPR endpoint.
//
// @Summary      Deactivate an account
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  string  true  "Account ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.SoftDelete(c.Request().Context(), c.Param("id"), p.AccountID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

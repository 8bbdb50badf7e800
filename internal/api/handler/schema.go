package handler

import (
	"time"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
	Required string   `json:"required,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token       string               `json:"token"`
	ExpiresAt   time.Time            `json:"expires_at"`
	User        *domain.Account      `json:"user"`
	Permissions domain.PermissionSet `json:"permissions"`
}

type meResponse struct {
	User        *domain.Account      `json:"user"`
	Permissions domain.PermissionSet `json:"permissions"`
}

type permissionsResponse struct {
	Role        domain.Role          `json:"role"`
	Permissions domain.PermissionSet `json:"permissions"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required"`
}

// profileRequest carries the editable profile fields. Absent fields are left
// unchanged.
type profileRequest struct {
	FirstName  *string `json:"first_name"  validate:"omitempty,max=100"`
	LastName   *string `json:"last_name"   validate:"omitempty,max=100"`
	Department *string `json:"department"  validate:"omitempty,max=100"`
	Phone      *string `json:"phone"       validate:"omitempty,max=30"`
}

func (r profileRequest) toUpdate() domain.ProfileUpdate {
	return domain.ProfileUpdate{
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Department: r.Department,
		Phone:      r.Phone,
	}
}

// --- Users ---

type createUserRequest struct {
	Email      string `json:"email"      validate:"required"`
	Password   string `json:"password"   validate:"required"`
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name"  validate:"required,max=100"`
	Role       string `json:"role"       validate:"required"`
	Department string `json:"department" validate:"max=100"`
	Phone      string `json:"phone"      validate:"max=30"`
}

type listUsersQuery struct {
	Role   string `query:"role"`
	Status string `query:"status"`
	Search string `query:"search" validate:"max=100"`
	Page   int    `query:"page"   validate:"min=0"`
	Limit  int    `query:"limit"  validate:"min=0,max=100"`
}

type listUsersResponse struct {
	Items      []*domain.Account `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended pending_approval restricted"`
}

// --- GDPR ---

type subjectRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type rectificationRequest struct {
	Email       string         `json:"email"       validate:"required,email"`
	Corrections profileRequest `json:"corrections"`
}

type restrictionRequest struct {
	Email  string `json:"email"  validate:"required,email"`
	Reason string `json:"reason" validate:"required,max=500"`
}

// --- Compliance ---

type updatePolicyRequest struct {
	RetentionDays int    `json:"retention_days" validate:"required,gt=0"`
	LegalBasis    string `json:"legal_basis"    validate:"max=500"`
}

type reportsQuery struct {
	Limit int `query:"limit" validate:"min=0,max=100"`
}

// --- Health ---

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

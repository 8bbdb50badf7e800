package domain

import (
	"strings"
	"time"
)

// Role is the single role an account holds.
type Role string

const (
	RoleSystemAdmin      Role = "system_admin"
	RoleLeadAuditor      Role = "lead_auditor"
	RoleSeniorAuditor    Role = "senior_auditor"
	RoleAuditor          Role = "auditor"
	RoleAnalyst          Role = "analyst"
	RoleExternalReviewer Role = "external_reviewer"
	RoleCouncillor       Role = "councillor"
)

// Roles returns every role in a stable order.
func Roles() []Role {
	return []Role{
		RoleSystemAdmin,
		RoleLeadAuditor,
		RoleSeniorAuditor,
		RoleAuditor,
		RoleAnalyst,
		RoleExternalReviewer,
		RoleCouncillor,
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	for _, known := range Roles() {
		if r == known {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive          Status = "active"
	StatusInactive        Status = "inactive"
	StatusSuspended       Status = "suspended"
	StatusPendingApproval Status = "pending_approval"
	// StatusRestricted is set by a GDPR restriction request. It is distinct
	// from an administrative suspension.
	StatusRestricted Status = "restricted"
)

// Statuses returns every status in a stable order.
func Statuses() []Status {
	return []Status{StatusActive, StatusInactive, StatusSuspended, StatusPendingApproval, StatusRestricted}
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses() {
		if s == known {
			return true
		}
	}
	return false
}

// Account models a portal user.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Role         Role       `json:"role"`
	Status       Status     `json:"status"`
	Department   string     `json:"department,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedBy    string     `json:"created_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NormalizeEmail case-folds and trims an email address. Every lookup and
// write goes through it so that uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ProfileUpdate lists the only fields a profile edit may touch. Email,
// password and role have dedicated paths.
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	Department *string
	Phone      *string
}

// Fields returns the column names that carry a value.
func (u ProfileUpdate) Fields() []string {
	var fields []string
	if u.FirstName != nil {
		fields = append(fields, "first_name")
	}
	if u.LastName != nil {
		fields = append(fields, "last_name")
	}
	if u.Department != nil {
		fields = append(fields, "department")
	}
	if u.Phone != nil {
		fields = append(fields, "phone")
	}
	return fields
}

// Empty reports whether no field is set.
func (u ProfileUpdate) Empty() bool { return len(u.Fields()) == 0 }

// Apply copies the set fields onto a.
func (u ProfileUpdate) Apply(a *Account) {
	if u.FirstName != nil {
		a.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		a.LastName = *u.LastName
	}
	if u.Department != nil {
		a.Department = *u.Department
	}
	if u.Phone != nil {
		a.Phone = *u.Phone
	}
}

// AccountStats is a point-in-time aggregate over all accounts.
type AccountStats struct {
	Total           int64          `json:"total"`
	Active          int64          `json:"active"`
	Inactive        int64          `json:"inactive"`
	Suspended       int64          `json:"suspended"`
	PendingApproval int64          `json:"pending_approval"`
	Restricted      int64          `json:"restricted"`
	ByRole          map[Role]int64 `json:"by_role"`
}

// AccountFilter narrows ListAccounts. Zero values mean "no filter".
type AccountFilter struct {
	Role   Role
	Status Status
	Search string // partial match on email or name
	Page   int    // 1-based
	Limit  int
}

package domain

import (
	"errors"
	"testing"
)

func TestPermissionMatrix_CoversEveryRole(t *testing.T) {
	for _, role := range Roles() {
		if _, ok := permissionMatrix[role]; !ok {
			t.Fatalf("role %q has no permission row", role)
		}
	}
	if len(permissionMatrix) != len(Roles()) {
		t.Fatalf("matrix has %d rows, want %d", len(permissionMatrix), len(Roles()))
	}
}

func TestPermissionsFor_SystemAdminHoldsEverything(t *testing.T) {
	p := PermissionsFor(RoleSystemAdmin)
	for _, c := range Capabilities() {
		if !p.Allows(c) {
			t.Fatalf("system_admin should hold %s", c)
		}
	}
}

func TestPermissionsFor_LeadAuditor(t *testing.T) {
	p := PermissionsFor(RoleLeadAuditor)
	for _, c := range Capabilities() {
		want := c != CapManageUsers && c != CapManageSystem
		if got := p.Allows(c); got != want {
			t.Fatalf("lead_auditor %s: got %v, want %v", c, got, want)
		}
	}
}

func TestPermissionsFor_Auditor(t *testing.T) {
	p := PermissionsFor(RoleAuditor)
	if !p.CanUploadDocuments || !p.CanViewReports {
		t.Fatalf("auditor must upload and view reports: %+v", p)
	}
	if p.CanManageUsers || p.CanViewAllDocuments || p.CanExportData {
		t.Fatalf("auditor granted too much: %+v", p)
	}
}

func TestPermissionsFor_ReadOnlyRoles(t *testing.T) {
	for _, role := range []Role{RoleExternalReviewer, RoleCouncillor} {
		p := PermissionsFor(role)
		for _, c := range Capabilities() {
			if got := p.Allows(c); got != (c == CapViewReports) {
				t.Fatalf("%s %s: got %v", role, c, got)
			}
		}
	}
}

func TestPermissionsFor_UnknownRole(t *testing.T) {
	if p := PermissionsFor(Role("janitor")); p != (PermissionSet{}) {
		t.Fatalf("unknown role should have no permissions, got %+v", p)
	}
}

func TestCapability_String(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Capabilities() {
		s := c.String()
		if s == "unknown" || seen[s] {
			t.Fatalf("capability %d has bad or duplicate name %q", int(c), s)
		}
		seen[s] = true
	}
	if Capability(0).String() != "unknown" {
		t.Fatalf("zero capability should be unknown")
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestNewValidationError_NilWhenEmpty(t *testing.T) {
	if err := NewValidationError(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	err := NewValidationError("a", "b")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Problems) != 2 {
		t.Fatalf("expected two problems, got %v", err)
	}
}

func TestSessionError_UnwrapsToUnauthenticated(t *testing.T) {
	cause := errors.New("boom")
	err := error(&SessionError{Kind: SessionExpired, Err: cause})
	if !errors.Is(err, ErrUnauthenticated) || !errors.Is(err, cause) {
		t.Fatalf("session error should unwrap to both sentinel and cause")
	}
}

func TestForbiddenError_Required(t *testing.T) {
	capErr := &ForbiddenError{Capability: CapManageUsers}
	if got := capErr.Required(); got != "capability manage_users" {
		t.Fatalf("unexpected requirement: %q", got)
	}
	roleErr := &ForbiddenError{Roles: []Role{RoleSystemAdmin, RoleLeadAuditor}}
	if got := roleErr.Required(); got != "role system_admin or lead_auditor" {
		t.Fatalf("unexpected requirement: %q", got)
	}
	if !errors.Is(roleErr, ErrForbidden) {
		t.Fatalf("expected ErrForbidden")
	}
	if !errors.Is(ErrSelfDeletion, ErrForbidden) {
		t.Fatalf("self deletion must be a forbidden error")
	}
}

func TestProfileUpdate_FieldsAndApply(t *testing.T) {
	first, phone := "Ada", "0123"
	u := ProfileUpdate{FirstName: &first, Phone: &phone}
	fields := u.Fields()
	if len(fields) != 2 || fields[0] != "first_name" || fields[1] != "phone" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	a := &Account{FirstName: "Old", LastName: "Keep"}
	u.Apply(a)
	if a.FirstName != "Ada" || a.LastName != "Keep" || a.Phone != "0123" {
		t.Fatalf("unexpected account after apply: %+v", a)
	}
	if !(ProfileUpdate{}).Empty() {
		t.Fatalf("zero update should be empty")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Jane.Doe@Council.GOV.uk "); got != "jane.doe@council.gov.uk" {
		t.Fatalf("unexpected normalized email: %q", got)
	}
}

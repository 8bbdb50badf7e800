package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
)

func issueFor(t *testing.T, creds *CredentialStore, id string, role domain.Role) string {
	t.Helper()
	token, _, err := creds.IssueSession(&domain.Account{ID: id, Email: id + "@council.gov.uk", Role: role})
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	return token
}

func TestGuard_Authenticate_EmptyToken(t *testing.T) {
	g := NewGuard(newTestCredentials(), nil, discardLogger)
	if _, err := g.Authenticate(context.Background(), ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestGuard_Authenticate_AttachesPermissions(t *testing.T) {
	creds := newTestCredentials()
	g := NewGuard(creds, newStubRevocations(), discardLogger)

	p, err := g.Authenticate(context.Background(), issueFor(t, creds, "acc-1", domain.RoleSeniorAuditor))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.AccountID != "acc-1" || p.Role != domain.RoleSeniorAuditor {
		t.Fatalf("unexpected principal: %+v", p)
	}
	if p.Permissions != domain.PermissionsFor(domain.RoleSeniorAuditor) {
		t.Fatalf("principal permissions do not match the matrix")
	}
}

func TestGuard_Authenticate_Revoked(t *testing.T) {
	creds := newTestCredentials()
	revocations := newStubRevocations()
	g := NewGuard(creds, revocations, discardLogger)

	token := issueFor(t, creds, "acc-1", domain.RoleAuditor)
	_ = revocations.Revoke(context.Background(), "acc-1", time.Now())

	_, err := g.Authenticate(context.Background(), token)
	var se *domain.SessionError
	if !errors.As(err, &se) || se.Kind != domain.SessionRevoked {
		t.Fatalf("expected revoked session, got %v", err)
	}

	later := newTestCredentials(WithClock(func() time.Time { return time.Now().Add(2 * time.Second) }))
	if _, err := g.Authenticate(context.Background(), issueFor(t, later, "acc-1", domain.RoleAuditor)); err != nil {
		t.Fatalf("session issued after revocation should pass, got %v", err)
	}
}

func TestGuard_Authenticate_RevokedEarlierInSameSecond(t *testing.T) {
	revokedAt := time.Now().UTC().Truncate(time.Second).Add(300 * time.Millisecond)
	at := func(offset time.Duration) func() time.Time {
		return func() time.Time { return revokedAt.Add(offset) }
	}
	revocations := newStubRevocations()
	_ = revocations.Revoke(context.Background(), "acc-1", revokedAt)

	// Suspended then reactivated: a login later in the same second is usable.
	fresh := newTestCredentials(WithClock(at(400 * time.Millisecond)))
	g := NewGuard(fresh, revocations, discardLogger)
	if _, err := g.Authenticate(context.Background(), issueFor(t, fresh, "acc-1", domain.RoleAuditor)); err != nil {
		t.Fatalf("session issued after the revocation should pass, got %v", err)
	}

	// A token from earlier in that second is still revoked.
	stale := newTestCredentials(WithClock(at(-200 * time.Millisecond)))
	g = NewGuard(stale, revocations, discardLogger)
	_, err := g.Authenticate(context.Background(), issueFor(t, stale, "acc-1", domain.RoleAuditor))
	var se *domain.SessionError
	if !errors.As(err, &se) || se.Kind != domain.SessionRevoked {
		t.Fatalf("expected revoked session, got %v", err)
	}
}

func TestGuard_Authenticate_RevocationLookupFailureIsNotFatal(t *testing.T) {
	creds := newTestCredentials()
	revocations := newStubRevocations()
	revocations.lookupErr = errors.New("redis down")
	g := NewGuard(creds, revocations, discardLogger)

	if _, err := g.Authenticate(context.Background(), issueFor(t, creds, "acc-1", domain.RoleAuditor)); err != nil {
		t.Fatalf("expected session to be accepted, got %v", err)
	}
}

func TestGuard_Check_Capability(t *testing.T) {
	g := NewGuard(newTestCredentials(), nil, discardLogger)
	auditor := &domain.Principal{AccountID: "a", Role: domain.RoleAuditor, Permissions: domain.PermissionsFor(domain.RoleAuditor)}

	if err := g.Check(auditor, RequireCapability(domain.CapUploadDocuments)); err != nil {
		t.Fatalf("auditor may upload, got %v", err)
	}

	err := g.Check(auditor, RequireCapability(domain.CapManageUsers))
	var fe *domain.ForbiddenError
	if !errors.As(err, &fe) || fe.Capability != domain.CapManageUsers {
		t.Fatalf("expected forbidden on manage_users, got %v", err)
	}
}

func TestGuard_Check_Roles(t *testing.T) {
	g := NewGuard(newTestCredentials(), nil, discardLogger)
	lead := &domain.Principal{AccountID: "l", Role: domain.RoleLeadAuditor, Permissions: domain.PermissionsFor(domain.RoleLeadAuditor)}
	admin := &domain.Principal{AccountID: "s", Role: domain.RoleSystemAdmin, Permissions: domain.PermissionsFor(domain.RoleSystemAdmin)}

	if err := g.Check(lead, RequireRoles(domain.RoleSystemAdmin)); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for lead auditor, got %v", err)
	}
	if err := g.Check(admin, RequireRoles(domain.RoleSystemAdmin)); err != nil {
		t.Fatalf("expected admin to pass, got %v", err)
	}
	if err := g.Check(nil, RequireRoles(domain.RoleSystemAdmin)); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for nil principal, got %v", err)
	}
}

func TestGuard_Authorize_AuditorScenario(t *testing.T) {
	creds := newTestCredentials()
	g := NewGuard(creds, nil, discardLogger)
	token := issueFor(t, creds, "aud-1", domain.RoleAuditor)

	if _, err := g.Authorize(context.Background(), token, RequireCapability(domain.CapViewReports)); err != nil {
		t.Fatalf("auditor may view reports, got %v", err)
	}
	if _, err := g.Authorize(context.Background(), token, RequireCapability(domain.CapExportData)); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("auditor may not export, got %v", err)
	}
}

package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/pkg/metrics"
)

// SessionValidator is the part of the credential store the guard needs.
type SessionValidator interface {
	ValidateSession(token string) (*domain.SessionClaims, error)
}

// Requirement is what a caller must hold. Capability checks gate features;
// role checks are reserved for administrative operations.
type Requirement struct {
	Capability domain.Capability
	Roles      []domain.Role
}

// RequireCapability builds a capability requirement.
func RequireCapability(c domain.Capability) Requirement {
	return Requirement{Capability: c}
}

// RequireRoles builds a role requirement satisfied by any of roles.
func RequireRoles(roles ...domain.Role) Requirement {
	return Requirement{Roles: roles}
}

// Guard turns a session token into an authorization decision.
type Guard struct {
	sessions    SessionValidator
	revocations ports.SessionRevocations
	log         zerolog.Logger
}

// NewGuard returns a Guard. revocations may be nil.
func NewGuard(sessions SessionValidator, revocations ports.SessionRevocations, log zerolog.Logger) *Guard {
	return &Guard{sessions: sessions, revocations: revocations, log: log}
}

// Authenticate validates token and returns the caller it identifies.
func (g *Guard) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	if token == "" {
		metrics.AuthorizationDecisionsTotal.WithLabelValues("unauthenticated").Inc()
		return nil, domain.ErrUnauthenticated
	}

	claims, err := g.sessions.ValidateSession(token)
	if err != nil {
		metrics.AuthorizationDecisionsTotal.WithLabelValues("unauthenticated").Inc()
		return nil, err
	}

	if g.revocations != nil {
		revokedAt, ok, err := g.revocations.RevokedAt(ctx, claims.AccountID)
		if err != nil {
			g.log.Warn().Err(err).Str("account_id", claims.AccountID).Msg("revocation lookup failed, accepting session")
		} else if ok && !claims.IssuedAt.After(revokedAt) {
			metrics.AuthorizationDecisionsTotal.WithLabelValues("unauthenticated").Inc()
			return nil, &domain.SessionError{Kind: domain.SessionRevoked}
		}
	}

	return &domain.Principal{
		AccountID:   claims.AccountID,
		Email:       claims.Email,
		Role:        claims.Role,
		Permissions: domain.PermissionsFor(claims.Role),
		IssuedAt:    claims.IssuedAt,
	}, nil
}

// Check decides whether p satisfies req.
func (g *Guard) Check(p *domain.Principal, req Requirement) error {
	if p == nil {
		metrics.AuthorizationDecisionsTotal.WithLabelValues("unauthenticated").Inc()
		return domain.ErrUnauthenticated
	}

	if req.Capability != 0 && !p.Permissions.Allows(req.Capability) {
		metrics.AuthorizationDecisionsTotal.WithLabelValues("forbidden").Inc()
		return &domain.ForbiddenError{Capability: req.Capability}
	}

	if len(req.Roles) > 0 {
		allowed := false
		for _, r := range req.Roles {
			if p.Role == r {
				allowed = true
				break
			}
		}
		if !allowed {
			metrics.AuthorizationDecisionsTotal.WithLabelValues("forbidden").Inc()
			return &domain.ForbiddenError{Roles: req.Roles}
		}
	}

	metrics.AuthorizationDecisionsTotal.WithLabelValues("allowed").Inc()
	return nil
}

// Authorize authenticates token and checks req in one step.
func (g *Guard) Authorize(ctx context.Context, token string, req Requirement) (*domain.Principal, error) {
	p, err := g.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := g.Check(p, req); err != nil {
		return nil, err
	}
	return p, nil
}

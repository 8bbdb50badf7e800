package domain

import (
	"context"
	"time"
)

// Action codes written to the audit log.
const (
	ActionUserCreated          = "USER_CREATED"
	ActionUserUpdated          = "USER_UPDATED"
	ActionUserStatusChanged    = "USER_STATUS_CHANGED"
	ActionUserDeactivated      = "USER_DEACTIVATED"
	ActionPasswordChanged      = "PASSWORD_CHANGED"
	ActionLoginSuccess         = "LOGIN_SUCCESS"
	ActionLoginFailed          = "LOGIN_FAILED"
	ActionGDPRAccess           = "GDPR_ACCESS_REQUEST"
	ActionGDPRPortability      = "GDPR_PORTABILITY_EXPORT"
	ActionGDPRRectification    = "GDPR_RECTIFICATION"
	ActionGDPRRectificationRej = "GDPR_RECTIFICATION_REJECTED"
	ActionGDPRErasure          = "GDPR_ERASURE_COMPLETED"
	ActionGDPRErasureRejected  = "GDPR_ERASURE_REJECTED"
	ActionGDPRRestriction      = "GDPR_RESTRICTION_APPLIED"
	ActionComplianceCheck      = "COMPLIANCE_CHECK"
	ActionRetentionPurge       = "RETENTION_PURGE"
	ActionRetentionPolicySet   = "RETENTION_POLICY_UPDATED"
)

// Resource types.
const (
	ResourceUser            = "user"
	ResourceGDPRRequest     = "gdpr_request"
	ResourceRetentionPolicy = "retention_policy"
	ResourceSystem          = "system"
	// ResourceAudit tags activity that belongs to an audit engagement. Recent
	// activity with this tag places a legal hold on erasure.
	ResourceAudit = "audit"
)

// AuditEvent is a persisted, write-once audit record.
type AuditEvent struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Detail       map[string]any `json:"detail,omitempty"`
	Origin       string         `json:"origin,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditEntry is what callers hand to the audit writer.
type AuditEntry struct {
	Action       string
	ResourceType string
	ResourceID   string
	ActorID      string // empty for system actions
	Detail       map[string]any
	Origin       string // defaults to the origin stored on the context
}

type originKey struct{}

// WithOrigin stores the requester's network origin on ctx.
func WithOrigin(ctx context.Context, origin string) context.Context {
	if origin == "" {
		return ctx
	}
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFromContext returns the origin stored by WithOrigin, if any.
func OriginFromContext(ctx context.Context) string {
	origin, _ := ctx.Value(originKey{}).(string)
	return origin
}

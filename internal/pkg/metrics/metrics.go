// Package metrics defines and registers all custom Prometheus metrics for the
// AuditSuite access-control service. It is the single source of truth for
// metric names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auditsuite"

// ── Authentication & authorization ───────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "not_active" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// AuthorizationDecisionsTotal counts guard decisions.
// Label:
//   - decision: "allowed", "unauthenticated" or "forbidden"
var AuthorizationDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_decisions_total",
		Help:      "Total number of authorization decisions, by outcome.",
	},
	[]string{"decision"},
)

// ── Audit log ─────────────────────────────────────────────────────────────────

// AuditWritesTotal counts audit writes against the primary store.
// Label:
//   - result: "ok" or "failed"
var AuditWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_writes_total",
		Help:      "Total number of audit events written, by result.",
	},
	[]string{"result"},
)

// AuditFallbackTotal counts events handed to and replayed from the dead-letter sink.
// Label:
//   - result: "stored", "lost", "replayed", "orphaned" or "parked"
var AuditFallbackTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_fallback_total",
		Help:      "Total number of audit events diverted to the fallback sink, by result.",
	},
	[]string{"result"},
)

// ── GDPR & retention ──────────────────────────────────────────────────────────

// GDPRRequestsTotal counts handled data-subject requests.
// Labels:
//   - type: access, rectification, erasure, portability, restriction
//   - status: completed, rejected or error
var GDPRRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gdpr_requests_total",
		Help:      "Total number of data-subject requests handled, by type and outcome.",
	},
	[]string{"type", "status"},
)

// GDPRRequestDuration measures how long a data-subject request takes.
// Label:
//   - type: the request type
var GDPRRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gdpr_request_duration_seconds",
		Help:      "Duration of data-subject request handling.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"type"},
)

// RetentionExpiredRows reports rows past retention at the last compliance check.
// Label:
//   - table: the table covered by the policy
var RetentionExpiredRows = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "retention_expired_rows",
		Help:      "Rows past their retention period at the last compliance check.",
	},
	[]string{"table"},
)

// RetentionPurgedRowsTotal counts rows removed by retention purges.
// Label:
//   - table: the table purged
var RetentionPurgedRowsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retention_purged_rows_total",
		Help:      "Total number of rows deleted by retention purges.",
	},
	[]string{"table"},
)

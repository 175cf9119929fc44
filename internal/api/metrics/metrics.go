// Package metrics defines and registers all custom Prometheus metrics for the
// PlaceQuest API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "placequest"

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionValidationsTotal counts bearer credential checks.
// Label:
//   - result: "ok", "anonymous" (soft mode without credential) or the failure
//     reason (e.g. "token_expired", "account_deactivated", "error")
var SessionValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "session_validations_total",
		Help:      "Total number of session token validations, by result.",
	},
	[]string{"result"},
)

// TokensIssuedTotal counts session tokens created by login.
var TokensIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "tokens_issued_total",
		Help:      "Total number of session tokens issued.",
	},
)

// SessionsRevokedTotal counts tokens deleted by logout.
var SessionsRevokedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "sessions_revoked_total",
		Help:      "Total number of session tokens revoked by logout.",
	},
)

// ── Identity metrics ──────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "active_session", "not_registered", "deactivated",
//     "invalid" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts registration attempts that passed the gate.
// Label:
//   - result: "success", "conflict", "invalid" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationGateRejectionsTotal counts requests refused by the shared-secret gate.
// Label:
//   - reason: "missing", "malformed", "length", "mismatch" or "unconfigured"
var RegistrationGateRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "registration_gate_rejections_total",
		Help:      "Total number of registration requests rejected by the shared-secret gate.",
	},
	[]string{"reason"},
)

// ── Touch queue metrics ───────────────────────────────────────────────────────

// TouchQueueDepth tracks pending last-used updates per dispatcher shard.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var TouchQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "touch_queue_depth",
		Help:      "Current number of last-used updates pending in each dispatcher shard.",
	},
	[]string{"worker_id"},
)

// TouchDroppedTotal counts last-used updates dropped because a shard was full.
var TouchDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "touch_dropped_total",
		Help:      "Total number of last-used updates dropped on a full queue.",
	},
)

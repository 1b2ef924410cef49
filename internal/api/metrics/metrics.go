// Package metrics defines and registers all custom Prometheus metrics for
// the order engine. It is the single source of truth for metric names,
// labels, and help strings. Metrics register with the default registry at
// import time via promauto; the /metrics endpoint exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "orderengine"

// ── Command metrics ───────────────────────────────────────────────────────────

// OrdersCreatedTotal counts newly posted orders.
var OrdersCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Total number of orders posted by dispatchers.",
	},
)

// TransitionsTotal counts committed status transitions.
// Label:
//   - action: the committed operation ("taken", "started", "completed", "cancelled", "rated")
var TransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total number of committed order transitions, by action.",
	},
	[]string{"action"},
)

// TransitionConflictsTotal counts rejected operations.
// Label:
//   - reason: short failure class ("not_available", "invalid_transition", "already_rated", "forbidden")
var TransitionConflictsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transition_conflicts_total",
		Help:      "Total number of order operations rejected by arbitration, by reason.",
	},
	[]string{"reason"},
)

// CommandDuration measures how long one arbitrated command takes end-to-end,
// including the wait for the per-order arbitration section.
// Label:
//   - action: the attempted operation
var CommandDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "command_duration_seconds",
		Help:      "Duration of order commands from entry to commit or rejection.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"action"},
)

// ── Feed metrics ──────────────────────────────────────────────────────────────

// FeedSubscribers tracks the current number of change-feed subscribers.
var FeedSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_subscribers",
		Help:      "Current number of active change-feed subscriptions.",
	},
)

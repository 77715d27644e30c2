package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики Scheduler'а напоминаний.
var (
	RemindersArmed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "focus_reminders_armed",
		Help: "Number of reminder timers currently armed",
	})

	RemindersArmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "focus_reminders_armed_total",
		Help: "Total reminder timers armed",
	})

	RemindersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "focus_reminders_cancelled_total",
		Help: "Total reminder timers cancelled by reconcile or shutdown",
	})

	RemindersFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "focus_reminders_fired_total",
		Help: "Total reminder timers that elapsed, by reminder kind",
	}, []string{"kind"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "focus_notifications_total",
		Help: "Notification emission attempts, by result (sent, suppressed, failed)",
	}, []string{"result"})

	SnapshotsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "focus_snapshots_ingested_total",
		Help: "Task snapshots ingested by the reminder scheduler, by trigger",
	}, []string{"trigger"})

	SnapshotTasksSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "focus_snapshot_tasks_skipped_total",
		Help: "Malformed task entries skipped while decoding snapshots",
	})

	InteractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "focus_interactions_total",
		Help: "Notification interactions handled, by action",
	}, []string{"action"})
)

// Метрики Task Source и API.
var (
	SnapshotsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "focus_snapshots_published_total",
		Help: "Task snapshots published by the task source, by trigger",
	}, []string{"trigger"})

	APIRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "focus_api_http_requests_total",
		Help: "Total HTTP requests handled by focus-api",
	})

	GatewayClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "focus_gateway_clients",
		Help: "Connected WebSocket clients",
	})
)

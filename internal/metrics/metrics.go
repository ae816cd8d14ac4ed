// Package metrics defines the Prometheus collectors for the conversation
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaira_events_processed_total",
			Help: "Total number of inbound events processed",
		},
		[]string{"channel", "outcome"},
	)

	EventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "kaira_event_duration_seconds",
			Help: "Duration of inbound event handling in seconds",
		},
		[]string{"channel"},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaira_messages_sent_total",
			Help: "Total number of outbound messages sent",
		},
		[]string{"channel", "kind"},
	)

	SendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaira_message_send_failures_total",
			Help: "Total number of outbound message sends that failed",
		},
		[]string{"channel", "kind"},
	)

	ProfileConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kaira_profile_version_conflicts_total",
			Help: "Total number of profile saves replayed after a version conflict",
		},
	)

	LoanDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaira_loan_decisions_total",
			Help: "Total number of loan records written, by status",
		},
		[]string{"status"},
	)

	Escalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kaira_agent_escalations_total",
			Help: "Total number of conversations handed off to a human agent",
		},
	)
)

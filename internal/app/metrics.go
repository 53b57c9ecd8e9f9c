package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

type reminderOutcome string

const (
	outcomeSent         reminderOutcome = "sent"
	outcomeSkipped      reminderOutcome = "skipped"
	outcomeGoalMet      reminderOutcome = "goal_met"
	outcomeFailed       reminderOutcome = "failed"
	outcomeTokenCleared reminderOutcome = "token_cleared"
)

var (
	reminderOutcomeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitewise",
		Subsystem: "reminder",
		Name:      "user_outcomes_total",
		Help:      "Per-user outcomes of calorie reminder runs.",
	}, []string{"outcome"})

	aggregateUpdateCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitewise",
		Subsystem: "aggregate",
		Name:      "updates_total",
		Help:      "User aggregate updates grouped by meal event type and result.",
	}, []string{"event_type", "result"})
)

func init() {
	prometheus.MustRegister(reminderOutcomeCounter, aggregateUpdateCounter)
}

func recordReminderOutcome(o reminderOutcome) {
	reminderOutcomeCounter.WithLabelValues(string(o)).Inc()
}

func recordAggregateUpdate(eventType, result string) {
	aggregateUpdateCounter.WithLabelValues(eventType, result).Inc()
}

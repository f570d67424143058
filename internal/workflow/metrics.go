package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activityAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_activity_attempts_total",
			Help: "Activity attempts by activity and outcome",
		},
		[]string{"activity", "outcome"},
	)

	workflowRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_workflow_runs_total",
			Help: "Lead processing workflow runs by outcome",
		},
		[]string{"outcome"},
	)

	leadsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_saved_total",
			Help: "Leads persisted, split by whether a new row was created",
		},
		[]string{"created"},
	)

	interpretationFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lead_interpretation_fallbacks_total",
			Help: "Completions that could not be parsed into a lead object",
		},
	)
)

func recordActivity(name, outcome string) {
	activityAttempts.WithLabelValues(name, outcome).Inc()
}

func recordRun(outcome string) {
	workflowRuns.WithLabelValues(outcome).Inc()
}

func recordSaved(created bool) {
	if created {
		leadsSaved.WithLabelValues("true").Inc()
		return
	}
	leadsSaved.WithLabelValues("false").Inc()
}

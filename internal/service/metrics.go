package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

var (
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attestation_console",
		Name:      "polls_total",
		Help:      "Number of poll rounds, by loop and result.",
	}, []string{"loop", "result"})

	pollDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attestation_console",
		Name:      "poll_duration_seconds",
		Help:      "Duration of a poll round, by loop.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"loop"})

	trackedAgents = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "attestation_console",
		Name:      "tracked_agents",
		Help:      "Number of agents in the view model, by state.",
	}, []string{"state"})

	agentStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "attestation_console",
		Name:      "agents_by_status",
		Help:      "Number of agents per operational state, as of the last chart render.",
	}, []string{"status"})

	staleResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attestation_console",
		Name:      "stale_responses_total",
		Help:      "Responses discarded because a newer one was already applied.",
	}, []string{"kind"})

	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attestation_console",
		Name:      "agent_actions_total",
		Help:      "Agent actions sent to the backend, by method and result.",
	}, []string{"method", "result"})
)

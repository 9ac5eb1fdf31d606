// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_commands_processed_total",
			Help: "Total number of commands pulled off the queue, by final outcome",
		},
		[]string{"outcome"},
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_command_duration_seconds",
			Help: "End-to-end duration of command processing in seconds",
		},
		[]string{"kind"},
	)

	SecurityRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_security_rejections_total",
			Help: "Total number of envelopes rejected by the security gate",
		},
		[]string{"rule_class"},
	)

	PipelineRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_retries_total",
			Help: "Total number of pipeline-level retries",
		},
	)

	ActionsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_actions_dispatched_total",
			Help: "Total number of actions executed, by type and outcome",
		},
		[]string{"action_type", "outcome"},
	)
)

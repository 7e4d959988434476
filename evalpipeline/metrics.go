package evalpipeline

import (
	"github.com/permaweb/cu/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// evaluationCounter tracks every evaluation the pipeline performs, broken
// down by the stream it came from, the kind of message, and whether the
// module reported an error.
var evaluationCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cu",
		Name:      "evaluations_total",
		Help:      "Total number of messages evaluated by the pipeline.",
	},
	[]string{"stream_type", "message_type", "process_error"},
)

func streamType(cron bool) string {
	if cron {
		return "cron"
	}
	return "message"
}

func messageType(assignment bool) string {
	if assignment {
		return "assignment"
	}
	return "message"
}

func processErrorLabel(output domain.Output) string {
	if output.Error != "" {
		return "true"
	}
	return "false"
}

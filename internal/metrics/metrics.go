package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle outcomes
const (
	StatusOK      = "ok"
	StatusTimeout = "timeout"
	StatusError   = "error"
)

var (
	// SyncCycles counts completed sync loop cycles by outcome
	SyncCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huefri_sync_cycles_total",
			Help: "Total number of sync loop cycles by outcome",
		},
		[]string{"status"},
	)

	// Propagations counts watched-light changes pushed to the other hub
	Propagations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huefri_propagations_total",
			Help: "Total number of state propagations from one hub to the other",
		},
		[]string{"source", "target"},
	)

	// EchoSuppressed counts detected changes ignored because the other hub wrote recently
	EchoSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huefri_echo_suppressed_total",
			Help: "Total number of changes skipped inside the echo suppression window",
		},
		[]string{"hub"},
	)

	// UnknownColors counts propagations skipped because the color is not in the palette
	UnknownColors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huefri_unknown_color_total",
			Help: "Total number of propagations skipped for colors outside the palette",
		},
		[]string{"hub"},
	)

	// ManualCommands counts manual control commands by hub and command name
	ManualCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huefri_manual_commands_total",
			Help: "Total number of manual control commands executed",
		},
		[]string{"hub", "command", "status"},
	)

	// HubRequestDuration tracks the duration of requests to a hub in seconds
	HubRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "huefri_hub_request_duration_seconds",
			Help:    "Duration of hub requests in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"hub", "op", "status"},
	)
)

// RecordCycle records the outcome of one sync cycle.
func RecordCycle(status string) {
	SyncCycles.WithLabelValues(status).Inc()
}

// RecordPropagation records a push from source to target.
func RecordPropagation(source, target string) {
	Propagations.WithLabelValues(source, target).Inc()
}

// RecordEchoSuppressed records a suppressed change on hub.
func RecordEchoSuppressed(hub string) {
	EchoSuppressed.WithLabelValues(hub).Inc()
}

// RecordUnknownColor records a skipped propagation on hub.
func RecordUnknownColor(hub string) {
	UnknownColors.WithLabelValues(hub).Inc()
}

// RecordManualCommand records a manual command and whether it failed.
func RecordManualCommand(hub, command string, err error) {
	ManualCommands.WithLabelValues(hub, command, statusOf(err)).Inc()
}

// ObserveRequest records the duration of a hub request started at start.
func ObserveRequest(hub, op string, start time.Time, err error) {
	HubRequestDuration.WithLabelValues(hub, op, statusOf(err)).Observe(time.Since(start).Seconds())
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

package upgrade

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const metricsNamespace = "kuberoll"

// Metrics records run events as Prometheus series on its own registry.
// It implements Observer.
type Metrics struct {
	registry *prometheus.Registry

	nodesUpgraded      *prometheus.CounterVec
	nodeFailures       *prometheus.CounterVec
	stepFailures       *prometheus.CounterVec
	bestEffortFailures *prometheus.CounterVec
	stepDuration       *prometheus.HistogramVec
	nodeDuration       *prometheus.HistogramVec
	phase              *prometheus.GaugeVec
}

// NewMetrics creates the run metrics and registers them on a new registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		nodesUpgraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "upgrade",
				Name:      "nodes_upgraded_total",
				Help:      "Number of nodes that reached Ready by role",
			},
			[]string{"role"},
		),
		nodeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "upgrade",
				Name:      "node_failures_total",
				Help:      "Number of nodes whose upgrade failed by role",
			},
			[]string{"role"},
		),
		stepFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "upgrade",
				Name:      "step_failures_total",
				Help:      "Number of fatal step failures by step",
			},
			[]string{"step"},
		),
		bestEffortFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "upgrade",
				Name:      "best_effort_failures_total",
				Help:      "Number of ignored best-effort step failures by step",
			},
			[]string{"step"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "upgrade",
				Name:      "step_duration_seconds",
				Help:      "Duration of upgrade steps in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 500ms to ~17min
			},
			[]string{"step"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "upgrade",
				Name:      "node_duration_seconds",
				Help:      "Duration of a complete node upgrade in seconds",
				Buckets:   prometheus.ExponentialBuckets(10, 2, 9), // 10s to ~43min
			},
			[]string{"role"},
		),
		phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "upgrade",
				Name:      "phase",
				Help:      "Current run phase (1 for the active phase, 0 otherwise)",
			},
			[]string{"phase"},
		),
	}

	m.registry.MustRegister(
		m.nodesUpgraded,
		m.nodeFailures,
		m.stepFailures,
		m.bestEffortFailures,
		m.stepDuration,
		m.nodeDuration,
		m.phase,
	)
	for _, p := range Phases {
		m.phase.WithLabelValues(string(p)).Set(0)
	}
	return m
}

// Registry returns the registry holding the run metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Event implements Observer.
func (m *Metrics) Event(e Event) {
	switch e.Type {
	case EventPhaseStarted:
		m.setPhase(e.Phase)
	case EventPhaseCompleted:
		if e.Phase == PhaseDone {
			m.setPhase(PhaseDone)
		}
	case EventPhaseFailed:
		m.setPhase(PhaseAborted)
	case EventNodeCompleted:
		m.nodesUpgraded.WithLabelValues(e.Role).Inc()
		m.nodeDuration.WithLabelValues(e.Role).Observe(e.Duration.Seconds())
	case EventNodeFailed:
		m.nodeFailures.WithLabelValues(e.Role).Inc()
	case EventStepCompleted:
		m.stepDuration.WithLabelValues(string(e.Step)).Observe(e.Duration.Seconds())
	case EventStepFailed:
		m.stepFailures.WithLabelValues(string(e.Step)).Inc()
	case EventStepBestEffortFailed:
		m.bestEffortFailures.WithLabelValues(string(e.Step)).Inc()
	}
}

// Progress implements Observer.
func (m *Metrics) Progress(Phase, int, int) {}

func (m *Metrics) setPhase(active Phase) {
	for _, p := range Phases {
		v := 0.0
		if p == active {
			v = 1
		}
		m.phase.WithLabelValues(string(p)).Set(v)
	}
}

// Push sends the current metrics to a Prometheus Pushgateway, replacing
// any metrics previously pushed under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

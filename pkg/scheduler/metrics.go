package scheduler

import "github.com/prometheus/client_golang/prometheus"

// metrics tracks the scheduler's function lifecycle for observability.
type metrics struct {
	registered prometheus.Counter
	started    prometheus.Counter
	finished   *prometheus.CounterVec
	running    prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		registered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "espalier",
			Subsystem: "scheduler",
			Name:      "functions_registered_total",
			Help:      "Number of batch functions accepted into the registry.",
		}),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "espalier",
			Subsystem: "scheduler",
			Name:      "functions_started_total",
			Help:      "Number of batch functions submitted to the worker pool.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "espalier",
			Subsystem: "scheduler",
			Name:      "functions_finished_total",
			Help:      "Number of batch functions reaching a terminal status.",
		}, []string{"status"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "espalier",
			Subsystem: "scheduler",
			Name:      "functions_running",
			Help:      "Number of batch functions currently executing.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.registered, m.started, m.finished, m.running)
	}
	return m
}

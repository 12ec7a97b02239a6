// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// A rowexpand run is a short-lived batch job, so there is nothing to scrape;
// collectors are kept in a private registry and pushed to a Pushgateway when
// the run ends. The Pushgateway "job" grouping key carries the job name.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"rowexpand/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // step, status
	stepDuration *prometheus.SummaryVec // step, status
	cellCounter  *prometheus.CounterVec // kind
	outputRows   prometheus.Counter
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name (usually the job from the config).
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "rowexpand"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Run step executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Duration of run steps in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	cellCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.CellsTotal,
			Help: "Count cells by outcome (scanned, positive, skipped, fractional).",
		},
		[]string{"kind"},
	)
	outputRows := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: metrics.OutputRowsTotal,
			Help: "Expanded rows generated for the destination.",
		},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter": stepCounter,
		"step summary": stepDuration,
		"cell counter": cellCounter,
		"output rows":  outputRows,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		cellCounter:  cellCounter,
		outputRows:   outputRows,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case metrics.CellsTotal:
		if b.cellCounter == nil {
			return
		}
		b.cellCounter.WithLabelValues(labels["kind"]).Add(delta)

	case metrics.OutputRowsTotal:
		if b.outputRows == nil {
			return
		}
		b.outputRows.Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}

// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. It maps the migration's stage/record labels onto
// client_golang collectors and pushes them to a Pushgateway instead of
// exposing a scrape endpoint, which suits a run-to-completion batch job.
// All Prometheus-specific dependencies live here so the rest of the
// project depends only on metrics.Backend.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"shopmigrate/internal/metrics"
)

// Backend pushes migration metrics to a Prometheus Pushgateway.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec // migration_stage_total
	stageDuration *prometheus.SummaryVec // migration_stage_duration_seconds
	recordCounter *prometheus.CounterVec // migration_records_total
	batchCounter  *prometheus.CounterVec // migration_batches_total
}

// NewBackend constructs a Pushgateway backend. jobName becomes the
// Pushgateway "job" grouping key.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "shopmigrate"
	}

	reg := prometheus.NewRegistry()

	stageCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_stage_total",
			Help: "Stage executions, partitioned by stage and status.",
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "migration_stage_duration_seconds",
			Help:       "Stage duration in seconds, partitioned by stage and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"stage", "status"},
	)
	recordCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_records_total",
			Help: "Record-level counts per stage and kind (processed, created, adopted, skipped, warnings).",
		},
		[]string{"stage", "kind"},
	)
	batchCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_batches_total",
			Help: "Committed batches per stage.",
		},
		[]string{"stage"},
	)

	for name, c := range map[string]prometheus.Collector{
		"stage counter":  stageCounter,
		"stage summary":  stageDuration,
		"record counter": recordCounter,
		"batch counter":  batchCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		stageCounter:  stageCounter,
		stageDuration: stageDuration,
		recordCounter: recordCounter,
		batchCounter:  batchCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "migration_stage_total":
		b.stageCounter.WithLabelValues(labels["stage"], labels["status"]).Add(delta)
	case "migration_records_total":
		b.recordCounter.WithLabelValues(labels["stage"], labels["kind"]).Add(delta)
	case "migration_batches_total":
		b.batchCounter.WithLabelValues(labels["stage"]).Add(delta)
	}
}

func (b *Backend) ObserveDuration(name string, value float64, labels metrics.Labels) {
	if name == "migration_stage_duration_seconds" {
		b.stageDuration.WithLabelValues(labels["stage"], labels["status"]).Observe(value)
	}
}

// Flush pushes the registry to the Pushgateway.
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}

// Package metrics exports the last run's outcomes in the node_exporter
// textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"fichaje/internal/attendance"
	"fichaje/internal/logging"
)

const namespace = "fichaje"

type runCollector struct {
	registry   *prometheus.Registry
	outcomes   *prometheus.GaugeVec
	absences   *prometheus.GaugeVec
	undetected prometheus.Gauge
	timestamp  prometheus.Gauge
	duration   prometheus.Gauge
	dryRun     prometheus.Gauge
}

func newRunCollector() *runCollector {
	c := &runCollector{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_outcomes",
			Help:      "Dates of the last run by outcome status and skip reason.",
		}, []string{"status", "reason"}),
		absences: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_absences",
			Help:      "Absences detected in the last run's window.",
		}, []string{"reason", "kind"}),
		undetected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_detection_errors",
			Help:      "Dates of the last run whose absence state could not be read.",
		}),
		timestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		dryRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_dry_run",
			Help:      "1 if the last run did not write anything.",
		}),
	}
	c.registry.MustRegister(c.outcomes, c.absences, c.undetected, c.timestamp, c.duration, c.dryRun)
	return c
}

func (c *runCollector) observe(r *attendance.RunReport) {
	for _, o := range r.Outcomes {
		c.outcomes.WithLabelValues(o.Status.String(), o.Skip.String()).Inc()
	}
	for _, d := range r.Absences.Dates() {
		rec := r.Absences[d]
		c.absences.WithLabelValues(rec.Reason.String(), rec.Kind.String()).Inc()
	}
	c.undetected.Set(float64(len(r.DetectionErrors)))
	c.timestamp.Set(float64(r.FinishedAt.Unix()))
	c.duration.Set(r.Duration().Seconds())
	if r.DryRun {
		c.dryRun.Set(1)
	}
}

// WriteTextfile replaces path with gauges describing r.
func WriteTextfile(path string, r *attendance.RunReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	c := newRunCollector()
	c.observe(r)
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	logging.Metrics("Metrics written to %s", path)
	return nil
}

package worker

import (
	"github.com/airenas/spacego/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "spacego"

var (
	jobsDone = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "jobs_completed_total",
		Help:      "Total count of completed transcription jobs",
	})
	jobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "jobs_failed_total",
		Help:      "Total count of failed job attempts",
	})
	jobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "job_duration_seconds",
		Help:      "Duration of one pipeline run",
		Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 3600},
	})
)

func registerMetrics() error {
	if err := metrics.Register(jobsDone); err != nil {
		return err
	}
	if err := metrics.Register(jobsFailed); err != nil {
		return err
	}
	return metrics.Register(jobDuration)
}

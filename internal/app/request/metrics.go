package request

import (
	"github.com/airenas/spacego/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "request_service"

func (m *serviceMetric) init() {
	if m.transcribeResponseDur == nil {
		m.transcribeResponseDur = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transcribe_request_durations_seconds",
				Help:      "Transcribe request latency distributions.",
			}, nil)
	}
	if m.statusResponseDur == nil {
		m.statusResponseDur = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "status_request_durations_seconds",
				Help:      "Status request latency distributions.",
			}, nil)
	}
}

func initMetrics(data *ServiceData) error {
	data.metrics.init()
	if err := metrics.Register(data.metrics.transcribeResponseDur); err != nil {
		return err
	}
	return metrics.Register(data.metrics.statusResponseDur)
}

package chat

import (
	"github.com/airenas/spacego/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chat_service"

func (m *serviceMetric) init() {
	if m.chatResponseDur == nil {
		m.chatResponseDur = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chat_request_durations_seconds",
				Help:      "Chat request latency distributions.",
			}, nil)
	}
}

func initMetrics(data *ServiceData) error {
	data.metrics.init()
	return metrics.Register(data.metrics.chatResponseDur)
}

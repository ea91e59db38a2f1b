package reader

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type serviceMetrics struct {
	sessionsStarted prometheus.Counter
	sessionsLive    prometheus.Gauge
	framesSubmitted *prometheus.CounterVec
	recordsEmitted  prometheus.Counter
}

var (
	metricsInstance *serviceMetrics
	metricsOnce     sync.Once
)

func newServiceMetrics() *serviceMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &serviceMetrics{
			sessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
				Name: "card_reader_sessions_started_total",
				Help: "Total number of remote capture sessions started",
			}),
			sessionsLive: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "card_reader_sessions_live",
				Help: "Number of remote capture sessions that can still receive frames",
			}),
			framesSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "card_reader_session_frames_total",
				Help: "Total number of frames submitted to remote capture sessions",
			}, []string{"result"}),
			recordsEmitted: promauto.NewCounter(prometheus.CounterOpts{
				Name: "card_reader_session_records_total",
				Help: "Total number of card records resolved by remote capture sessions",
			}),
		}
	})
	return metricsInstance
}

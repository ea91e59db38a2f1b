package capture

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame skip reasons
const (
	skipPaused           = "paused"
	skipRecognitionError = "recognition_error"
	skipStopped          = "stopped"
)

type pipelineMetrics struct {
	framesProcessed     prometheus.Counter
	framesSkipped       *prometheus.CounterVec
	recordsEmitted      *prometheus.CounterVec
	recognitionDuration prometheus.Histogram
}

// Singleton pattern for metrics (avoid double registration in tests).
var (
	metricsInstance *pipelineMetrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

// newPipelineMetrics initializes and registers Prometheus metrics using singleton pattern.
func newPipelineMetrics() *pipelineMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &pipelineMetrics{
			framesProcessed: promauto.With(defaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "card_reader_frames_processed_total",
				Help: "Total number of frames run through recognition and extraction",
			}),
			framesSkipped: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "card_reader_frames_skipped_total",
				Help: "Total number of frames dropped before extraction",
			}, []string{"reason"}),
			recordsEmitted: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "card_reader_records_emitted_total",
				Help: "Total number of card records emitted",
			}, []string{"expiration"}),
			recognitionDuration: promauto.With(defaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "card_reader_recognition_duration_seconds",
				Help:    "Time taken to recognize the text of a frame",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			}),
		}
	})
	return metricsInstance
}

// RecordFrame counts a frame that made it through extraction
func (m *pipelineMetrics) RecordFrame() {
	m.framesProcessed.Inc()
}

// RecordSkip counts a dropped frame
func (m *pipelineMetrics) RecordSkip(reason string) {
	m.framesSkipped.WithLabelValues(reason).Inc()
}

// RecordEmission counts an emitted record
func (m *pipelineMetrics) RecordEmission(hasExpiration bool) {
	label := "absent"
	if hasExpiration {
		label = "present"
	}
	m.recordsEmitted.WithLabelValues(label).Inc()
}

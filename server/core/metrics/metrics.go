package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "annotator"

// Recorder receives the service's operational counters
type Recorder interface {
	// UploadFinished counts a finished upload request by outcome ("success" or an error kind)
	UploadFinished(outcome string)
	// FramesAnnotated adds to the number of frames written to outputs
	FramesAnnotated(n int)
	// PipelineDuration observes the wall time of one annotation run
	PipelineDuration(d time.Duration)
	// OutputsExpired adds to the number of outputs removed by retention
	OutputsExpired(n int)
}

// PrometheusRecorder implements Recorder with Prometheus collectors
type PrometheusRecorder struct {
	uploads  *prometheus.CounterVec
	frames   prometheus.Counter
	duration prometheus.Histogram
	expired  prometheus.Counter
}

// NewPrometheusRecorder creates the collectors and registers them with reg
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload requests by outcome.",
		}, []string{"outcome"}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_annotated_total",
			Help:      "Frames run through detection and written to an output.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of a full annotation run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outputs_expired_total",
			Help:      "Outputs removed by the retention sweeper.",
		}),
	}

	reg.MustRegister(r.uploads, r.frames, r.duration, r.expired)
	return r
}

func (r *PrometheusRecorder) UploadFinished(outcome string) {
	r.uploads.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRecorder) FramesAnnotated(n int) {
	r.frames.Add(float64(n))
}

func (r *PrometheusRecorder) PipelineDuration(d time.Duration) {
	r.duration.Observe(d.Seconds())
}

func (r *PrometheusRecorder) OutputsExpired(n int) {
	r.expired.Add(float64(n))
}

type nopRecorder struct{}

// NopRecorder discards all measurements
var NopRecorder Recorder = nopRecorder{}

func (nopRecorder) UploadFinished(string)          {}
func (nopRecorder) FramesAnnotated(int)            {}
func (nopRecorder) PipelineDuration(time.Duration) {}
func (nopRecorder) OutputsExpired(int)             {}

package jobqueue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts job outcomes per job type.
type Metrics struct {
	Claimed   *prometheus.CounterVec
	Succeeded *prometheus.CounterVec
	Failed    *prometheus.CounterVec
	Retried   *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
}

// NewMetrics registers the job queue collectors with reg. Pass
// prometheus.DefaultRegisterer to expose them on /metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Claimed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stocker_jobs_claimed_total",
			Help: "Jobs claimed by a worker",
		}, []string{"job_type"}),
		Succeeded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stocker_jobs_succeeded_total",
			Help: "Jobs that finished successfully",
		}, []string{"job_type"}),
		Failed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stocker_jobs_failed_total",
			Help: "Jobs that failed with no attempts left",
		}, []string{"job_type"}),
		Retried: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stocker_jobs_retried_total",
			Help: "Failed attempts that were requeued",
		}, []string{"job_type"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stocker_job_duration_seconds",
			Help:    "Handler run time per attempt",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"job_type", "outcome"}),
	}
}

func (m *Metrics) observe(jobType, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(jobType, outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) claimed(jobType string) {
	if m != nil {
		m.Claimed.WithLabelValues(jobType).Inc()
	}
}

func (m *Metrics) succeeded(jobType string) {
	if m != nil {
		m.Succeeded.WithLabelValues(jobType).Inc()
	}
}

func (m *Metrics) failed(jobType string, status Status) {
	if m == nil {
		return
	}
	if status == StatusQueued {
		m.Retried.WithLabelValues(jobType).Inc()
		return
	}
	m.Failed.WithLabelValues(jobType).Inc()
}

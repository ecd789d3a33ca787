package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs            *prometheus.CounterVec
	failures        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	companyFailures *prometheus.CounterVec
	periodsClosed   *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddCompanyFailure counts a company whose step of the daily pass failed.
func (m *Metrics) AddCompanyFailure(job, companyID string) {
	if m == nil {
		return
	}
	m.companyFailures.WithLabelValues(job, companyID).Inc()
}

// AddPeriodsClosed counts periods closed by the daily pass for a company.
func (m *Metrics) AddPeriodsClosed(companyID string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.periodsClosed.WithLabelValues(companyID).Add(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitecomply_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitecomply_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sitecomply_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	companyFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitecomply_job_company_failures_total",
		Help: "Companies whose step of a scheduled pass failed.",
	}, []string{"job", "company"})
	periodsClosed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitecomply_periods_closed_total",
		Help: "Compliance periods closed by the scheduled pass.",
	}, []string{"company"})
	registerer.MustRegister(runs, failures, duration, companyFailures, periodsClosed)
	return &Metrics{
		runs:            runs,
		failures:        failures,
		duration:        duration,
		companyFailures: companyFailures,
		periodsClosed:   periodsClosed,
	}
}

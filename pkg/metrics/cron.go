package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records outcomes of maintenance jobs.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	rows     *prometheus.CounterVec
	backlog  *prometheus.GaugeVec
}

// NewCronJobMetrics registers the maintenance job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_job_duration_seconds",
		Help:    "Duration of maintenance jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_runs_total",
		Help: "Maintenance job executions by outcome.",
	}, []string{"job", "outcome"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_rows_deleted_total",
		Help: "Rows purged by maintenance jobs.",
	}, []string{"job"})
	backlog := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "outbox_dlq_backlog",
		Help: "Dead-lettered outbox rows awaiting replay, by reason.",
	}, []string{"reason"})
	reg.MustRegister(duration, runs, rows, backlog)
	return &CronJobMetrics{duration: duration, runs: runs, rows: rows, backlog: backlog}
}

func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), "success").Inc()
}

func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), "failure").Inc()
}

// AddRowsDeleted counts purged rows; non-positive values are ignored.
func (c *CronJobMetrics) AddRowsDeleted(job string, rows int64) {
	if c == nil || c.rows == nil || rows <= 0 {
		return
	}
	c.rows.WithLabelValues(normalizeLabel(job)).Add(float64(rows))
}

// SetDLQBacklog replaces the backlog gauge with the latest per-reason counts.
func (c *CronJobMetrics) SetDLQBacklog(counts map[string]int64) {
	if c == nil || c.backlog == nil {
		return
	}
	c.backlog.Reset()
	for reason, n := range counts {
		c.backlog.WithLabelValues(normalizeLabel(reason)).Set(float64(n))
	}
}

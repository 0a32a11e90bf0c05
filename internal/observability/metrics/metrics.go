// Package metrics groups the prometheus collectors for background work.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type SchedulerMetrics struct {
	jobRuns     *prometheus.CounterVec
	jobErrors   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

var (
	schedulerOnce sync.Once
	scheduler     *SchedulerMetrics
)

func Scheduler() *SchedulerMetrics {
	schedulerOnce.Do(func() {
		scheduler = &SchedulerMetrics{
			jobRuns: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "caseflow_scheduler_job_runs_total",
				Help: "Scheduler job executions by job name.",
			}, []string{"job"}),
			jobErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "caseflow_scheduler_job_errors_total",
				Help: "Scheduler job failures by job name.",
			}, []string{"job"}),
			jobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "caseflow_scheduler_job_duration_seconds",
				Help:    "Scheduler job wall time by job name.",
				Buckets: prometheus.DefBuckets,
			}, []string{"job"}),
		}
	})
	return scheduler
}

func (m *SchedulerMetrics) IncJobRun(job string)   { m.jobRuns.WithLabelValues(job).Inc() }
func (m *SchedulerMetrics) IncJobError(job string) { m.jobErrors.WithLabelValues(job).Inc() }

func (m *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

type SynchronizerMetrics struct {
	paymentsCreated prometheus.Counter
	paymentsDeleted prometheus.Counter
	syncErrors      prometheus.Counter
}

var (
	synchronizerOnce sync.Once
	synchronizer     *SynchronizerMetrics
)

func Synchronizer() *SynchronizerMetrics {
	synchronizerOnce.Do(func() {
		synchronizer = &SynchronizerMetrics{
			paymentsCreated: promauto.NewCounter(prometheus.CounterOpts{
				Name: "caseflow_payments_created_total",
				Help: "Payments created by generate/synchronize calls.",
			}),
			paymentsDeleted: promauto.NewCounter(prometheus.CounterOpts{
				Name: "caseflow_payments_deleted_total",
				Help: "Unpaid payments removed by synchronize calls.",
			}),
			syncErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "caseflow_payment_sync_errors_total",
				Help: "Failed generate/synchronize calls.",
			}),
		}
	})
	return synchronizer
}

func (m *SynchronizerMetrics) AddPaymentsCreated(n int) {
	if n > 0 {
		m.paymentsCreated.Add(float64(n))
	}
}

func (m *SynchronizerMetrics) AddPaymentsDeleted(n int) {
	if n > 0 {
		m.paymentsDeleted.Add(float64(n))
	}
}

func (m *SynchronizerMetrics) IncSyncError() { m.syncErrors.Inc() }

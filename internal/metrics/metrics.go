// Package metrics exposes Prometheus collectors for the coordinator.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	submitAcceptedTotal     prometheus.Counter
	submitDuplicatesTotal   prometheus.Counter
	submitSendFailuresTotal prometheus.Counter
	tasksRequeuedTotal      prometheus.Counter
	tasksDoneTotal          prometheus.Counter
	drainErrorsTotal        *prometheus.CounterVec
	workersByState          *prometheus.GaugeVec
	tasksByStatus           *prometheus.GaugeVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		submitAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_submit_accepted_total",
			Help: "Total URLs newly accepted into the frontier.",
		})

		submitDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_submit_duplicates_total",
			Help: "Total submitted URLs rejected as already-seen.",
		})

		submitSendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_submit_send_failures_total",
			Help: "Total queue sends that failed after a URL entered the dedup set.",
		})

		tasksRequeuedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_tasks_requeued_total",
			Help: "Total timed-out tasks resent to the work queue by the sweep.",
		})

		tasksDoneTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_tasks_done_total",
			Help: "Total tasks terminally reported as done.",
		})

		drainErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coordinator_drain_errors_total",
				Help: "Total transient errors in coordinator drain loops, labeled by loop.",
			},
			[]string{"loop"},
		)

		workersByState = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coordinator_workers",
				Help: "Known workers, labeled by role and liveness state.",
			},
			[]string{"role", "state"},
		)

		tasksByStatus = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coordinator_tasks",
				Help: "Tracked work items, labeled by status.",
			},
			[]string{"status"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSubmit records the outcome of one frontier submission batch.
func ObserveSubmit(accepted, duplicates, sendFailures int) {
	submitAcceptedTotal.Add(float64(accepted))
	submitDuplicatesTotal.Add(float64(duplicates))
	submitSendFailuresTotal.Add(float64(sendFailures))
}

// ObserveRequeue counts tasks resent by one sweep pass.
func ObserveRequeue(n int) {
	tasksRequeuedTotal.Add(float64(n))
}

// ObserveDone counts one terminal task report.
func ObserveDone() {
	tasksDoneTotal.Inc()
}

// ObserveDrainError counts a transient failure in the named drain loop.
func ObserveDrainError(loop string) {
	drainErrorsTotal.WithLabelValues(loop).Inc()
}

// SetWorkerCounts publishes the liveness aggregate for one role.
func SetWorkerCounts(role string, active, inactive int) {
	workersByState.WithLabelValues(role, "active").Set(float64(active))
	workersByState.WithLabelValues(role, "inactive").Set(float64(inactive))
}

// SetTaskCount publishes the tracker population for one status.
func SetTaskCount(status string, n int) {
	tasksByStatus.WithLabelValues(status).Set(float64(n))
}

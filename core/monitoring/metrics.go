package monitoring

import (
	"strconv"
	"time"

	"robot-training-hub/core/models"

	prom "github.com/prometheus/client_golang/prometheus"
)

const promNamespace = "robot_training_hub"

var jobStatuses = []models.JobStatus{
	models.JobStatusQueued,
	models.JobStatusRunning,
	models.JobStatusCompleted,
	models.JobStatusFailed,
}

// Metrics holds the Prometheus collectors of the service
type Metrics struct {
	jobsByStatus  *prom.GaugeVec
	activeRunners prom.Gauge
	epochs        prom.Counter
	epochReward   prom.Histogram
	epochLoss     prom.Histogram
	runsFinished  *prom.CounterVec
	wsClients     prom.Gauge
	wsDropped     prom.Counter
	httpRequests  *prom.CounterVec
	httpDurations *prom.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prom.Registerer) *Metrics {
	m := &Metrics{
		jobsByStatus: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: promNamespace,
			Subsystem: "jobs",
			Name:      "by_status",
			Help:      "number of training jobs per status",
		}, []string{"status"}),
		activeRunners: prom.NewGauge(prom.GaugeOpts{
			Namespace: promNamespace,
			Subsystem: "simulator",
			Name:      "active_runners",
			Help:      "training runs currently ticking",
		}),
		epochs: prom.NewCounter(prom.CounterOpts{
			Namespace: promNamespace,
			Subsystem: "simulator",
			Name:      "epochs_total",
			Help:      "epochs simulated across all jobs",
		}),
		epochReward: prom.NewHistogram(prom.HistogramOpts{
			Namespace: promNamespace,
			Subsystem: "simulator",
			Name:      "epoch_reward",
			Help:      "reward reported per epoch",
			Buckets:   prom.LinearBuckets(200, 50, 7),
		}),
		epochLoss: prom.NewHistogram(prom.HistogramOpts{
			Namespace: promNamespace,
			Subsystem: "simulator",
			Name:      "epoch_loss",
			Help:      "loss reported per epoch",
			Buckets:   prom.ExponentialBuckets(0.001, 2, 8),
		}),
		runsFinished: prom.NewCounterVec(prom.CounterOpts{
			Namespace: promNamespace,
			Subsystem: "simulator",
			Name:      "runs_finished_total",
			Help:      "training runs that reached a terminal status",
		}, []string{"status"}),
		wsClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: promNamespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "connected websocket clients",
		}),
		wsDropped: prom.NewCounter(prom.CounterOpts{
			Namespace: promNamespace,
			Subsystem: "ws",
			Name:      "dropped_messages_total",
			Help:      "events skipped because a client send buffer was full",
		}),
		httpRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: promNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "handled HTTP requests",
		}, []string{"method", "route", "code"}),
		httpDurations: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: promNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "timings for HTTP requests",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.jobsByStatus,
		m.activeRunners,
		m.epochs,
		m.epochReward,
		m.epochLoss,
		m.runsFinished,
		m.wsClients,
		m.wsDropped,
		m.httpRequests,
		m.httpDurations,
	)
	return m
}

// ObserveEpoch records one simulated epoch
func (m *Metrics) ObserveEpoch(e models.EpochMetrics) {
	m.epochs.Inc()
	m.epochReward.Observe(e.Reward)
	m.epochLoss.Observe(e.Loss)
}

// ObserveFinished records a run reaching a terminal status
func (m *Metrics) ObserveFinished(status models.JobStatus) {
	m.runsFinished.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) SetActiveRunners(n int) {
	m.activeRunners.Set(float64(n))
}

func (m *Metrics) SetClients(n int) {
	m.wsClients.Set(float64(n))
}

func (m *Metrics) MessageDropped() {
	m.wsDropped.Inc()
}

// ObserveRequest records a handled HTTP request under its route template
func (m *Metrics) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDurations.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SetJobCounts publishes the per-status job totals; missing statuses are reported as zero
func (m *Metrics) SetJobCounts(counts map[models.JobStatus]int) {
	for _, s := range jobStatuses {
		m.jobsByStatus.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

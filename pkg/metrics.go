package pkg

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

// MetricsProcessor records per task and host counters and durations.
type MetricsProcessor struct {
	NoopProcessor

	executions *prometheus.CounterVec
	errors     *prometheus.CounterVec
	changes    *prometheus.CounterVec
	duration   *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
}

// NewMetricsProcessor registers its metrics on reg.
func NewMetricsProcessor(reg prometheus.Registerer) *MetricsProcessor {
	factory := promauto.With(reg)
	labels := []string{"task", "host"}
	return &MetricsProcessor{
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "task_executions_total",
			Help: "The total number of task executions",
		}, labels),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "task_errors_total",
			Help: "The total number of task errors",
		}, labels),
		changes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "task_changes_total",
			Help: "The total number of tasks that made changes",
		}, labels),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "task_duration_seconds",
			Help:    "The duration of task executions in seconds",
			Buckets: prometheus.DefBuckets,
		}, labels),
		started: make(map[string]time.Time),
	}
}

func instanceKey(task *Task, host *types.Host) string {
	return task.Name + "\x00" + host.Name
}

func (m *MetricsProcessor) TaskInstanceStarted(task *Task, host *types.Host) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started[instanceKey(task, host)] = time.Now()
}

func (m *MetricsProcessor) TaskInstanceCompleted(task *Task, host *types.Host, result *MultiResult) {
	labels := prometheus.Labels{"task": task.Name, "host": host.Name}
	m.executions.With(labels).Inc()
	if result.Failed() {
		m.errors.With(labels).Inc()
	}
	if result.Changed() {
		m.changes.With(labels).Inc()
	}

	key := instanceKey(task, host)
	m.mu.Lock()
	start, ok := m.started[key]
	delete(m.started, key)
	m.mu.Unlock()
	if ok {
		m.duration.With(labels).Observe(time.Since(start).Seconds())
	}
}

package telemetry

import (
	"net/http"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinytelemetry/usetrack/internal/collector"
	"github.com/tinytelemetry/usetrack/internal/model"
)

const namespace = "usetrack"

// Recorder exports session activity as Prometheus metrics. It implements
// collector.Observer and is subscribed to the collector at startup.
//
// Counters and the duration histogram are fed by events. The test mode and
// active task gauges are read from src at scrape time, since observer
// callbacks from concurrent callers may arrive out of order.
type Recorder struct {
	collector.NopObserver

	once          sync.Once
	testMode      prom.GaugeFunc
	activeTasks   prom.GaugeFunc
	tasksStarted  prom.Counter
	tasksEnded    prom.Counter
	taskDuration  prom.Histogram
	events        *prom.CounterVec
	helpedTasks   prom.Counter
	sessionResets prom.Counter
}

// NewRecorder constructs and registers the metrics on reg (idempotent).
// The state gauges read src on every scrape.
func NewRecorder(reg *prom.Registry, src model.TaskReader) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{}
	r.once.Do(func() {
		r.testMode = prom.NewGaugeFunc(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "test_mode_enabled",
			Help:      "1 while usability test mode is enabled",
		}, func() float64 {
			if src != nil && src.IsTestMode() {
				return 1
			}
			return 0
		})
		r.activeTasks = prom.NewGaugeFunc(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "active_tasks",
			Help:      "Number of tasks currently being measured (0 or 1)",
		}, func() float64 {
			if src == nil {
				return 0
			}
			if _, ok := src.CurrentTask(); ok {
				return 1
			}
			return 0
		})
		r.tasksStarted = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_started_total",
			Help:      "Tasks started",
		})
		r.tasksEnded = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_ended_total",
			Help:      "Tasks finalized, explicitly or by a following start",
		})
		r.taskDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of finalized tasks",
			Buckets:   []float64{5, 10, 30, 60, 120, 300, 600, 1800},
		})
		r.events = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Interaction events recorded on active tasks by kind",
		}, []string{"kind"})
		r.helpedTasks = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_with_help_total",
			Help:      "Finalized tasks on which help was used",
		})
		r.sessionResets = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "session_resets_total",
			Help:      "Times test mode was disabled, discarding the session",
		})
		reg.MustRegister(r.testMode, r.activeTasks, r.tasksStarted, r.tasksEnded,
			r.taskDuration, r.events, r.helpedTasks, r.sessionResets)
	})
	return r
}

func (r *Recorder) TestModeChanged(enabled bool) {
	if r == nil || r.sessionResets == nil || enabled {
		return
	}
	r.sessionResets.Inc()
}

func (r *Recorder) TaskStarted(model.TaskMetric) {
	if r == nil || r.tasksStarted == nil {
		return
	}
	r.tasksStarted.Inc()
}

func (r *Recorder) TaskEnded(task model.TaskMetric) {
	if r == nil || r.tasksEnded == nil {
		return
	}
	r.tasksEnded.Inc()
	if task.EndTime != nil {
		r.taskDuration.Observe(task.EndTime.Sub(task.StartTime).Seconds())
	}
	if task.HelpUsed {
		r.helpedTasks.Inc()
	}
}

func (r *Recorder) EventRecorded(_ model.TaskMetric, kind model.EventKind) {
	if r == nil || r.events == nil {
		return
	}
	r.events.WithLabelValues(string(kind)).Inc()
}

// HTTPHandler serves the metrics registered on reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

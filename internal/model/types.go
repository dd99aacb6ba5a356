package model

import "time"

// TaskMetric is one measured unit of user work within a usability session.
// Values handed out by the collector are snapshots; mutating them has no
// effect on session state.
type TaskMetric struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	StartTime time.Time  `json:"start_time" yaml:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"` // nil while active
	Clicks    int        `json:"clicks" yaml:"clicks"`
	Errors    int        `json:"errors" yaml:"errors"`
	HelpUsed  bool       `json:"help_used" yaml:"help_used"`
}

// Active reports whether the task has not been finalized yet.
func (t TaskMetric) Active() bool {
	return t.EndTime == nil
}

// Duration returns EndTime-StartTime, or now-StartTime while the task is active.
func (t TaskMetric) Duration(now time.Time) time.Duration {
	end := now
	if t.EndTime != nil {
		end = *t.EndTime
	}
	d := end.Sub(t.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// AggregateMetrics is the session summary. It is derived on demand and never stored.
type AggregateMetrics struct {
	TotalTime        time.Duration `json:"total_time" yaml:"total_time"`
	TotalClicks      int           `json:"total_clicks" yaml:"total_clicks"`
	TotalErrors      int           `json:"total_errors" yaml:"total_errors"`
	HelpUsagePercent float64       `json:"help_usage_percent" yaml:"help_usage_percent"`
	TaskCount        int           `json:"task_count" yaml:"task_count"`
}

// TotalSeconds returns TotalTime truncated to whole seconds.
func (a AggregateMetrics) TotalSeconds() int64 {
	return int64(a.TotalTime / time.Second)
}

// SessionSnapshot is a consistent read of the whole session.
type SessionSnapshot struct {
	TestMode       bool             `json:"test_mode" yaml:"test_mode"`
	CurrentTask    *TaskMetric      `json:"current_task,omitempty" yaml:"current_task,omitempty"`
	CompletedTasks []TaskMetric     `json:"completed_tasks" yaml:"completed_tasks"`
	Metrics        AggregateMetrics `json:"metrics" yaml:"metrics"`
	TakenAt        time.Time        `json:"taken_at" yaml:"taken_at"`
}

// EventKind identifies a recorded interaction event.
type EventKind string

const (
	EventClick EventKind = "click"
	EventError EventKind = "error"
	EventHelp  EventKind = "help"
)

// ParseEventKind maps a wire name to an EventKind.
func ParseEventKind(s string) (EventKind, bool) {
	switch EventKind(s) {
	case EventClick, EventError, EventHelp:
		return EventKind(s), true
	}
	return "", false
}

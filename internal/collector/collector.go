package collector

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/tinytelemetry/usetrack/internal/model"
)

// Collector owns the usability-test session: the test-mode flag, the active
// task and the history of completed tasks. It is the single point of
// mutation for session state.
//
// Construct one Collector per process and pass it explicitly to every
// consumer. All methods are safe for concurrent use; each call is applied
// atomically, so AllMetrics always reflects every call that returned before it.
type Collector struct {
	mu        sync.Mutex
	testMode  bool
	current   *model.TaskMetric
	completed []model.TaskMetric

	clock     clockwork.Clock
	newID     func() string
	observers observers
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock sets the time source. Defaults to the real clock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Collector) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithObserver registers an observer for lifecycle notifications.
func WithObserver(obs Observer) Option {
	return func(c *Collector) {
		if obs != nil {
			c.observers = c.observers.with(obs)
		}
	}
}

// WithIDGenerator overrides how task IDs are generated.
func WithIDGenerator(fn func() string) Option {
	return func(c *Collector) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New creates a Collector with test mode disabled and an empty session.
func New(opts ...Option) *Collector {
	c := &Collector{
		clock: clockwork.NewRealClock(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers obs after construction. The returned func removes it
// again and is safe to call more than once.
func (c *Collector) Subscribe(obs Observer) (unsubscribe func()) {
	if obs == nil {
		return func() {}
	}
	c.mu.Lock()
	c.observers = c.observers.with(obs)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.observers = c.observers.without(obs)
			c.mu.Unlock()
		})
	}
}

// IsTestMode reports whether metrics collection is enabled.
func (c *Collector) IsTestMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.testMode
}

// EnableTestMode turns collection on. Existing history is kept.
func (c *Collector) EnableTestMode() {
	c.mu.Lock()
	if c.testMode {
		c.mu.Unlock()
		return
	}
	c.testMode = true
	obs := c.observers
	c.mu.Unlock()

	log.Printf("collector: test mode enabled")
	obs.testModeChanged(true)
}

// DisableTestMode turns collection off and hard-resets the session. The
// active task is discarded without being moved to history.
func (c *Collector) DisableTestMode() {
	c.mu.Lock()
	wasEnabled := c.testMode
	c.testMode = false
	c.current = nil
	c.completed = nil
	obs := c.observers
	c.mu.Unlock()

	if wasEnabled {
		log.Printf("collector: test mode disabled, session reset")
		obs.testModeChanged(false)
	}
}

// StartTask begins measuring a new task. An already active task is
// finalized first, exactly as EndTask would, so two tasks are never active.
func (c *Collector) StartTask(name string) (model.TaskMetric, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.TaskMetric{}, ErrEmptyTaskName
	}

	c.mu.Lock()
	if !c.testMode {
		c.mu.Unlock()
		return model.TaskMetric{}, ErrNotInTestMode
	}
	finalized, hadActive := c.finalizeLocked()
	c.current = &model.TaskMetric{
		ID:        c.newID(),
		Name:      name,
		StartTime: c.clock.Now(),
	}
	started := snapshot(c.current)
	obs := c.observers
	c.mu.Unlock()

	if hadActive {
		log.Printf("collector: task %q auto-finalized by start of %q", finalized.Name, name)
		obs.taskEnded(finalized)
	}
	obs.taskStarted(started)
	return started, nil
}

// EndTask finalizes the active task and appends it to history. Ending with
// no active task is a silent no-op reported by ok=false.
func (c *Collector) EndTask() (task model.TaskMetric, ok bool) {
	c.mu.Lock()
	task, ok = c.finalizeLocked()
	obs := c.observers
	c.mu.Unlock()

	if ok {
		obs.taskEnded(task)
	}
	return task, ok
}

// EndTaskStrict is EndTask for callers that treat a double end as a bug.
func (c *Collector) EndTaskStrict() (model.TaskMetric, error) {
	task, ok := c.EndTask()
	if !ok {
		return model.TaskMetric{}, ErrNoActiveTask
	}
	return task, nil
}

// finalizeLocked moves the active task into history. c.mu must be held.
func (c *Collector) finalizeLocked() (model.TaskMetric, bool) {
	if c.current == nil {
		return model.TaskMetric{}, false
	}
	end := c.clock.Now()
	c.current.EndTime = &end
	done := snapshot(c.current)
	c.completed = append(c.completed, done)
	c.current = nil
	return done, true
}

// RecordClick counts one interaction on the active task.
func (c *Collector) RecordClick() { c.record(model.EventClick) }

// RecordError counts one error on the active task.
func (c *Collector) RecordError() { c.record(model.EventError) }

// RecordHelpUsed marks the active task as having used help.
func (c *Collector) RecordHelpUsed() { c.record(model.EventHelp) }

// Record applies an event by kind. Events outside an active task, or of an
// unknown kind, are dropped.
func (c *Collector) Record(kind model.EventKind) { c.record(kind) }

func (c *Collector) record(kind model.EventKind) {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	switch kind {
	case model.EventClick:
		c.current.Clicks++
	case model.EventError:
		c.current.Errors++
	case model.EventHelp:
		c.current.HelpUsed = true
	default:
		c.mu.Unlock()
		return
	}
	task := snapshot(c.current)
	obs := c.observers
	c.mu.Unlock()

	obs.eventRecorded(task, kind)
}

// CurrentTask returns a snapshot of the active task.
func (c *Collector) CurrentTask() (model.TaskMetric, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return model.TaskMetric{}, false
	}
	return snapshot(c.current), true
}

// CompletedTasks returns the finished tasks in the order they ended.
func (c *Collector) CompletedTasks() []model.TaskMetric {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completedLocked()
}

func (c *Collector) completedLocked() []model.TaskMetric {
	out := make([]model.TaskMetric, len(c.completed))
	for i := range c.completed {
		out[i] = snapshot(&c.completed[i])
	}
	return out
}

// AllMetrics aggregates completed tasks and the active task, if any.
func (c *Collector) AllMetrics() model.AggregateMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aggregateLocked(c.clock.Now())
}

func (c *Collector) aggregateLocked(now time.Time) model.AggregateMetrics {
	tasks := c.completed
	if c.current != nil {
		tasks = append(tasks[:len(tasks):len(tasks)], *c.current)
	}
	return Aggregate(tasks, now)
}

// Snapshot returns the whole session in one consistent read.
func (c *Collector) Snapshot() model.SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	snap := model.SessionSnapshot{
		TestMode:       c.testMode,
		CompletedTasks: c.completedLocked(),
		Metrics:        c.aggregateLocked(now),
		TakenAt:        now,
	}
	if c.current != nil {
		cur := snapshot(c.current)
		snap.CurrentTask = &cur
	}
	return snap
}

// Aggregate sums durations and counters over tasks. Active tasks contribute
// their elapsed time up to now. HelpUsagePercent is 0 for an empty set.
func Aggregate(tasks []model.TaskMetric, now time.Time) model.AggregateMetrics {
	var agg model.AggregateMetrics
	helped := 0
	for _, t := range tasks {
		agg.TotalTime += t.Duration(now)
		agg.TotalClicks += t.Clicks
		agg.TotalErrors += t.Errors
		if t.HelpUsed {
			helped++
		}
	}
	agg.TaskCount = len(tasks)
	if agg.TaskCount > 0 {
		agg.HelpUsagePercent = 100 * float64(helped) / float64(agg.TaskCount)
	}
	return agg
}

func snapshot(t *model.TaskMetric) model.TaskMetric {
	out := *t
	if t.EndTime != nil {
		end := *t.EndTime
		out.EndTime = &end
	}
	return out
}

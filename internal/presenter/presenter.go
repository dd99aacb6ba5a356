package presenter

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tinytelemetry/usetrack/internal/model"
)

// State is the presenter's watch state.
type State int

const (
	Idle    State = iota // no active task, value is 0
	Ticking              // active task, value updates every interval
)

func (s State) String() string {
	switch s {
	case Ticking:
		return "ticking"
	default:
		return "idle"
	}
}

// Elapsed is one published observation.
type Elapsed struct {
	State    State
	TaskID   string
	TaskName string
	Seconds  int64 // whole seconds since task start, truncated
}

// Clock renders Seconds as mm:ss.
func (e Elapsed) Clock() string {
	return FormatClock(e.Seconds)
}

// Publisher receives observations. It is called with the presenter's lock
// held, so it must not block and must not call back into the Presenter.
type Publisher func(Elapsed)

// Presenter republishes the elapsed time of the active task once per
// interval while a task is active, and owns the timer doing so.
//
// The timer is cancelled when the task ends, when test mode is disabled,
// on Stop and on Close. A cancelled timer never publishes.
type Presenter struct {
	src      model.TaskReader
	clock    clockwork.Clock
	interval time.Duration
	publish  Publisher

	mu      sync.Mutex
	state   State
	task    model.TaskMetric
	seconds int64
	closed  bool
	stop    chan struct{} // closed to cancel the running timer
	done    chan struct{} // closed when the timer goroutine has exited
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithClock sets the time source used for elapsed computation and ticking.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Presenter) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithInterval sets the recomputation period. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(p *Presenter) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithPublisher sets the observation callback.
func WithPublisher(fn Publisher) Option {
	return func(p *Presenter) {
		if fn != nil {
			p.publish = fn
		}
	}
}

// New creates an idle presenter reading from src. Call Sync to begin watching.
func New(src model.TaskReader, opts ...Option) *Presenter {
	p := &Presenter{
		src:      src,
		clock:    clockwork.NewRealClock(),
		interval: model.DefaultTickInterval,
		publish:  func(Elapsed) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sync re-reads the source and applies the resulting transition. It is
// idempotent: while ticking on the same task it only republishes, it never
// registers a second timer.
func (p *Presenter) Sync() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.syncLocked()
}

// Stop resets the value to 0 and cancels the timer. A later Sync resumes.
func (p *Presenter) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.idleLocked()
}

// Close cancels any pending recomputation and waits for the timer goroutine
// to exit. After Close returns the publisher is never called again.
func (p *Presenter) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	done := p.done
	p.cancelTimerLocked()
	p.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Elapsed returns the last published seconds value.
func (p *Presenter) Elapsed() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seconds
}

// State returns the current watch state.
func (p *Presenter) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Observer hooks. Presenter satisfies collector.Observer so an in-process
// collector can push transitions instead of waiting for the next tick.

func (p *Presenter) TestModeChanged(bool)                            { p.Sync() }
func (p *Presenter) TaskStarted(model.TaskMetric)                    { p.Sync() }
func (p *Presenter) TaskEnded(model.TaskMetric)                      { p.Sync() }
func (p *Presenter) EventRecorded(model.TaskMetric, model.EventKind) {}

func (p *Presenter) syncLocked() {
	task, ok := p.src.CurrentTask()
	if !ok || !p.src.IsTestMode() {
		p.idleLocked()
		return
	}

	if p.state == Ticking {
		if task.ID == p.task.ID {
			p.seconds = p.elapsedSince(task.StartTime)
			p.emitLocked()
			return
		}
		// Task switch passes through Idle before counting the new task.
		p.idleLocked()
	}

	p.state = Ticking
	p.task = task
	p.seconds = p.elapsedSince(task.StartTime)
	// Register the ticker before publishing so no interval is lost between them.
	p.startTimerLocked()
	p.emitLocked()
}

func (p *Presenter) idleLocked() {
	p.cancelTimerLocked()
	if p.state == Idle && p.seconds == 0 {
		return
	}
	p.state = Idle
	p.task = model.TaskMetric{}
	p.seconds = 0
	p.emitLocked()
}

func (p *Presenter) emitLocked() {
	p.publish(Elapsed{
		State:    p.state,
		TaskID:   p.task.ID,
		TaskName: p.task.Name,
		Seconds:  p.seconds,
	})
}

func (p *Presenter) startTimerLocked() {
	if p.stop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	p.stop = stop
	p.done = done

	ticker := p.clock.NewTicker(p.interval)
	go p.run(ticker, stop, done)
}

func (p *Presenter) cancelTimerLocked() {
	if p.stop == nil {
		return
	}
	close(p.stop)
	p.stop = nil
	p.done = nil
}

func (p *Presenter) run(ticker clockwork.Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			p.tick(stop)
		}
	}
}

func (p *Presenter) tick(stop chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// The timer may have been cancelled while this tick waited for the lock.
	select {
	case <-stop:
		return
	default:
	}
	p.syncLocked()
}

func (p *Presenter) elapsedSince(start time.Time) int64 {
	d := p.clock.Since(start)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

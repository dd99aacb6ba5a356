package collector

import "github.com/tinytelemetry/usetrack/internal/model"

// Observer receives session lifecycle notifications. Callbacks run after the
// state change is applied and outside the collector lock, on the goroutine
// that made the call.
type Observer interface {
	TestModeChanged(enabled bool)
	TaskStarted(task model.TaskMetric)
	// TaskEnded fires for explicit ends and for auto-finalization by StartTask.
	TaskEnded(task model.TaskMetric)
	EventRecorded(task model.TaskMetric, kind model.EventKind)
}

// NopObserver implements Observer with no-ops. Embed it to override a subset.
type NopObserver struct{}

func (NopObserver) TestModeChanged(bool)                            {}
func (NopObserver) TaskStarted(model.TaskMetric)                    {}
func (NopObserver) TaskEnded(model.TaskMetric)                      {}
func (NopObserver) EventRecorded(model.TaskMetric, model.EventKind) {}

// observers is copy-on-write so a copy taken under the lock stays stable.
type observers []Observer

func (o observers) with(obs Observer) observers {
	out := make(observers, 0, len(o)+1)
	out = append(out, o...)
	return append(out, obs)
}

func (o observers) without(obs Observer) observers {
	out := make(observers, 0, len(o))
	for _, existing := range o {
		if existing != obs {
			out = append(out, existing)
		}
	}
	return out
}

func (o observers) testModeChanged(enabled bool) {
	for _, obs := range o {
		obs.TestModeChanged(enabled)
	}
}

func (o observers) taskStarted(task model.TaskMetric) {
	for _, obs := range o {
		obs.TaskStarted(task)
	}
}

func (o observers) taskEnded(task model.TaskMetric) {
	for _, obs := range o {
		obs.TaskEnded(task)
	}
}

func (o observers) eventRecorded(task model.TaskMetric, kind model.EventKind) {
	for _, obs := range o {
		obs.EventRecorded(task, kind)
	}
}

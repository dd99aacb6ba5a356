package collector

import "github.com/tinytelemetry/usetrack/internal/model"

// API adapts a Collector to model.SessionAPI for the transport layers.
func API(c *Collector) model.SessionAPI {
	return sessionAPI{c: c}
}

type sessionAPI struct {
	c *Collector
}

func (a sessionAPI) SetTestMode(enabled bool) error {
	if enabled {
		a.c.EnableTestMode()
	} else {
		a.c.DisableTestMode()
	}
	return nil
}

func (a sessionAPI) StartTask(name string) (model.TaskMetric, error) {
	return a.c.StartTask(name)
}

func (a sessionAPI) EndTask() (model.TaskMetric, bool, error) {
	task, ok := a.c.EndTask()
	return task, ok, nil
}

func (a sessionAPI) Record(kind model.EventKind) error {
	a.c.Record(kind)
	return nil
}

func (a sessionAPI) AllMetrics() (model.AggregateMetrics, error) {
	return a.c.AllMetrics(), nil
}

func (a sessionAPI) Snapshot() (model.SessionSnapshot, error) {
	return a.c.Snapshot(), nil
}

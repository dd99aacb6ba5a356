package model

// TaskReader is the narrow read contract the elapsed-time presenter polls.
type TaskReader interface {
	IsTestMode() bool
	CurrentTask() (TaskMetric, bool)
}

// SessionAPI is the capability surface exposed to instrumented UIs.
// It is served in-process by the collector and remotely by the socket RPC
// client, so every call can fail with a transport error.
type SessionAPI interface {
	SetTestMode(enabled bool) error
	StartTask(name string) (TaskMetric, error)
	// EndTask reports ended=false when no task was active.
	EndTask() (task TaskMetric, ended bool, err error)
	Record(kind EventKind) error
	AllMetrics() (AggregateMetrics, error)
	Snapshot() (SessionSnapshot, error)
}

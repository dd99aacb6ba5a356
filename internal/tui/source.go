package tui

import (
	"sync"

	"github.com/tinytelemetry/usetrack/internal/model"
)

// snapshotSource serves the presenter from the most recent session snapshot
// so a remote collector is read once per refresh, not on every tick.
type snapshotSource struct {
	mu   sync.RWMutex
	snap model.SessionSnapshot
}

func (s *snapshotSource) set(snap model.SessionSnapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func (s *snapshotSource) IsTestMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.TestMode
}

func (s *snapshotSource) CurrentTask() (model.TaskMetric, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.CurrentTask == nil {
		return model.TaskMetric{}, false
	}
	return *s.snap.CurrentTask, true
}

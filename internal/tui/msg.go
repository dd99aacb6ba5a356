package tui

import (
	"time"

	"github.com/tinytelemetry/usetrack/internal/model"
	"github.com/tinytelemetry/usetrack/internal/presenter"
)

// TickMsg triggers a snapshot refresh.
type TickMsg time.Time

type snapshotLoadedMsg struct {
	snap model.SessionSnapshot
	err  error
}

type elapsedMsg presenter.Elapsed

// actionDoneMsg reports the outcome of a moderator action.
type actionDoneMsg struct {
	action string
	err    error
}

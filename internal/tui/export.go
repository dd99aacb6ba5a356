package tui

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/usetrack/internal/model"
	"github.com/tinytelemetry/usetrack/internal/presenter"
)

type exportTask struct {
	Name     string    `yaml:"name"`
	Started  time.Time `yaml:"started"`
	Duration string    `yaml:"duration"`
	Seconds  int64     `yaml:"seconds"`
	Clicks   int       `yaml:"clicks"`
	Errors   int       `yaml:"errors"`
	HelpUsed bool      `yaml:"help_used"`
	Active   bool      `yaml:"active,omitempty"`
}

type exportTotals struct {
	Tasks            int     `yaml:"tasks"`
	TotalTime        string  `yaml:"total_time"`
	TotalSeconds     int64   `yaml:"total_seconds"`
	Clicks           int     `yaml:"clicks"`
	Errors           int     `yaml:"errors"`
	HelpUsagePercent float64 `yaml:"help_usage_percent"`
}

type exportDoc struct {
	TakenAt  time.Time    `yaml:"taken_at"`
	TestMode bool         `yaml:"test_mode"`
	Totals   exportTotals `yaml:"totals"`
	Tasks    []exportTask `yaml:"tasks"`
}

// WriteSnapshotYAML writes a moderator-readable report of snap to w.
func WriteSnapshotYAML(w io.Writer, snap model.SessionSnapshot) error {
	doc := exportDoc{
		TakenAt:  snap.TakenAt,
		TestMode: snap.TestMode,
		Totals: exportTotals{
			Tasks:            snap.Metrics.TaskCount,
			TotalTime:        presenter.FormatClock(snap.Metrics.TotalSeconds()),
			TotalSeconds:     snap.Metrics.TotalSeconds(),
			Clicks:           snap.Metrics.TotalClicks,
			Errors:           snap.Metrics.TotalErrors,
			HelpUsagePercent: snap.Metrics.HelpUsagePercent,
		},
		Tasks: []exportTask{},
	}
	for _, t := range summaryTasks(snap) {
		secs := int64(t.Duration(snap.TakenAt) / time.Second)
		doc.Tasks = append(doc.Tasks, exportTask{
			Name:     t.Name,
			Started:  t.StartTime,
			Duration: presenter.FormatClock(secs),
			Seconds:  secs,
			Clicks:   t.Clicks,
			Errors:   t.Errors,
			HelpUsed: t.HelpUsed,
			Active:   t.Active(),
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.Close()
}

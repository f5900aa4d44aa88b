// Package optimization provides shared data structures for analysis run summaries.
package optimization

import "time"

// Stage outcomes that are not a solver status.
const (
	StatusComplete   = "complete"
	StatusIncomplete = "incomplete"
	StatusSkipped    = "skipped"
)

// Summary captures the outcome of a single analysis stage of a run.
type Summary struct {
	Analysis   string        `json:"analysis" yaml:"analysis"`
	Status     string        `json:"status" yaml:"status"`
	Incomplete bool          `json:"incomplete" yaml:"incomplete"`
	Duration   time.Duration `json:"duration_ns" yaml:"duration_ns"`
	RunID      string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Notes      []string      `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Skipped reports whether the stage did not run.
func (s Summary) Skipped() bool {
	return s.Status == StatusSkipped
}

// CompletionStatus maps an incomplete flag to a stage status.
func CompletionStatus(incomplete bool) string {
	if incomplete {
		return StatusIncomplete
	}
	return StatusComplete
}

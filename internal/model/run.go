package model

import "time"

// RunStatus is the state of one stage invocation in the run log.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded stage invocation.
type Run struct {
	ID         string    `json:"id"`
	Stage      string    `json:"stage"`
	Status     RunStatus `json:"status"`
	Input      string    `json:"input"`
	Output     string    `json:"output"`
	RecordsIn  int       `json:"records_in"`
	RecordsOut int       `json:"records_out"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RunResult is what a finished stage reports back to the run log.
// A non-empty Error marks the run failed.
type RunResult struct {
	Output     string
	RecordsIn  int
	RecordsOut int
	Error      string
}

// Status maps the result to its terminal run status.
func (r RunResult) Status() RunStatus {
	if r.Error != "" {
		return RunStatusFailed
	}
	return RunStatusComplete
}

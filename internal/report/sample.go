// Package report decodes the runner's newline-delimited JSON report into
// samples and summarizes them.
package report

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the outcome of one test case execution.
type Status string

const (
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
	StatusBroken  Status = "BROKEN"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusPassed, StatusFailed, StatusBroken, StatusSkipped}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusSkipped, StatusBroken:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown status values.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if !Status(raw).Valid() {
		return fmt.Errorf("unknown status %q", raw)
	}
	*s = Status(raw)
	return nil
}

// Sample is one completed test case as written by the runner. Only Status is
// guaranteed; the other fields are carried when the runner provides them.
type Sample struct {
	Status     Status         `json:"status"`
	StartTime  float64        `json:"start_time,omitempty"` // unix seconds
	WorkerID   string         `json:"workerID,omitempty"`
	Duration   float64        `json:"duration,omitempty"` // seconds
	TestCase   string         `json:"test_case,omitempty"`
	TestSuite  string         `json:"test_suite,omitempty"`
	ErrorMsg   string         `json:"error_msg,omitempty"`
	ErrorTrace string         `json:"error_trace,omitempty"`
	Extras     map[string]any `json:"extras,omitempty"`
}

// Elapsed returns the sample duration as a time.Duration.
func (s Sample) Elapsed() time.Duration {
	return time.Duration(s.Duration * float64(time.Second))
}

// Started returns the sample start time, or the zero time if absent.
func (s Sample) Started() time.Time {
	if s.StartTime <= 0 {
		return time.Time{}
	}
	sec := int64(s.StartTime)
	nsec := int64((s.StartTime - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

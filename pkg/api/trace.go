package api

import (
	"encoding/json"
	"time"
)

// StepRecord describes one Task invocation. Input and Snapshot hold deep
// copies of the state before and after the step and are only filled when
// snapshots are enabled.
type StepRecord struct {
	Path     string
	Name     string
	Started  time.Time
	Duration time.Duration
	OK       bool
	Err      string
	Input    any
	Snapshot any
}

type stepRecordJSON struct {
	Path       string    `json:"step_path"`
	Name       string    `json:"name"`
	Started    time.Time `json:"started"`
	DurationMS float64   `json:"duration_ms"`
	OK         bool      `json:"ok"`
	Err        string    `json:"error,omitempty"`
	Input      any       `json:"input,omitempty"`
	Snapshot   any       `json:"snapshot,omitempty"`
}

func (r StepRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(stepRecordJSON{
		Path:       r.Path,
		Name:       r.Name,
		Started:    r.Started,
		DurationMS: float64(r.Duration) / float64(time.Millisecond),
		OK:         r.OK,
		Err:        r.Err,
		Input:      r.Input,
		Snapshot:   r.Snapshot,
	})
}

func (r *StepRecord) UnmarshalJSON(data []byte) error {
	var raw stepRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = StepRecord{
		Path:     raw.Path,
		Name:     raw.Name,
		Started:  raw.Started,
		Duration: time.Duration(raw.DurationMS * float64(time.Millisecond)),
		OK:       raw.OK,
		Err:      raw.Err,
		Input:    raw.Input,
		Snapshot: raw.Snapshot,
	}
	return nil
}

// Trace is the ordered list of step records of one run.
type Trace []StepRecord

// Total is the sum of all step durations.
func (t Trace) Total() time.Duration {
	var d time.Duration
	for _, r := range t {
		d += r.Duration
	}
	return d
}

// Names returns the step names in execution order.
func (t Trace) Names() []string {
	names := make([]string, len(t))
	for i, r := range t {
		names[i] = r.Name
	}
	return names
}

// Failed returns the first failed record, if any.
func (t Trace) Failed() (StepRecord, bool) {
	for _, r := range t {
		if !r.OK {
			return r, true
		}
	}
	return StepRecord{}, false
}

// ByName returns every record of the named step.
func (t Trace) ByName(name string) []StepRecord {
	var out []StepRecord
	for _, r := range t {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

// RunResult is what a compiled runner returns.
//
// When a run fails, Output is nil and Trace holds the steps that ran before
// the failure, including the failing one.
type RunResult struct {
	ID       string        `json:"id"`
	Plan     string        `json:"plan"`
	Output   any           `json:"output"`
	Trace    Trace         `json:"trace"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`
}

// RunInfo identifies a run in observer callbacks.
type RunInfo struct {
	ID      string
	Plan    string
	Started time.Time
}

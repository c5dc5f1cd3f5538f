// Package persistence stores run records. Stores never
// resume or replay a run; they keep what a runner returned so it can be
// listed and inspected later.
package persistence

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/petrijr/plano/pkg/api"
)

var (
	// ErrRunNotFound is returned when a run record is not found.
	ErrRunNotFound = errors.New("run not found")
)

// RunStatus is the outcome of a stored run.
type RunStatus string

const (
	// StatusQueued and StatusRunning mark runs submitted to a background
	// worker that have not finished yet.
	StatusQueued    RunStatus = "QUEUED"
	StatusRunning   RunStatus = "RUNNING"
	StatusCompleted RunStatus = "COMPLETED"
	StatusFailed    RunStatus = "FAILED"
)

// RunRecord is the stored form of a run.
type RunRecord struct {
	ID       string        `json:"id"`
	Plan     string        `json:"plan"`
	Status   RunStatus     `json:"status"`
	Output   any           `json:"output,omitempty"`
	Err      string        `json:"error,omitempty"`
	Trace    api.Trace     `json:"trace"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`
}

// NewRunRecord builds the record of a run from what Runner.Run returned.
func NewRunRecord(res *api.RunResult, runErr error) *RunRecord {
	rec := &RunRecord{
		ID:       res.ID,
		Plan:     res.Plan,
		Status:   StatusCompleted,
		Output:   res.Output,
		Trace:    res.Trace,
		Started:  res.Started,
		Duration: res.Duration,
	}
	if runErr != nil {
		rec.Status = StatusFailed
		rec.Output = nil
		rec.Err = runErr.Error()
	}
	return rec
}

// RunFilter selects records in ListRuns. Zero fields match everything.
type RunFilter struct {
	Plan   string
	Status RunStatus
	// Limit caps the number of records returned; 0 means no limit.
	Limit int
}

func (f RunFilter) match(rec *RunRecord) bool {
	return (f.Plan == "" || rec.Plan == f.Plan) && (f.Status == "" || rec.Status == f.Status)
}

// RunStore persists run records. Saving a record with an existing ID
// replaces it. ListRuns returns the newest runs first.
type RunStore interface {
	SaveRun(ctx context.Context, rec *RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error)
}

// newestFirst orders records by start time, newest first, then by ID.
func newestFirst(a, b *RunRecord) int {
	if c := b.Started.Compare(a.Started); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func sortAndLimit(recs []*RunRecord, limit int) []*RunRecord {
	slices.SortFunc(recs, newestFirst)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

func validate(rec *RunRecord) error {
	if rec == nil {
		return errors.New("persistence: nil run record")
	}
	if rec.ID == "" {
		return errors.New("persistence: run record without id")
	}
	return nil
}

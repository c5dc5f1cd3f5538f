package persistence

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/suite"

	"github.com/petrijr/plano/pkg/api"
)

type samplePayload struct {
	Msg string
	N   int
}

func init() {
	gob.Register(samplePayload{})
}

var epoch = time.Unix(1_700_000_000, 0)

// runStoreSuite is run against every RunStore implementation. newStore
// returns an empty store for each test.
type runStoreSuite struct {
	suite.Suite
	ctx      context.Context
	store    RunStore
	newStore func(t *testing.T) RunStore
}

func (s *runStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore(s.T())
}

func record(id, plan string, status RunStatus, startOffset time.Duration) *RunRecord {
	rec := &RunRecord{
		ID:       id,
		Plan:     plan,
		Status:   status,
		Output:   fmt.Sprintf("out-%s", id),
		Started:  epoch.Add(startOffset),
		Duration: 42 * time.Millisecond,
	}
	if status == StatusFailed {
		rec.Output = nil
		rec.Err = "Sequence[0].boom: action failure"
	}
	return rec
}

func (s *runStoreSuite) save(recs ...*RunRecord) {
	for _, rec := range recs {
		s.Require().NoError(s.store.SaveRun(s.ctx, rec))
	}
}

func (s *runStoreSuite) ids(filter RunFilter) []string {
	recs, err := s.store.ListRuns(s.ctx, filter)
	s.Require().NoError(err)
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.ID)
	}
	return out
}

func (s *runStoreSuite) TestSaveAndGetRoundTrip() {
	rec := &RunRecord{
		ID:     "run-1",
		Plan:   "structured",
		Status: StatusCompleted,
		Output: samplePayload{Msg: "hello", N: 3},
		Trace: api.Trace{
			{Path: "Sequence[0].trim", Name: "trim", Started: epoch, Duration: time.Millisecond, OK: true, Input: "  hi ", Snapshot: "hi"},
			{Path: "Sequence[1].upper", Name: "upper", Started: epoch.Add(time.Millisecond), Duration: 2 * time.Millisecond, OK: true},
		},
		Started:  epoch,
		Duration: 3 * time.Millisecond,
	}
	s.save(rec)

	got, err := s.store.GetRun(s.ctx, "run-1")
	s.Require().NoError(err)
	// cmp compares time.Time with its Equal method, so zones do not matter.
	s.Empty(cmp.Diff(rec, got))
}

func (s *runStoreSuite) TestGetMissingRun() {
	_, err := s.store.GetRun(s.ctx, "nope")
	s.Require().ErrorIs(err, ErrRunNotFound)
}

func (s *runStoreSuite) TestSaveRejectsInvalidRecords() {
	s.Error(s.store.SaveRun(s.ctx, nil))
	s.Error(s.store.SaveRun(s.ctx, &RunRecord{Plan: "p"}))
}

func (s *runStoreSuite) TestSaveReplacesExistingRecord() {
	s.save(record("r1", "alpha", StatusCompleted, 0))

	updated := record("r1", "beta", StatusFailed, time.Second)
	s.save(updated)

	got, err := s.store.GetRun(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal("beta", got.Plan)
	s.Equal(StatusFailed, got.Status)
	s.Equal(updated.Err, got.Err)
	s.Nil(got.Output)

	s.Empty(s.ids(RunFilter{Plan: "alpha"}))
	s.Empty(s.ids(RunFilter{Status: StatusCompleted}))
	s.Equal([]string{"r1"}, s.ids(RunFilter{Plan: "beta", Status: StatusFailed}))
	s.Equal([]string{"r1"}, s.ids(RunFilter{}))
}

func (s *runStoreSuite) TestListRunsFiltersAndOrders() {
	s.save(
		record("a", "linear", StatusCompleted, 1*time.Second),
		record("b", "structured", StatusFailed, 2*time.Second),
		record("c", "linear", StatusFailed, 3*time.Second),
		record("d", "structured", StatusCompleted, 4*time.Second),
	)

	s.Equal([]string{"d", "c", "b", "a"}, s.ids(RunFilter{}))
	s.Equal([]string{"c", "a"}, s.ids(RunFilter{Plan: "linear"}))
	s.Equal([]string{"c", "b"}, s.ids(RunFilter{Status: StatusFailed}))
	s.Equal([]string{"d"}, s.ids(RunFilter{Plan: "structured", Status: StatusCompleted}))
	s.Equal([]string{"d", "c"}, s.ids(RunFilter{Limit: 2}))
	s.Equal([]string{"c"}, s.ids(RunFilter{Plan: "linear", Limit: 1}))
	s.Empty(s.ids(RunFilter{Plan: "unknown"}))
}

func (s *runStoreSuite) TestListRunsBreaksTiesByID() {
	s.save(
		record("y", "p", StatusCompleted, 0),
		record("x", "p", StatusCompleted, 0),
		record("z", "p", StatusCompleted, 0),
	)
	s.Equal([]string{"x", "y", "z"}, s.ids(RunFilter{}))
}

func (s *runStoreSuite) TestStoredRecordIsIsolatedFromCaller() {
	rec := record("iso", "p", StatusCompleted, 0)
	rec.Output = map[string]any{"text": "original"}
	s.save(rec)

	rec.Output.(map[string]any)["text"] = "changed by caller"

	got, err := s.store.GetRun(s.ctx, "iso")
	s.Require().NoError(err)
	s.Equal(map[string]any{"text": "original"}, got.Output)

	got.Output.(map[string]any)["text"] = "changed by reader"
	again, err := s.store.GetRun(s.ctx, "iso")
	s.Require().NoError(err)
	s.Equal(map[string]any{"text": "original"}, again.Output)
}

func (s *runStoreSuite) TestRecordOfFailedRun() {
	res := &api.RunResult{
		ID:      "failed-run",
		Plan:    "structured",
		Output:  nil,
		Trace:   api.Trace{{Path: "Sequence[0].boom", Name: "boom", Started: epoch, Err: "kaput"}},
		Started: epoch,
	}
	runErr := api.NewStepError("Sequence[0].boom", api.ErrActionFailure, errors.New("kaput"))
	s.save(NewRunRecord(res, runErr))

	got, err := s.store.GetRun(s.ctx, "failed-run")
	s.Require().NoError(err)
	s.Equal(StatusFailed, got.Status)
	s.Equal(runErr.Error(), got.Err)
	s.Require().Len(got.Trace, 1)
	s.False(got.Trace[0].OK)
	s.Equal("kaput", got.Trace[0].Err)
}

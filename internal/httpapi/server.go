// Package httpapi serves plan documents over HTTP.
//
//	POST /v1/runs          run a plan document, {"plan": "<yaml>", "input": ..., "async": false}
//	GET  /v1/runs          list stored runs (?plan=, ?status=, ?limit=)
//	GET  /v1/runs/{id}     one stored run
//	POST /v1/validate      check a plan document without running it
//	POST /v1/graph         Mermaid flowchart of a plan document (?run=<id> overlays its trace)
//	GET  /metrics          Prometheus metrics
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/petrijr/plano/internal/engine"
	"github.com/petrijr/plano/internal/persistence"
	"github.com/petrijr/plano/internal/planfile"
	"github.com/petrijr/plano/internal/render"
	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/plan"
	"github.com/petrijr/plano/pkg/worker"
)

// maxDocumentBytes bounds request bodies.
const maxDocumentBytes = 1 << 20

// Server holds what the handlers need. Worker may be nil, in which case
// async runs are rejected. Gatherer defaults to prometheus.DefaultGatherer.
type Server struct {
	Actions  engine.Actions
	Bindings planfile.Bindings
	Store    persistence.RunStore
	Worker   *worker.Worker
	Options  []engine.Option
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// RunRequest is the body of POST /v1/runs. A missing input falls back to
// the document's own input.
type RunRequest struct {
	Plan  string          `json:"plan"`
	Input json.RawMessage `json:"input,omitempty"`
	Async bool            `json:"async,omitempty"`
}

// ValidateResponse is the body returned by POST /v1/validate.
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Name   string   `json:"name,omitempty"`
	Plan   string   `json:"plan,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/runs", s.createRun)
		r.Get("/runs", s.listRuns)
		r.Get("/runs/{id}", s.getRun)
		r.Post("/validate", s.validate)
		r.Post("/graph", s.graph)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDocumentBytes)).Decode(&req); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	doc, err := planfile.Parse([]byte(req.Plan), s.Bindings)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	runner, err := doc.Compile(s.Actions, s.Options...)
	if err != nil {
		s.fail(w, r, http.StatusUnprocessableEntity, err)
		return
	}

	input := doc.Input
	if len(req.Input) > 0 {
		if err := json.Unmarshal(req.Input, &input); err != nil {
			s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid input: %w", err))
			return
		}
	}

	if req.Async {
		if s.Worker == nil {
			s.fail(w, r, http.StatusNotImplemented, errors.New("background runs are not enabled"))
			return
		}
		id, err := s.Worker.TrySubmit(r.Context(), runner, input)
		if errors.Is(err, worker.ErrQueueFull) {
			s.fail(w, r, http.StatusServiceUnavailable, err)
			return
		}
		if err != nil {
			s.fail(w, r, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Location", "/v1/runs/"+id)
		writeJSON(w, http.StatusAccepted, &persistence.RunRecord{
			ID: id, Plan: runner.Name(), Status: persistence.StatusQueued,
		})
		return
	}

	res, runErr := runner.Run(r.Context(), input)
	rec := persistence.NewRunRecord(res, runErr)
	if err := s.Store.SaveRun(r.Context(), rec); err != nil {
		s.fail(w, r, http.StatusInternalServerError, fmt.Errorf("save run: %w", err))
		return
	}
	// A failed run is still a stored result.
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := persistence.RunFilter{
		Plan:   q.Get("plan"),
		Status: persistence.RunStatus(strings.ToUpper(q.Get("status"))),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		filter.Limit = n
	}

	recs, err := s.Store.ListRuns(r.Context(), filter)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if recs == nil {
		recs = []*persistence.RunRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lookupRun(r, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes))
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	doc, err := planfile.Parse(data, s.Bindings)
	if err == nil {
		_, err = doc.Compile(s.Actions, s.Options...)
	}
	if err != nil {
		writeJSON(w, http.StatusOK, ValidateResponse{Errors: splitErrors(err)})
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: true, Name: doc.Name, Plan: plan.String(doc.Plan)})
}

func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes))
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	doc, err := planfile.Parse(data, s.Bindings)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	var trace api.Trace
	if id := r.URL.Query().Get("run"); id != "" {
		rec, err := s.lookupRun(r, id)
		if err != nil {
			s.fail(w, r, statusOf(err), err)
			return
		}
		trace = rec.Trace
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, render.Mermaid(doc.Plan, trace))
}

func (s *Server) lookupRun(r *http.Request, id string) (*persistence.RunRecord, error) {
	rec, err := s.Store.GetRun(r.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}
	return rec, nil
}

func statusOf(err error) int {
	if errors.Is(err, persistence.ErrRunNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// splitErrors flattens errors.Join results into one message per error. A
// StepError also unwraps to several errors but is reported whole.
func splitErrors(err error) []string {
	if _, ok := err.(*api.StepError); ok {
		return []string{err.Error()}
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, splitErrors(e)...)
		}
		return out
	}
	return []string{err.Error()}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.Logger.Log(r.Context(), level, "request_failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Any("error", err),
	)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/copyleftdev/gradbench/internal/config"
	apperrors "github.com/copyleftdev/gradbench/internal/errors"
	"github.com/copyleftdev/gradbench/internal/logging"
	"github.com/copyleftdev/gradbench/internal/metrics"
	"github.com/copyleftdev/gradbench/internal/optimization"
	"github.com/copyleftdev/gradbench/internal/optimization/objectives"
	"github.com/copyleftdev/gradbench/internal/optimization/run"
)

// Logger defines the logging interface used by the server.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Run statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

var (
	errRunNotFound = errors.New("run not found")
	errRunFinished = errors.New("run already finished")
	errBadParams   = errors.New("invalid parameters")
)

// RunState tracks one optimization run. Fields are guarded by Server.mu.
type RunState struct {
	ID          string
	Status      string
	Spec        run.Spec
	StartTime   time.Time
	EndTime     *time.Time
	Step        int
	Position    optimization.Point
	Result      *run.Result
	Err         error
	CancelFunc  context.CancelFunc
	LastUpdated time.Time
}

func (s *RunState) terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Server exposes optimization runs over REST and JSON-RPC 2.0. Each run
// executes on its own goroutine with its own optimizer.
type Server struct {
	cfg     *config.Config
	logger  Logger
	runner  *run.Runner
	metrics *metrics.Metrics

	mu    sync.RWMutex
	runs  map[string]*RunState
	order []string // insertion order, for eviction
	wg    sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithRunner sets the trajectory runner.
func WithRunner(r *run.Runner) Option {
	return func(s *Server) {
		s.runner = r
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates a server with the given config and logger.
func NewServer(cfg *config.Config, logger Logger, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		runs:   make(map[string]*RunState),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = run.NewRunner()
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	return s
}

// RegisterRoutes mounts the API on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", s.handleCreateRun)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Delete("/runs/{id}", s.handleCancelRun)
		r.Get("/objectives", s.handleObjectives)
	})

	r.Post("/rpc", s.handleJSONRPC)
}

// StartParams is the body of a run request.
type StartParams struct {
	Algorithm       string              `json:"algorithm"`
	Objective       string              `json:"objective"`
	LearningRate    *float64            `json:"learning_rate,omitempty"`
	Steps           *int                `json:"steps,omitempty"`
	Start           *optimization.Point `json:"start,omitempty"`
	Hyperparameters run.Hyperparameters `json:"hyperparameters"`
}

func (s *Server) specFor(p StartParams) (run.Spec, error) {
	steps := s.cfg.Optimization.DefaultSteps
	if p.Steps != nil {
		steps = *p.Steps
	}
	if steps < 0 || steps > s.cfg.Optimization.MaxSteps {
		return run.Spec{}, fmt.Errorf("%w: steps must be in [0,%d], got %d", errBadParams, s.cfg.Optimization.MaxSteps, steps)
	}

	spec := run.Spec{
		Algorithm:       p.Algorithm,
		Objective:       p.Objective,
		LearningRate:    p.LearningRate,
		Steps:           steps,
		Start:           p.Start,
		Hyperparameters: p.Hyperparameters,
		HistoryStride:   s.cfg.Optimization.HistoryStride,
	}

	// Build once up front so bad names and hyperparameters fail the request
	// instead of the run.
	if _, _, err := run.Build(spec); err != nil {
		return run.Spec{}, fmt.Errorf("%w: %w", errBadParams, err)
	}
	return spec, nil
}

// startRun registers and launches a run.
func (s *Server) startRun(p StartParams) (*RunState, error) {
	spec, err := s.specFor(p)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	state := &RunState{
		ID:          uuid.NewString(),
		Status:      StatusPending,
		Spec:        spec,
		StartTime:   now,
		CancelFunc:  cancel,
		LastUpdated: now,
	}
	if spec.Start != nil {
		state.Position = *spec.Start
	} else if b, err := objectives.Lookup(spec.Objective); err == nil {
		state.Position = b.Start()
	}

	s.mu.Lock()
	s.runs[state.ID] = state
	s.order = append(s.order, state.ID)
	s.evictLocked()
	s.mu.Unlock()

	s.wg.Add(1)
	go s.execute(ctx, state)

	s.logger.Info("Run accepted", map[string]interface{}{
		"run_id":    state.ID,
		"algorithm": spec.Algorithm,
		"objective": spec.Objective,
		"steps":     spec.Steps,
	})
	return state, nil
}

// evictLocked drops the oldest finished runs while over capacity.
func (s *Server) evictLocked() {
	limit := s.cfg.Optimization.MaxRuns
	for i := 0; len(s.runs) > limit && i < len(s.order); {
		id := s.order[i]
		st, ok := s.runs[id]
		if ok && !st.terminal() {
			i++
			continue
		}
		delete(s.runs, id)
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
}

func (s *Server) execute(ctx context.Context, state *RunState) {
	defer s.wg.Done()

	s.mu.Lock()
	if state.Status != StatusPending {
		s.mu.Unlock()
		return
	}
	state.Status = StatusRunning
	state.LastUpdated = time.Now()
	spec := state.Spec
	s.mu.Unlock()

	s.metrics.Started(spec.Algorithm, spec.Objective)

	stride := spec.HistoryStride
	if stride < 1 {
		stride = 1
	}
	progress := func(step int, at optimization.Point) {
		if step%stride != 0 && step != spec.Steps {
			return
		}
		s.mu.Lock()
		state.Step = step
		state.Position = at
		state.LastUpdated = time.Now()
		s.mu.Unlock()
	}

	result, err := s.runner.Trajectory(ctx, spec, progress)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	switch {
	case errors.Is(err, context.Canceled):
		state.Status = StatusCancelled
		s.metrics.Finished(StatusCancelled, spec.Algorithm, spec.Objective, state.Step, math.NaN())
	case err != nil:
		state.Status = StatusFailed
		state.Err = apperrors.Wrap(err, "run failed").WithOperation("trajectory").WithComponent(spec.Algorithm)
		s.logger.Error("Run failed", map[string]interface{}{
			"run_id": state.ID,
			"error":  state.Err.Error(),
		})
		s.metrics.Finished(StatusFailed, spec.Algorithm, spec.Objective, state.Step, math.NaN())
	default:
		state.Status = StatusCompleted
		state.Result = result
		state.Step = result.Steps
		state.Position = result.Final
		s.metrics.Finished(StatusCompleted, spec.Algorithm, spec.Objective, result.Steps, result.Distance)
	}
}

func (s *Server) cancelRun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.runs[id]
	if !ok {
		return errRunNotFound
	}
	if state.terminal() {
		return fmt.Errorf("%w: status %s", errRunFinished, state.Status)
	}

	state.CancelFunc()
	if state.Status == StatusPending {
		// execute has not started; it will observe the status and return.
		state.Status = StatusCancelled
		now := time.Now()
		state.EndTime = &now
		state.LastUpdated = now
	}

	s.logger.Info("Run cancellation requested", map[string]interface{}{"run_id": id})
	return nil
}

// RunView is the externally visible state of a run.
type RunView struct {
	ID          string                `json:"run_id"`
	Status      string                `json:"status"`
	Algorithm   string                `json:"algorithm"`
	Objective   string                `json:"objective"`
	Progress    float64               `json:"progress"`
	Step        int                   `json:"step"`
	Steps       int                   `json:"steps"`
	Position    *optimization.Point   `json:"position,omitempty"`
	StartTime   string                `json:"start_time"`
	EndTime     string                `json:"end_time,omitempty"`
	LastUpdated string                `json:"last_update"`
	Value       *float64              `json:"value,omitempty"`
	Nearest     *optimization.Optimum `json:"nearest_optimum,omitempty"`
	Distance    *float64              `json:"distance,omitempty"`
	Diverged    bool                  `json:"diverged,omitempty"`
	History     []run.Evaluation      `json:"history,omitempty"`
	Error       string                `json:"error,omitempty"`
}

func (s *Server) view(id string) (*RunView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.runs[id]
	if !ok {
		return nil, errRunNotFound
	}

	v := &RunView{
		ID:          state.ID,
		Status:      state.Status,
		Algorithm:   state.Spec.Algorithm,
		Objective:   state.Spec.Objective,
		Step:        state.Step,
		Steps:       state.Spec.Steps,
		StartTime:   state.StartTime.Format(time.RFC3339),
		LastUpdated: state.LastUpdated.Format(time.RFC3339),
	}
	if state.Spec.Steps > 0 {
		v.Progress = float64(state.Step) / float64(state.Spec.Steps)
	} else if state.Status == StatusCompleted {
		v.Progress = 1
	}
	if state.Position.IsFinite() {
		pos := state.Position
		v.Position = &pos
	}
	if state.EndTime != nil {
		v.EndTime = state.EndTime.Format(time.RFC3339)
	}
	if state.Err != nil {
		v.Error = state.Err.Error()
	}
	if state.Result != nil && !state.Result.Finite {
		v.Diverged = true
	}
	if res := state.Result; res != nil && res.Finite && finite(res.Value) && finite(res.Distance) {
		// NaN and Inf have no JSON encoding.
		v.Value = &res.Value
		v.Nearest = &res.Nearest
		v.Distance = &res.Distance
		v.History = finiteHistory(res.History)
	}
	return v, nil
}

func finiteHistory(h []run.Evaluation) []run.Evaluation {
	out := make([]run.Evaluation, 0, len(h))
	for _, e := range h {
		if e.IsFinite() && finite(e.Value) {
			out = append(out, e)
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ObjectiveView describes a registered benchmark.
type ObjectiveView struct {
	Name   string                 `json:"name"`
	Bounds optimization.Bounds    `json:"bounds"`
	Start  optimization.Point     `json:"start"`
	Optima []optimization.Optimum `json:"optima"`
}

func objectiveViews() []ObjectiveView {
	all := objectives.All()
	out := make([]ObjectiveView, len(all))
	for i, b := range all {
		out[i] = ObjectiveView{
			Name:   b.Name(),
			Bounds: b.Bounds(),
			Start:  b.Start(),
			Optima: b.Optima(),
		}
	}
	return out
}

// Close cancels every active run and waits for their goroutines.
func (s *Server) Close() error {
	s.mu.Lock()
	for _, st := range s.runs {
		if st.CancelFunc != nil {
			st.CancelFunc()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorBody renders err for a REST response. Validation errors from the
// optimizer also name the component and operation that rejected them.
func errorBody(err error) map[string]string {
	body := map[string]string{"error": err.Error()}
	if e, ok := optimization.IsOptimizationError(err); ok {
		if e.Component != "" {
			body["component"] = e.Component
		}
		if e.Op != "" {
			body["operation"] = e.Op
		}
	}
	return body
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, errRunFinished):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// handleCreateRun handles POST /api/v1/runs.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var p StartParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	state, err := s.startRun(p)
	if err != nil {
		writeJSON(w, statusFor(err), errorBody(err))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": state.ID,
		"status": StatusPending,
	})
}

// handleGetRun handles GET /api/v1/runs/{id}.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	v, err := s.view(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, statusFor(err), errorBody(err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleCancelRun handles DELETE /api/v1/runs/{id}.
func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	if err := s.cancelRun(chi.URLParam(r, "id")); err != nil {
		writeJSON(w, statusFor(err), errorBody(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

// handleObjectives handles GET /api/v1/objectives.
func (s *Server) handleObjectives(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"objectives": objectiveViews(),
		"algorithms": run.Algorithms(),
	})
}

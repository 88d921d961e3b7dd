package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/copyleftdev/upmsp/internal/config"
	apperrors "github.com/copyleftdev/upmsp/internal/errors"
	"github.com/copyleftdev/upmsp/internal/logging"
	"github.com/copyleftdev/upmsp/internal/optimization"
	"github.com/copyleftdev/upmsp/internal/optimization/heuristic"
	"github.com/copyleftdev/upmsp/internal/optimization/neighborhood"
	"github.com/copyleftdev/upmsp/internal/problem"
	"github.com/copyleftdev/upmsp/internal/solution"
)

// Logger defines the logging interface used by the server
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeJobNotFound    = -32001
)

// JobState represents the state of a solve job. Fields other than the
// progress counters are protected by the server's jobs lock; the counters
// are written by the search goroutine through the heuristic.Callback methods.
type JobState struct {
	ID        string
	Instance  string
	Algorithm string
	Status    string
	CreatedAt time.Time
	StartTime *time.Time
	EndTime   *time.Time
	Result    *optimization.Result
	Solution  *solution.Solution
	Error     string

	cancel context.CancelFunc

	iteration      atomic.Int64
	iterationLimit atomic.Int64
	elapsed        atomic.Int64
	timeLimit      atomic.Int64
	makespan       atomic.Int64
	incumbents     atomic.Int64
}

// OnNewIncumbent records the makespan of the new best solution.
func (j *JobState) OnNewIncumbent(s *solution.Solution, _ neighborhood.Kind, elapsed, timeLimit time.Duration, iteration, iterationLimit int64) {
	j.makespan.Store(int64(s.Cost()))
	j.incumbents.Add(1)
	j.OnIteration(s, elapsed, timeLimit, iteration, iterationLimit)
}

// OnIteration records how much of the budget has been spent.
func (j *JobState) OnIteration(_ *solution.Solution, elapsed, timeLimit time.Duration, iteration, iterationLimit int64) {
	j.iteration.Store(iteration)
	j.iterationLimit.Store(iterationLimit)
	j.elapsed.Store(int64(elapsed))
	j.timeLimit.Store(int64(timeLimit))
}

// Progress is the spent fraction of whichever budget runs out first.
func (j *JobState) Progress() float64 {
	progress := 0.0
	if limit := j.timeLimit.Load(); limit > 0 {
		progress = float64(j.elapsed.Load()) / float64(limit)
	}
	if limit := j.iterationLimit.Load(); limit > 0 {
		if p := float64(j.iteration.Load()) / float64(limit); p > progress {
			progress = p
		}
	}
	if progress > 1 {
		progress = 1
	}
	return progress
}

// SolveRequest is the body of POST /api/v1/solve and the params object of
// the schedule.solve method.
type SolveRequest struct {
	// Name labels the instance in logs and status responses.
	Name string `json:"name"`
	// Instance is the instance file content.
	Instance string         `json:"instance"`
	Params   *ParamsRequest `json:"params,omitempty"`
}

// ParamsRequest overrides the server's search defaults field by field.
type ParamsRequest struct {
	Algorithm                *string  `json:"algorithm,omitempty"`
	Seed                     *int64   `json:"seed,omitempty"`
	Initial                  *string  `json:"initial,omitempty"`
	InitialTemperature       *float64 `json:"initial_temperature,omitempty"`
	CoolingRate              *float64 `json:"cooling_rate,omitempty"`
	IterationsPerTemperature *int     `json:"iterations_per_temperature,omitempty"`
	UpdateFrequency          *int64   `json:"update_frequency,omitempty"`
	MaxProbability           *float64 `json:"max_probability,omitempty"`
	TimeLimitMillis          *int64   `json:"time_limit_ms,omitempty"`
	IterationsLimit          *int64   `json:"iterations_limit,omitempty"`
	Disable                  []string `json:"disable,omitempty"`
}

func (r *ParamsRequest) apply(p *optimization.Params) {
	if r == nil {
		return
	}
	if r.Algorithm != nil {
		p.Algorithm = *r.Algorithm
	}
	if r.Seed != nil {
		p.Seed = *r.Seed
	}
	if r.Initial != nil {
		p.Initial = *r.Initial
	}
	if r.InitialTemperature != nil {
		p.InitialTemperature = *r.InitialTemperature
	}
	if r.CoolingRate != nil {
		p.CoolingRate = *r.CoolingRate
	}
	if r.IterationsPerTemperature != nil {
		p.IterationsPerTemperature = *r.IterationsPerTemperature
	}
	if r.UpdateFrequency != nil {
		p.UpdateFrequency = *r.UpdateFrequency
	}
	if r.MaxProbability != nil {
		p.MaxProbability = *r.MaxProbability
	}
	if r.TimeLimitMillis != nil {
		p.TimeLimit = time.Duration(*r.TimeLimitMillis) * time.Millisecond
	}
	if r.IterationsLimit != nil {
		p.IterationsLimit = *r.IterationsLimit
	}
	if r.Disable != nil {
		p.DisabledMoves = append([]string(nil), r.Disable...)
	}
}

// MoveResponse is the JSON form of optimization.MoveStatistics.
type MoveResponse struct {
	Name         string `json:"name"`
	Calls        int64  `json:"calls"`
	Improvements int64  `json:"improvements"`
	Sideways     int64  `json:"sideways"`
	Accepts      int64  `json:"accepts"`
	Rejects      int64  `json:"rejects"`
}

// ResultResponse is the JSON form of optimization.Result.
type ResultResponse struct {
	Makespan   int            `json:"makespan"`
	Iterations int64          `json:"iterations"`
	ElapsedMs  int64          `json:"elapsed_ms"`
	Feasible   bool           `json:"feasible"`
	StopReason string         `json:"stop_reason,omitempty"`
	Moves      []MoveResponse `json:"moves"`
}

// StatusResponse describes a job.
type StatusResponse struct {
	ID           string          `json:"job_id"`
	Instance     string          `json:"instance"`
	Algorithm    string          `json:"algorithm"`
	Status       string          `json:"status"`
	Progress     float64         `json:"progress"`
	Iteration    int64           `json:"iteration"`
	BestMakespan *int64          `json:"best_makespan,omitempty"`
	CreatedAt    string          `json:"created_at"`
	StartTime    string          `json:"start_time,omitempty"`
	EndTime      string          `json:"end_time,omitempty"`
	Result       *ResultResponse `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// Server implements the HTTP and JSON-RPC API of the scheduling service.
// It runs solve jobs in the background and lets clients follow and collect them.
type Server struct {
	cfg     *config.Config
	logger  Logger
	engine  *zap.Logger
	metrics *heuristic.Metrics

	jobs   map[string]*JobState
	jobsMu sync.RWMutex
	seq    atomic.Int64

	slots  chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a new server instance with the given config and logger.
// metrics may be nil.
func NewServer(cfg *config.Config, logger Logger, metrics *heuristic.Metrics) *Server {
	maxJobs := cfg.HTTP.MaxJobs
	if maxJobs <= 0 {
		maxJobs = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		logger:  logger,
		engine:  logging.NewZapLogger(logger.WithFields(map[string]interface{}{"component": "engine"})),
		metrics: metrics,
		jobs:    make(map[string]*JobState),
		slots:   make(chan struct{}, maxJobs),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/solve", s.handleSolve)
		r.Get("/status/{id}", s.handleStatus)
		r.Get("/solution/{id}", s.handleSolution)
		r.Delete("/jobs/{id}", s.handleDelete)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.Respond(w, apperrors.BadRequest(err, "decode request"))
		return
	}
	state, err := s.startJob(req)
	if err != nil {
		apperrors.Respond(w, err)
		return
	}
	logging.FromContext(r.Context()).Info("Solve job accepted", map[string]interface{}{
		"job_id":   state.ID,
		"instance": state.Instance,
	})
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": state.ID,
		"status": StatusPending,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.status(chi.URLParam(r, "id"))
	if err != nil {
		apperrors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleSolution writes the best solution of a finished job in the solution
// file format.
func (s *Server) handleSolution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.jobsMu.RLock()
	state, ok := s.jobs[id]
	var sol *solution.Solution
	var status string
	if ok {
		sol, status = state.Solution, state.Status
	}
	s.jobsMu.RUnlock()

	if !ok {
		apperrors.Respond(w, jobNotFound(id))
		return
	}
	if sol == nil {
		apperrors.Respond(w, apperrors.Conflictf("job %s has no solution (status %s)", id, status))
		return
	}

	var buf bytes.Buffer
	if err := sol.Write(&buf); err != nil {
		apperrors.Respond(w, apperrors.Wrap(err, "write solution"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleDelete cancels a pending job or forgets a finished one. Running
// jobs cannot be interrupted and yield 409.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deleteJob(id); err != nil {
		apperrors.Respond(w, err)
		return
	}
	logging.FromContext(r.Context()).Info("Job deleted", map[string]interface{}{"job_id": id})
	w.WriteHeader(http.StatusNoContent)
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      interface{}     `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, codeParseError, "Parse error", nil)
		return
	}

	if request.JSONRPC != "2.0" {
		s.respondWithError(w, codeInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	switch request.Method {
	case "schedule.solve":
		var req SolveRequest
		if err := json.Unmarshal(request.Params, &req); err != nil {
			s.respondWithError(w, codeInvalidParams, "Invalid params", request.ID)
			return
		}
		state, err := s.startJob(req)
		if err != nil {
			s.respondWithError(w, rpcCode(err), err.Error(), request.ID)
			return
		}
		result = map[string]interface{}{"job_id": state.ID, "status": StatusPending}
	case "schedule.status":
		var params struct {
			ID string `json:"job_id"`
		}
		if err := json.Unmarshal(request.Params, &params); err != nil || params.ID == "" {
			s.respondWithError(w, codeInvalidParams, "job_id is required", request.ID)
			return
		}
		status, err := s.status(params.ID)
		if err != nil {
			s.respondWithError(w, rpcCode(err), err.Error(), request.ID)
			return
		}
		result = status
	default:
		s.respondWithError(w, codeMethodNotFound, "Method not found", request.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}

func rpcCode(err error) int {
	switch apperrors.StatusCode(err) {
	case http.StatusBadRequest:
		return codeInvalidParams
	case http.StatusNotFound:
		return codeJobNotFound
	}
	return codeServerError
}

// startJob parses the instance, prepares the search and queues it. Every
// configuration error is reported here with status 400.
func (s *Server) startJob(req SolveRequest) (*JobState, error) {
	if strings.TrimSpace(req.Instance) == "" {
		return nil, apperrors.New("instance is required").WithStatus(http.StatusBadRequest)
	}
	name := req.Name
	if name == "" {
		name = "instance"
	}
	p, err := problem.Parse(name, strings.NewReader(req.Instance))
	if err != nil {
		return nil, apperrors.BadRequest(err, "parse instance")
	}

	params := s.cfg.SearchParams()
	req.Params.apply(&params)

	id := fmt.Sprintf("job_%d_%d", time.Now().UnixNano(), s.seq.Add(1))
	engine := s.engine.With(zap.String("job_id", id), zap.String("instance", name))
	job, err := heuristic.Prepare(params, p, heuristic.WithLogger(engine), heuristic.WithMetrics(s.metrics))
	if err != nil {
		return nil, apperrors.BadRequest(err, "invalid search parameters")
	}

	ctx, cancel := context.WithCancel(s.ctx)
	state := &JobState{
		ID:        id,
		Instance:  name,
		Algorithm: job.Algorithm.String(),
		Status:    StatusPending,
		CreatedAt: time.Now(),
		cancel:    cancel,
	}

	s.jobsMu.Lock()
	s.jobs[id] = state
	s.jobsMu.Unlock()

	s.wg.Add(1)
	go s.runJob(ctx, state, job)
	return state, nil
}

// runJob waits for a free slot and runs the search to completion.
func (s *Server) runJob(ctx context.Context, state *JobState, job *heuristic.Job) {
	defer s.wg.Done()
	defer state.cancel()

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		s.finish(state, StatusCancelled, nil, nil, ctx.Err())
		return
	}
	if ctx.Err() != nil {
		s.finish(state, StatusCancelled, nil, nil, ctx.Err())
		return
	}

	s.jobsMu.Lock()
	now := time.Now()
	state.Status = StatusRunning
	state.StartTime = &now
	s.jobsMu.Unlock()

	s.logger.Info("Solve job started", map[string]interface{}{
		"job_id":    state.ID,
		"instance":  state.Instance,
		"algorithm": state.Algorithm,
		"jobs":      job.Problem.NJobs,
		"machines":  job.Problem.NMachines,
	})

	best, result, err := job.Run(state)
	switch {
	case err != nil && !apperrors.Is(err, optimization.ErrNoFeasibleMove):
		s.finish(state, StatusFailed, best, &result, err)
	default:
		// Running out of feasible moves still leaves a valid best solution.
		s.finish(state, StatusCompleted, best, &result, err)
	}
}

func (s *Server) finish(state *JobState, status string, best *solution.Solution, result *optimization.Result, err error) {
	s.jobsMu.Lock()
	now := time.Now()
	state.Status = status
	state.EndTime = &now
	state.Solution = best
	state.Result = result
	if err != nil {
		state.Error = err.Error()
	}
	s.jobsMu.Unlock()

	fields := map[string]interface{}{
		"job_id": state.ID,
		"status": status,
	}
	if result != nil {
		fields["makespan"] = result.Makespan
		fields["iterations"] = result.Iterations
		fields["elapsed_ms"] = result.Elapsed.Milliseconds()
	}
	if status == StatusFailed {
		s.logger.WithFields(fields).WithError(err).Error("Solve job failed")
		return
	}
	s.logger.Info("Solve job finished", fields)
}

func (s *Server) status(id string) (*StatusResponse, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	state, ok := s.jobs[id]
	if !ok {
		return nil, jobNotFound(id)
	}

	resp := &StatusResponse{
		ID:        state.ID,
		Instance:  state.Instance,
		Algorithm: state.Algorithm,
		Status:    state.Status,
		Progress:  state.Progress(),
		Iteration: state.iteration.Load(),
		CreatedAt: state.CreatedAt.Format(time.RFC3339),
		Error:     state.Error,
	}
	if state.incumbents.Load() > 0 {
		best := state.makespan.Load()
		resp.BestMakespan = &best
	}
	if state.StartTime != nil {
		resp.StartTime = state.StartTime.Format(time.RFC3339)
	}
	if state.EndTime != nil {
		resp.EndTime = state.EndTime.Format(time.RFC3339)
	}
	if r := state.Result; r != nil {
		resp.Progress = 1
		resp.Iteration = r.Iterations
		best := int64(r.Makespan)
		resp.BestMakespan = &best
		resp.Result = resultResponse(r)
	}
	return resp, nil
}

func resultResponse(r *optimization.Result) *ResultResponse {
	out := &ResultResponse{
		Makespan:   r.Makespan,
		Iterations: r.Iterations,
		ElapsedMs:  r.Elapsed.Milliseconds(),
		Feasible:   r.Feasible,
		Moves:      make([]MoveResponse, len(r.Moves)),
	}
	if r.Err != nil {
		out.StopReason = r.Err.Error()
	}
	for i, m := range r.Moves {
		out.Moves[i] = MoveResponse(m)
	}
	return out
}

func (s *Server) deleteJob(id string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	state, ok := s.jobs[id]
	if !ok {
		return jobNotFound(id)
	}
	if state.Status == StatusRunning {
		return apperrors.Conflictf("job %s is running", id)
	}
	state.cancel()
	delete(s.jobs, id)
	return nil
}

func jobNotFound(id string) *apperrors.Error {
	return apperrors.NotFoundf("job %s not found", id)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Close cancels pending jobs and waits for running ones to finish.
func (s *Server) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

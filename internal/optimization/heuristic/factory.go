package heuristic

import (
	"math/rand"
	"strings"
	"time"

	"github.com/copyleftdev/upmsp/internal/optimization"
	"github.com/copyleftdev/upmsp/internal/optimization/neighborhood"
	"github.com/copyleftdev/upmsp/internal/optimization/utility"
	"github.com/copyleftdev/upmsp/internal/problem"
	"github.com/copyleftdev/upmsp/internal/solution"
)

// New builds the algorithm named by params and registers the moves of every
// enabled family. Moves and algorithm share rng.
func New(params optimization.Params, rng *rand.Rand, opts ...Option) (Algorithm, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	moves, err := neighborhood.Build(rng, params.DisabledMoves)
	if err != nil {
		return nil, optimization.WrapError(optimization.ErrInvalidParameter, err.Error()).WithComponent("params")
	}

	var alg Algorithm
	switch strings.ToLower(params.Algorithm) {
	case optimization.AlgorithmAdaptiveSA:
		model, err := utility.LoadStandardModel(params.CoefficientsFile)
		if err != nil {
			return nil, err
		}
		alg, err = NewAdaptiveSA(rng, params.InitialTemperature, params.CoolingRate, params.IterationsPerTemperature,
			model, params.UpdateFrequency, params.MaxProbability, opts...)
		if err != nil {
			return nil, err
		}
	default:
		alg, err = NewSA(rng, params.InitialTemperature, params.CoolingRate, params.IterationsPerTemperature, opts...)
		if err != nil {
			return nil, err
		}
	}

	for _, mv := range moves {
		alg.AddMove(mv)
	}
	if adaptive, ok := alg.(*AdaptiveSA); ok {
		if err := adaptive.validateCap(); err != nil {
			return nil, err
		}
	}
	return alg, nil
}

// TimeLimit returns params.TimeLimit, or the budget derived from the
// instance size when it is negative.
func TimeLimit(params optimization.Params, p *problem.Problem) time.Duration {
	if params.TimeLimit >= 0 {
		return params.TimeLimit
	}
	return time.Duration(p.DefaultTimeLimitMillis()) * time.Millisecond
}

// Job is a search ready to run: algorithm, seeded random source and problem.
type Job struct {
	Params    optimization.Params
	Problem   *problem.Problem
	Algorithm Algorithm
	rng       *rand.Rand
}

// Prepare seeds a random source with params.Seed and builds the algorithm,
// surfacing every configuration error before anything runs.
func Prepare(params optimization.Params, p *problem.Problem, opts ...Option) (*Job, error) {
	if p == nil {
		return nil, optimization.InvalidParameterf("params", "problem is required")
	}
	rng := rand.New(rand.NewSource(params.Seed))
	alg, err := New(params, rng, opts...)
	if err != nil {
		return nil, err
	}
	return &Job{Params: params, Problem: p, Algorithm: alg, rng: rng}, nil
}

// Initial builds the starting solution named by Params.Initial.
func (j *Job) Initial() *solution.Solution {
	if strings.EqualFold(j.Params.Initial, optimization.InitialGreedy) {
		return solution.Greedy(j.Problem)
	}
	return solution.Random(j.Problem, j.rng)
}

// Run constructs the initial solution and searches until the budget is
// spent. The time taken by the constructive counts against the budget. The
// returned solution is never nil.
func (j *Job) Run(cb Callback) (*solution.Solution, optimization.Result, error) {
	start := time.Now()
	initial := j.Initial()
	limit := TimeLimit(j.Params, j.Problem) - time.Since(start)

	best, err := j.Algorithm.Run(initial, limit, j.Params.IterationsLimit, cb)
	result := optimization.Result{
		Algorithm:  j.Params.Algorithm,
		Makespan:   best.Cost(),
		Iterations: j.Algorithm.Iterations(),
		Elapsed:    time.Since(start),
		Feasible:   best.Validate().Feasible(),
		Moves:      MoveStatistics(j.Algorithm.Moves()),
		Err:        err,
	}
	return best, result, err
}

// Solve prepares and runs one search on p. The returned solution is nil only
// when the configuration is invalid.
func Solve(params optimization.Params, p *problem.Problem, cb Callback, opts ...Option) (*solution.Solution, optimization.Result, error) {
	job, err := Prepare(params, p, opts...)
	if err != nil {
		return nil, optimization.Result{Algorithm: params.Algorithm}, err
	}
	return job.Run(cb)
}

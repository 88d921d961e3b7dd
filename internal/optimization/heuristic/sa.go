package heuristic

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/upmsp/internal/optimization"
	"github.com/copyleftdev/upmsp/internal/optimization/neighborhood"
	"github.com/copyleftdev/upmsp/internal/solution"
)

// SA is simulated annealing with a geometric cooling schedule: the
// temperature is multiplied by the cooling rate every
// iterationsPerTemperature iterations.
type SA struct {
	*Heuristic

	initialTemperature       float64
	coolingRate              float64
	iterationsPerTemperature int64

	temperature float64
}

// NewSA validates the schedule and returns an SA with an empty registry.
func NewSA(rng *rand.Rand, initialTemperature, coolingRate float64, iterationsPerTemperature int, opts ...Option) (*SA, error) {
	return newSA(optimization.AlgorithmSA, rng, initialTemperature, coolingRate, iterationsPerTemperature, opts...)
}

func newSA(name string, rng *rand.Rand, initialTemperature, coolingRate float64, iterationsPerTemperature int, opts ...Option) (*SA, error) {
	if rng == nil {
		return nil, optimization.InvalidParameterf(name, "random source is required")
	}
	if !(initialTemperature > 0) || math.IsInf(initialTemperature, 0) {
		return nil, optimization.InvalidParameterf(name, "initial temperature must be > 0 (got %v)", initialTemperature)
	}
	if !(coolingRate > 0 && coolingRate < 1) {
		return nil, optimization.InvalidParameterf(name, "cooling rate must lie in (0, 1) (got %v)", coolingRate)
	}
	if iterationsPerTemperature <= 0 {
		return nil, optimization.InvalidParameterf(name, "iterations per temperature must be > 0 (got %d)", iterationsPerTemperature)
	}
	return &SA{
		Heuristic:                newHeuristic(name, rng, opts...),
		initialTemperature:       initialTemperature,
		coolingRate:              coolingRate,
		iterationsPerTemperature: int64(iterationsPerTemperature),
		temperature:              initialTemperature,
	}, nil
}

// Temperature returns the current temperature.
func (sa *SA) Temperature() float64 { return sa.temperature }

func (sa *SA) String() string {
	return fmt.Sprintf("%s(T0=%g, r=%g, k=%d, moves=%d)",
		sa.name, sa.initialTemperature, sa.coolingRate, sa.iterationsPerTemperature, len(sa.moves))
}

// Run implements Algorithm with uniform move selection.
func (sa *SA) Run(initial *solution.Solution, timeLimit time.Duration, maxIterations int64, cb Callback) (*solution.Solution, error) {
	return sa.anneal(initial, timeLimit, maxIterations, cb, sa.selectMove, nil)
}

// anneal is the loop shared by SA and AdaptiveSA. selectFn picks the move of
// each iteration; before, when set, runs ahead of every iteration with the
// number of iterations completed so far.
func (sa *SA) anneal(
	initial *solution.Solution,
	timeLimit time.Duration,
	maxIterations int64,
	cb Callback,
	selectFn func(*solution.Solution) (neighborhood.Move, error),
	before func(iteration int64),
) (*solution.Solution, error) {
	sa.ResetMoves()
	sa.iterations = 0
	sa.temperature = sa.initialTemperature
	sa.best = initial.Clone()
	sa.metrics.setTemperature(sa.name, sa.temperature)
	sa.metrics.setBest(sa.name, sa.best.Cost())

	if len(sa.moves) == 0 || maxIterations <= 0 {
		return sa.best, nil
	}

	sa.logger.Info("Starting search",
		zap.String("heuristic", sa.String()),
		zap.Int("initial_cost", initial.Cost()),
		zap.Duration("time_limit", timeLimit),
		zap.Int64("max_iterations", maxIterations))

	current := initial.Clone()
	start := time.Now()
	var err error

	for sa.iterations < maxIterations {
		elapsed := time.Since(start)
		if elapsed >= timeLimit {
			break
		}
		if before != nil {
			before(sa.iterations)
		}

		mv, selErr := selectFn(current)
		if selErr != nil {
			err = selErr
			sa.logger.Warn("No feasible move, stopping early",
				zap.Int64("iteration", sa.iterations),
				zap.Int("best_cost", sa.best.Cost()))
			break
		}

		improved := false
		delta := mv.Evaluate(current)
		if delta <= 0 || sa.rng.Float64() < math.Exp(-float64(delta)/sa.temperature) {
			sa.acceptMove(mv)
			if current.Cost() < sa.best.Cost() {
				sa.best.CopyFrom(current)
				improved = true
			}
		} else {
			sa.rejectMove(mv)
		}

		sa.iterations++
		sa.metrics.iteration(sa.name)
		if sa.iterations%sa.iterationsPerTemperature == 0 {
			sa.temperature *= sa.coolingRate
			sa.metrics.setTemperature(sa.name, sa.temperature)
		}

		if improved {
			sa.metrics.setBest(sa.name, sa.best.Cost())
			if cb != nil {
				cb.OnNewIncumbent(sa.best, mv.Kind(), time.Since(start), timeLimit, sa.iterations, maxIterations)
			}
		}
		if cb != nil {
			cb.OnIteration(sa.best, time.Since(start), timeLimit, sa.iterations, maxIterations)
		}
	}

	sa.logger.Info("Search finished",
		zap.Int("best_cost", sa.best.Cost()),
		zap.Int64("iterations", sa.iterations),
		zap.Duration("elapsed", time.Since(start)),
		zap.Float64("temperature", sa.temperature))
	return sa.best, err
}

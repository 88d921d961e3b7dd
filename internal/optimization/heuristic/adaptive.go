package heuristic

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/upmsp/internal/optimization"
	"github.com/copyleftdev/upmsp/internal/optimization/neighborhood"
	"github.com/copyleftdev/upmsp/internal/optimization/utility"
	"github.com/copyleftdev/upmsp/internal/solution"
)

// capTolerance absorbs rounding when checking maxProbability·|moves| >= 1.
const capTolerance = 1e-9

// AdaptiveSA is SA with move selection driven by a probability vector that
// the utility model recomputes every updateFrequency iterations.
type AdaptiveSA struct {
	*SA

	model           utility.Model
	updateFrequency int64
	maxProbability  float64

	probabilities []float64
	clamped       []bool
	cumulative    []float64
}

// NewAdaptiveSA validates the parameters and returns an AdaptiveSA with an
// empty registry.
func NewAdaptiveSA(
	rng *rand.Rand,
	initialTemperature, coolingRate float64,
	iterationsPerTemperature int,
	model utility.Model,
	updateFrequency int64,
	maxProbability float64,
	opts ...Option,
) (*AdaptiveSA, error) {
	const name = optimization.AlgorithmAdaptiveSA
	if model == nil {
		return nil, optimization.InvalidParameterf(name, "utility model is required")
	}
	if updateFrequency <= 0 {
		return nil, optimization.InvalidParameterf(name, "update frequency must be > 0 (got %d)", updateFrequency)
	}
	if !(maxProbability > 0 && maxProbability <= 1) {
		return nil, optimization.InvalidParameterf(name, "max probability must lie in (0, 1] (got %v)", maxProbability)
	}
	sa, err := newSA(name, rng, initialTemperature, coolingRate, iterationsPerTemperature, opts...)
	if err != nil {
		return nil, err
	}
	return &AdaptiveSA{
		SA:              sa,
		model:           model,
		updateFrequency: updateFrequency,
		maxProbability:  maxProbability,
	}, nil
}

func (a *AdaptiveSA) String() string {
	return fmt.Sprintf("%s(T0=%g, r=%g, k=%d, model=%s, freq=%d, pmax=%g, moves=%d)",
		a.name, a.initialTemperature, a.coolingRate, a.iterationsPerTemperature,
		a.model.Name(), a.updateFrequency, a.maxProbability, len(a.moves))
}

// Probabilities returns the current selection vector, aligned with Moves.
func (a *AdaptiveSA) Probabilities() []float64 { return a.probabilities }

// Run implements Algorithm with probability-weighted move selection.
func (a *AdaptiveSA) Run(initial *solution.Solution, timeLimit time.Duration, maxIterations int64, cb Callback) (*solution.Solution, error) {
	if err := a.validateCap(); err != nil {
		return initial.Clone(), err
	}
	n := len(a.moves)

	a.probabilities = resize(a.probabilities, n)
	a.clamped = make([]bool, n)
	for i, mv := range a.moves {
		a.probabilities[i] = float64(mv.Priority())
	}
	if err := cappedNormalize(a.probabilities, a.maxProbability, a.clamped); err != nil {
		return initial.Clone(), err
	}
	a.publishProbabilities()

	return a.anneal(initial, timeLimit, maxIterations, cb, a.selectWeighted, a.maybeReweight)
}

// validateCap fails when maxProbability is too small for the registered
// moves to sum to one.
func (a *AdaptiveSA) validateCap() error {
	n := len(a.moves)
	if n > 0 && a.maxProbability*float64(n) < 1-capTolerance {
		return optimization.InvalidParameterf(a.name,
			"max probability %v cannot cover %d moves", a.maxProbability, n)
	}
	return nil
}

func (a *AdaptiveSA) maybeReweight(iteration int64) {
	if iteration == 0 || iteration%a.updateFrequency != 0 {
		return
	}
	a.reweight()
}

// reweight scores every move and turns the scores into a capped probability
// vector.
func (a *AdaptiveSA) reweight() {
	for i, mv := range a.moves {
		st := mv.Stats()
		a.probabilities[i] = a.model.Score(&st, mv.Priority())
	}
	// The cap was validated at run start, so this cannot fail.
	_ = cappedNormalize(a.probabilities, a.maxProbability, a.clamped)
	a.publishProbabilities()

	if ce := a.logger.Check(zap.DebugLevel, "Reweighted moves"); ce != nil {
		ce.Write(zap.Int64("iteration", a.iterations), zap.Float64s("probabilities", a.probabilities))
	}
}

func (a *AdaptiveSA) publishProbabilities() {
	if a.metrics == nil {
		return
	}
	for i, mv := range a.moves {
		a.metrics.setProbability(mv.Name(), a.probabilities[i])
	}
}

// selectWeighted draws among the moves applicable to s with the current
// probabilities renormalised over them.
func (a *AdaptiveSA) selectWeighted(s *solution.Solution) (neighborhood.Move, error) {
	if err := a.collectFeasible(s); err != nil {
		return nil, err
	}
	a.cumulative = resize(a.cumulative, len(a.feasible))
	for i, idx := range a.feasible {
		a.cumulative[i] = a.probabilities[idx]
	}
	floats.CumSum(a.cumulative, a.cumulative)

	total := a.cumulative[len(a.cumulative)-1]
	if !(total > 0) {
		return a.moves[a.feasible[a.rng.Intn(len(a.feasible))]], nil
	}
	r := a.rng.Float64() * total
	k := sort.Search(len(a.cumulative), func(i int) bool { return a.cumulative[i] > r })
	if k == len(a.cumulative) {
		k--
	}
	return a.moves[a.feasible[k]], nil
}

// CappedNormalize rescales w in place so that it sums to 1 and no entry
// exceeds maxProbability. Entries above the cap are clamped and the excess is
// spread over the others in proportion to their mass, or evenly when they
// have none, until no entry exceeds the cap. A w with no positive mass
// becomes uniform.
func CappedNormalize(w []float64, maxProbability float64) error {
	return cappedNormalize(w, maxProbability, make([]bool, len(w)))
}

func cappedNormalize(w []float64, maxProbability float64, clamped []bool) error {
	n := len(w)
	if n == 0 {
		return nil
	}
	if !(maxProbability > 0) || maxProbability*float64(n) < 1-capTolerance {
		return optimization.InvalidParameterf("normalize",
			"max probability %v cannot cover %d entries", maxProbability, n)
	}

	sum := floats.Sum(w)
	if !(sum > 0) {
		for i := range w {
			w[i] = 1 / float64(n)
		}
	} else {
		floats.Scale(1/sum, w)
	}

	for i := range clamped {
		clamped[i] = false
	}
	for {
		excess := 0.0
		for i, p := range w {
			if !clamped[i] && p > maxProbability {
				excess += p - maxProbability
				w[i] = maxProbability
				clamped[i] = true
			}
		}
		if excess <= 0 {
			return nil
		}

		free, open := 0.0, 0
		for i, p := range w {
			if !clamped[i] {
				free += p
				open++
			}
		}
		if open == 0 {
			return nil
		}
		for i := range w {
			if clamped[i] {
				continue
			}
			if free > 0 {
				w[i] += excess * w[i] / free
			} else {
				w[i] += excess / float64(open)
			}
		}
	}
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

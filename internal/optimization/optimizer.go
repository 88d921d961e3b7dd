// Package optimization holds what the search algorithms share: run
// parameters, results and errors.
package optimization

import (
	"math"
	"strings"
	"time"
)

// DeriveTimeLimit, or any negative TimeLimit, asks for the budget derived
// from the instance size.
const DeriveTimeLimit time.Duration = -1

// Algorithm names accepted by Params.
const (
	AlgorithmSA         = "sa"
	AlgorithmAdaptiveSA = "adaptive-sa"
)

// Constructives accepted by Params.Initial. An empty Initial means
// InitialRandom.
const (
	InitialRandom = "random"
	InitialGreedy = "greedy"
)

// Params is the configuration surface of a search run.
type Params struct {
	// Algorithm is AlgorithmSA or AlgorithmAdaptiveSA.
	Algorithm string

	// Seed of the run's pseudo-random source.
	Seed int64

	// Initial names the constructive building the starting solution.
	Initial string

	InitialTemperature       float64
	CoolingRate              float64
	IterationsPerTemperature int

	// CoefficientsFile parametrises the utility model of AdaptiveSA.
	CoefficientsFile string
	UpdateFrequency  int64
	MaxProbability   float64

	// TimeLimit < 0 derives the budget from the instance size; 0 allows no
	// iteration at all.
	TimeLimit       time.Duration
	IterationsLimit int64

	// DisabledMoves lists neighbourhood families left out of the registry.
	DisabledMoves []string
}

// DefaultParams returns the defaults of the optimize command.
func DefaultParams() Params {
	return Params{
		Algorithm:                AlgorithmSA,
		Initial:                  InitialRandom,
		InitialTemperature:       1.0,
		CoolingRate:              0.96,
		IterationsPerTemperature: 1176628,
		UpdateFrequency:          1,
		MaxProbability:           1,
		TimeLimit:                DeriveTimeLimit,
		IterationsLimit:          math.MaxInt64,
	}
}

// Validate checks value ranges. It does not touch the coefficients file.
func (p Params) Validate() error {
	const component = "params"
	switch strings.ToLower(p.Algorithm) {
	case AlgorithmSA:
	case AlgorithmAdaptiveSA:
		if p.CoefficientsFile == "" {
			return InvalidParameterf(component, "algorithm %s requires a coefficients file", AlgorithmAdaptiveSA)
		}
		if p.UpdateFrequency <= 0 {
			return InvalidParameterf(component, "update frequency must be > 0 (got %d)", p.UpdateFrequency)
		}
		if !(p.MaxProbability > 0 && p.MaxProbability <= 1) {
			return InvalidParameterf(component, "max probability must lie in (0, 1] (got %v)", p.MaxProbability)
		}
	default:
		return WrapErrorf(ErrUnknownAlgorithm, "%q (expected %s or %s)", p.Algorithm, AlgorithmSA, AlgorithmAdaptiveSA).
			WithComponent(component)
	}
	switch strings.ToLower(p.Initial) {
	case "", InitialRandom, InitialGreedy:
	default:
		return InvalidParameterf(component, "unknown initial solution %q (expected %s or %s)", p.Initial, InitialRandom, InitialGreedy)
	}
	if !(p.InitialTemperature > 0) || math.IsInf(p.InitialTemperature, 0) {
		return InvalidParameterf(component, "initial temperature must be > 0 (got %v)", p.InitialTemperature)
	}
	if !(p.CoolingRate > 0 && p.CoolingRate < 1) {
		return InvalidParameterf(component, "cooling rate must lie in (0, 1) (got %v)", p.CoolingRate)
	}
	if p.IterationsPerTemperature <= 0 {
		return InvalidParameterf(component, "iterations per temperature must be > 0 (got %d)", p.IterationsPerTemperature)
	}
	if p.IterationsLimit < 0 {
		return InvalidParameterf(component, "iterations limit must be >= 0 (got %d)", p.IterationsLimit)
	}
	return nil
}

// MoveStatistics is a snapshot of one move's counters.
type MoveStatistics struct {
	Name         string
	Calls        int64
	Improvements int64
	Sideways     int64
	Accepts      int64
	Rejects      int64
}

// Result summarises a finished run.
type Result struct {
	Algorithm  string
	Makespan   int
	Iterations int64
	Elapsed    time.Duration
	Feasible   bool
	Moves      []MoveStatistics
	// Err is set when the run stopped early, for instance on ErrNoFeasibleMove.
	Err error
}

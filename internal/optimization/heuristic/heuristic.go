// Package heuristic drives local search over UPMSP solutions. Heuristic holds
// the move registry shared by the algorithms; SA and AdaptiveSA implement the
// search loop.
package heuristic

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/upmsp/internal/optimization"
	"github.com/copyleftdev/upmsp/internal/optimization/neighborhood"
	"github.com/copyleftdev/upmsp/internal/solution"
)

// Callback receives synchronous notifications from inside the search loop.
// A slow callback delays the search.
type Callback interface {
	// OnNewIncumbent fires once per strict improvement of the best solution.
	OnNewIncumbent(incumbent *solution.Solution, kind neighborhood.Kind, elapsed, timeLimit time.Duration, iteration, iterationLimit int64)
	// OnIteration fires once per iteration.
	OnIteration(incumbent *solution.Solution, elapsed, timeLimit time.Duration, iteration, iterationLimit int64)
}

// Algorithm is a search strategy with its move registry.
type Algorithm interface {
	AddMove(mv neighborhood.Move)
	Moves() []neighborhood.Move
	// Run searches from initial, which is left untouched, until either
	// budget is spent. The best solution found is returned even when err is
	// non-nil.
	Run(initial *solution.Solution, timeLimit time.Duration, maxIterations int64, cb Callback) (*solution.Solution, error)
	Best() *solution.Solution
	Iterations() int64
	String() string
}

// Option configures a Heuristic.
type Option func(*Heuristic)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Heuristic) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics records run progress into m.
func WithMetrics(m *Metrics) Option {
	return func(h *Heuristic) { h.metrics = m }
}

// Heuristic is the state every algorithm shares: the random source, the
// move registry sorted by descending priority and the run counters.
type Heuristic struct {
	name       string
	rng        *rand.Rand
	moves      []neighborhood.Move
	sumWeights int

	best       *solution.Solution
	iterations int64

	logger  *zap.Logger
	metrics *Metrics

	feasible []int
}

func newHeuristic(name string, rng *rand.Rand, opts ...Option) *Heuristic {
	h := &Heuristic{
		name:   name,
		rng:    rng,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named(name)
	return h
}

// AddMove registers mv. The registry stays sorted by descending priority;
// moves of equal priority keep their registration order.
func (h *Heuristic) AddMove(mv neighborhood.Move) {
	h.moves = append(h.moves, mv)
	sort.SliceStable(h.moves, func(i, j int) bool {
		return h.moves[i].Priority() > h.moves[j].Priority()
	})
	h.sumWeights += mv.Priority()
}

// Moves returns the registry. The slice must not be modified.
func (h *Heuristic) Moves() []neighborhood.Move { return h.moves }

// SumWeights is the sum of the registered priorities.
func (h *Heuristic) SumWeights() int { return h.sumWeights }

// Best returns the incumbent of the last run, or nil before the first run.
func (h *Heuristic) Best() *solution.Solution { return h.best }

// Iterations returns the number of iterations of the last run.
func (h *Heuristic) Iterations() int64 { return h.iterations }

func (h *Heuristic) String() string {
	return fmt.Sprintf("%s(moves=%d)", h.name, len(h.moves))
}

// ResetMoves zeroes the statistics of every registered move.
func (h *Heuristic) ResetMoves() {
	for _, mv := range h.moves {
		mv.Reset()
	}
}

// collectFeasible fills h.feasible with the indices of the moves applicable
// to s and fails when there are none.
func (h *Heuristic) collectFeasible(s *solution.Solution) error {
	h.feasible = h.feasible[:0]
	for i, mv := range h.moves {
		if mv.HasMove(s) {
			h.feasible = append(h.feasible, i)
		}
	}
	if len(h.feasible) == 0 {
		return &optimization.NoFeasibleMoveError{Iteration: h.iterations, Registered: len(h.moves)}
	}
	return nil
}

// selectMove draws uniformly among the moves applicable to s. Priorities
// only order the registry here; AdaptiveSA turns them into initial weights.
func (h *Heuristic) selectMove(s *solution.Solution) (neighborhood.Move, error) {
	if err := h.collectFeasible(s); err != nil {
		return nil, err
	}
	return h.moves[h.feasible[h.rng.Intn(len(h.feasible))]], nil
}

func (h *Heuristic) acceptMove(mv neighborhood.Move) {
	mv.Accept()
	h.metrics.outcome(mv.Name(), true)
}

func (h *Heuristic) rejectMove(mv neighborhood.Move) {
	mv.Reject()
	h.metrics.outcome(mv.Name(), false)
}

// MoveStatistics snapshots the counters of every registered move.
func MoveStatistics(moves []neighborhood.Move) []optimization.MoveStatistics {
	out := make([]optimization.MoveStatistics, len(moves))
	for i, mv := range moves {
		st := mv.Stats()
		out[i] = optimization.MoveStatistics{
			Name:         mv.Name(),
			Calls:        st.Calls,
			Improvements: st.Improvements,
			Sideways:     st.Sideways,
			Accepts:      st.Accepts,
			Rejects:      st.Rejects,
		}
	}
	return out
}

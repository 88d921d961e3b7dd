package neighborhood

import (
	"math/rand"

	"github.com/copyleftdev/upmsp/internal/solution"
)

// Shift moves one job from its machine to a position of another machine.
// The smart variant inserts it at the cheapest position.
type Shift struct {
	base
	smart bool

	from, fromPos int
	to, toPos     int
}

// NewShift creates a Shift, or its smart counterpart when smart is set.
func NewShift(rng *rand.Rand, priority int, useMakespanMachine, smart bool) *Shift {
	kind := KindShift
	if smart {
		kind = KindShiftSmart
	}
	return &Shift{base: newBase(kind, rng, priority, useMakespanMachine), smart: smart}
}

func (mv *Shift) HasMove(s *solution.Solution) bool {
	return s.NMachines() >= 2 && mv.hasSource(s, 1)
}

func (mv *Shift) Evaluate(s *solution.Solution) int {
	mv.from = mv.source(s, 1)
	mv.fromPos = mv.rng.Intn(s.Len(mv.from))
	mv.to = mv.otherMachine(s, mv.from)
	job := s.Job(mv.from, mv.fromPos)

	if mv.smart {
		mv.toPos = bestInsertion(s, mv.to, solution.None, job)
	} else {
		mv.toPos = mv.rng.Intn(s.Len(mv.to) + 1)
	}

	dFrom := s.RemovalDelta(mv.from, mv.fromPos)
	dTo := s.InsertionDelta(mv.to, solution.None, mv.toPos, job)
	return mv.propose(s, makespanDelta(s, mv.from, s.Completion(mv.from)+dFrom, mv.to, s.Completion(mv.to)+dTo))
}

func (mv *Shift) Accept() {
	s := mv.commit()
	job := s.Remove(mv.from, mv.fromPos)
	s.Insert(mv.to, mv.toPos, job)
}

func (mv *Shift) Reject() { mv.discard() }

// bestInsertion returns the position of machine m (with skip removed) where
// inserting job grows the completion time the least. Ties go to the first.
func bestInsertion(s *solution.Solution, m, skip, job int) int {
	n := s.Len(m)
	if skip != solution.None {
		n--
	}
	best, bestDelta := 0, 0
	for q := 0; q <= n; q++ {
		d := s.InsertionDelta(m, skip, q, job)
		if q == 0 || d < bestDelta {
			best, bestDelta = q, d
		}
	}
	return best
}

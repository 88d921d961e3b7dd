package neighborhood

import (
	"math/rand"

	"github.com/copyleftdev/upmsp/internal/solution"
)

// hasPair reports whether two non-empty machines exist, the first of them
// being the source machine.
func (b *base) hasPair(s *solution.Solution) bool {
	if s.NMachines() < 2 {
		return false
	}
	if b.useMakespanMachine {
		mk := s.MakespanMachine()
		return s.Len(mk) > 0 && countEligible(s, 1, mk) > 0
	}
	return countEligible(s, 1, solution.None) >= 2
}

// pair picks a source machine and a distinct non-empty partner.
func (b *base) pair(s *solution.Solution) (int, int) {
	m1 := b.source(s, 1)
	others := b.eligible(s, 1, m1)
	return m1, others[b.rng.Intn(len(others))]
}

// SimpleSwap exchanges two jobs of different machines, each taking the
// other's position. The smart variant picks the partner job giving the lowest
// makespan.
type SimpleSwap struct {
	base
	smart bool

	m1, p1 int
	m2, p2 int
}

// NewSimpleSwap creates a SimpleSwap, or its smart counterpart when smart is set.
func NewSimpleSwap(rng *rand.Rand, priority int, useMakespanMachine, smart bool) *SimpleSwap {
	kind := KindSimpleSwap
	if smart {
		kind = KindSimpleSwapSmart
	}
	return &SimpleSwap{base: newBase(kind, rng, priority, useMakespanMachine), smart: smart}
}

func (mv *SimpleSwap) HasMove(s *solution.Solution) bool { return mv.hasPair(s) }

func (mv *SimpleSwap) Evaluate(s *solution.Solution) int {
	mv.m1, mv.m2 = mv.pair(s)
	mv.p1 = mv.rng.Intn(s.Len(mv.m1))
	j1 := s.Job(mv.m1, mv.p1)
	c1, c2 := s.Completion(mv.m1), s.Completion(mv.m2)

	if !mv.smart {
		mv.p2 = mv.rng.Intn(s.Len(mv.m2))
		j2 := s.Job(mv.m2, mv.p2)
		return mv.propose(s, makespanDelta(s,
			mv.m1, c1+s.ReplacementDelta(mv.m1, mv.p1, j2),
			mv.m2, c2+s.ReplacementDelta(mv.m2, mv.p2, j1)))
	}

	others := s.MaxCompletionExcept(mv.m1, mv.m2)
	best := 0
	for q := 0; q < s.Len(mv.m2); q++ {
		j2 := s.Job(mv.m2, q)
		mk := max(others, c1+s.ReplacementDelta(mv.m1, mv.p1, j2), c2+s.ReplacementDelta(mv.m2, q, j1))
		if q == 0 || mk < best {
			mv.p2, best = q, mk
		}
	}
	return mv.propose(s, best-s.Cost())
}

func (mv *SimpleSwap) Accept() {
	s := mv.commit()
	j1, j2 := s.Job(mv.m1, mv.p1), s.Job(mv.m2, mv.p2)
	s.Replace(mv.m1, mv.p1, j2)
	s.Replace(mv.m2, mv.p2, j1)
}

func (mv *SimpleSwap) Reject() { mv.discard() }

// Swap exchanges two jobs of different machines, each inserted at a new
// position of its new machine. The smart variant inserts both at their
// cheapest positions.
type Swap struct {
	base
	smart bool

	m1, p1, q1 int
	m2, p2, q2 int
}

// NewSwap creates a Swap, or its smart counterpart when smart is set.
func NewSwap(rng *rand.Rand, priority int, useMakespanMachine, smart bool) *Swap {
	kind := KindSwap
	if smart {
		kind = KindSwapSmart
	}
	return &Swap{base: newBase(kind, rng, priority, useMakespanMachine), smart: smart}
}

func (mv *Swap) HasMove(s *solution.Solution) bool { return mv.hasPair(s) }

func (mv *Swap) Evaluate(s *solution.Solution) int {
	mv.m1, mv.m2 = mv.pair(s)
	mv.p1 = mv.rng.Intn(s.Len(mv.m1))
	mv.p2 = mv.rng.Intn(s.Len(mv.m2))
	j1, j2 := s.Job(mv.m1, mv.p1), s.Job(mv.m2, mv.p2)

	// Insertion positions index the sequences with the outgoing job removed.
	if mv.smart {
		mv.q1 = bestInsertion(s, mv.m1, mv.p1, j2)
		mv.q2 = bestInsertion(s, mv.m2, mv.p2, j1)
	} else {
		mv.q1 = mv.rng.Intn(s.Len(mv.m1))
		mv.q2 = mv.rng.Intn(s.Len(mv.m2))
	}

	d1 := s.RemovalDelta(mv.m1, mv.p1) + s.InsertionDelta(mv.m1, mv.p1, mv.q1, j2)
	d2 := s.RemovalDelta(mv.m2, mv.p2) + s.InsertionDelta(mv.m2, mv.p2, mv.q2, j1)
	return mv.propose(s, makespanDelta(s, mv.m1, s.Completion(mv.m1)+d1, mv.m2, s.Completion(mv.m2)+d2))
}

func (mv *Swap) Accept() {
	s := mv.commit()
	j1 := s.Remove(mv.m1, mv.p1)
	j2 := s.Remove(mv.m2, mv.p2)
	s.Insert(mv.m1, mv.q1, j2)
	s.Insert(mv.m2, mv.q2, j1)
}

func (mv *Swap) Reject() { mv.discard() }

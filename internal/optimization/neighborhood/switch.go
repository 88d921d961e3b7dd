package neighborhood

import (
	"math/rand"

	"github.com/copyleftdev/upmsp/internal/solution"
)

// Switch exchanges two jobs of the same machine. The smart variant picks the
// partner position giving the lowest completion time.
type Switch struct {
	base
	smart bool

	m, p, q int
}

// NewSwitch creates a Switch, or its smart counterpart when smart is set.
func NewSwitch(rng *rand.Rand, priority int, useMakespanMachine, smart bool) *Switch {
	kind := KindSwitch
	if smart {
		kind = KindSwitchSmart
	}
	return &Switch{base: newBase(kind, rng, priority, useMakespanMachine), smart: smart}
}

func (mv *Switch) HasMove(s *solution.Solution) bool { return mv.hasSource(s, 2) }

func (mv *Switch) Evaluate(s *solution.Solution) int {
	mv.m = mv.source(s, 2)
	n := s.Len(mv.m)
	mv.p = mv.rng.Intn(n)

	var d int
	if mv.smart {
		first := true
		for q := 0; q < n; q++ {
			if q == mv.p {
				continue
			}
			if dq := s.SwapDelta(mv.m, mv.p, q); first || dq < d {
				mv.q, d, first = q, dq, false
			}
		}
	} else {
		mv.q = mv.otherPosition(n, mv.p)
		d = s.SwapDelta(mv.m, mv.p, mv.q)
	}
	return mv.propose(s, makespanDelta(s, mv.m, s.Completion(mv.m)+d, solution.None, 0))
}

func (mv *Switch) Accept() {
	s := mv.commit()
	s.SwapPositions(mv.m, mv.p, mv.q)
}

func (mv *Switch) Reject() { mv.discard() }

// TaskMove moves a job to another position of the same machine. The smart
// variant reinserts it at the cheapest position.
type TaskMove struct {
	base
	smart bool

	m, p, q int
}

// NewTaskMove creates a TaskMove, or its smart counterpart when smart is set.
func NewTaskMove(rng *rand.Rand, priority int, useMakespanMachine, smart bool) *TaskMove {
	kind := KindTaskMove
	if smart {
		kind = KindTaskMoveSmart
	}
	return &TaskMove{base: newBase(kind, rng, priority, useMakespanMachine), smart: smart}
}

func (mv *TaskMove) HasMove(s *solution.Solution) bool { return mv.hasSource(s, 2) }

func (mv *TaskMove) Evaluate(s *solution.Solution) int {
	mv.m = mv.source(s, 2)
	n := s.Len(mv.m)
	mv.p = mv.rng.Intn(n)
	job := s.Job(mv.m, mv.p)
	removal := s.RemovalDelta(mv.m, mv.p)

	// q indexes the sequence without the moved job; q == p would put it back.
	var d int
	if mv.smart {
		first := true
		for q := 0; q < n; q++ {
			if q == mv.p {
				continue
			}
			if dq := s.InsertionDelta(mv.m, mv.p, q, job); first || dq < d {
				mv.q, d, first = q, dq, false
			}
		}
	} else {
		mv.q = mv.otherPosition(n, mv.p)
		d = s.InsertionDelta(mv.m, mv.p, mv.q, job)
	}
	return mv.propose(s, makespanDelta(s, mv.m, s.Completion(mv.m)+removal+d, solution.None, 0))
}

func (mv *TaskMove) Accept() {
	s := mv.commit()
	job := s.Remove(mv.m, mv.p)
	s.Insert(mv.m, mv.q, job)
}

func (mv *TaskMove) Reject() { mv.discard() }

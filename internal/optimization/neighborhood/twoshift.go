package neighborhood

import (
	"math/rand"

	"github.com/copyleftdev/upmsp/internal/solution"
)

// TwoShift moves a block of two consecutive jobs to a position of another
// machine, keeping their order. The smart variant inserts the block at the
// cheapest position.
type TwoShift struct {
	base
	smart bool

	from, fromPos int
	to, toPos     int
}

// NewTwoShift creates a TwoShift, or its smart counterpart when smart is set.
func NewTwoShift(rng *rand.Rand, priority int, useMakespanMachine, smart bool) *TwoShift {
	kind := KindTwoShift
	if smart {
		kind = KindTwoShiftSmart
	}
	return &TwoShift{base: newBase(kind, rng, priority, useMakespanMachine), smart: smart}
}

func (mv *TwoShift) HasMove(s *solution.Solution) bool {
	return s.NMachines() >= 2 && mv.hasSource(s, 2)
}

func (mv *TwoShift) Evaluate(s *solution.Solution) int {
	mv.from = mv.source(s, 2)
	mv.fromPos = mv.rng.Intn(s.Len(mv.from) - 1)
	mv.to = mv.otherMachine(s, mv.from)
	x, y := s.Job(mv.from, mv.fromPos), s.Job(mv.from, mv.fromPos+1)

	var dTo int
	if mv.smart {
		for q := 0; q <= s.Len(mv.to); q++ {
			if d := s.BlockInsertionDelta(mv.to, q, x, y); q == 0 || d < dTo {
				mv.toPos, dTo = q, d
			}
		}
	} else {
		mv.toPos = mv.rng.Intn(s.Len(mv.to) + 1)
		dTo = s.BlockInsertionDelta(mv.to, mv.toPos, x, y)
	}

	dFrom := s.BlockRemovalDelta(mv.from, mv.fromPos)
	return mv.propose(s, makespanDelta(s, mv.from, s.Completion(mv.from)+dFrom, mv.to, s.Completion(mv.to)+dTo))
}

func (mv *TwoShift) Accept() {
	s := mv.commit()
	x := s.Remove(mv.from, mv.fromPos)
	y := s.Remove(mv.from, mv.fromPos)
	s.Insert(mv.to, mv.toPos, x)
	s.Insert(mv.to, mv.toPos+1, y)
}

func (mv *TwoShift) Reject() { mv.discard() }

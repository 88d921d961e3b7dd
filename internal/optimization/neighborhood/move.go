// Package neighborhood implements the local moves used by the heuristics.
// A move is created once, reused for every iteration of a run, and keeps the
// statistics of its own outcomes.
package neighborhood

import (
	"fmt"
	"math/rand"

	"github.com/copyleftdev/upmsp/internal/solution"
)

// Move is a stateful neighbourhood operator.
//
// Evaluate draws a random candidate and returns its makespan delta without
// touching the solution. The candidate stays pending until Accept applies it
// or Reject drops it. Calling Accept or Reject with nothing pending panics.
type Move interface {
	Kind() Kind
	Name() string
	Priority() int

	// HasMove reports whether the move can be applied to s at all.
	HasMove(s *solution.Solution) bool
	// Evaluate must only be called after HasMove(s) returned true.
	Evaluate(s *solution.Solution) int
	Accept()
	Reject()
	// Reset zeroes the statistics and drops any pending candidate.
	Reset()
	Stats() Stats
}

// Stats counts the outcomes of a move over a run. Counters never decrease
// between two calls to Reset.
type Stats struct {
	Calls        int64
	Improvements int64
	Sideways     int64
	Accepts      int64
	Rejects      int64
}

// base carries what all moves share: identity, random source, statistics and
// the pending candidate's delta.
type base struct {
	kind               Kind
	priority           int
	useMakespanMachine bool
	rng                *rand.Rand

	stats   Stats
	pending bool
	delta   int
	sol     *solution.Solution

	scratch []int
}

func newBase(kind Kind, rng *rand.Rand, priority int, useMakespanMachine bool) base {
	return base{
		kind:               kind,
		priority:           priority,
		useMakespanMachine: useMakespanMachine,
		rng:                rng,
	}
}

func (b *base) Kind() Kind { return b.kind }

func (b *base) Name() string {
	if b.useMakespanMachine {
		return b.kind.String() + "(mk)"
	}
	return b.kind.String()
}

func (b *base) Priority() int { return b.priority }

func (b *base) Stats() Stats { return b.stats }

func (b *base) Reset() {
	b.stats = Stats{}
	b.pending = false
	b.delta = 0
	b.sol = nil
}

// propose records the evaluated candidate and returns its delta.
func (b *base) propose(s *solution.Solution, delta int) int {
	b.pending = true
	b.delta = delta
	b.sol = s
	return delta
}

// commit updates the accept statistics and returns the solution the pending
// candidate applies to.
func (b *base) commit() *solution.Solution {
	b.mustBePending("Accept")
	b.stats.Calls++
	b.stats.Accepts++
	switch {
	case b.delta < 0:
		b.stats.Improvements++
	case b.delta == 0:
		b.stats.Sideways++
	}
	s := b.sol
	b.pending = false
	b.sol = nil
	return s
}

func (b *base) discard() {
	b.mustBePending("Reject")
	b.stats.Calls++
	b.stats.Rejects++
	b.pending = false
	b.sol = nil
}

func (b *base) mustBePending(op string) {
	if !b.pending {
		panic(fmt.Sprintf("neighborhood: %s.%s called without a pending evaluation", b.Name(), op))
	}
}

// eligible collects the machines other than exclude with at least minJobs jobs.
func (b *base) eligible(s *solution.Solution, minJobs, exclude int) []int {
	b.scratch = b.scratch[:0]
	for m := 0; m < s.NMachines(); m++ {
		if m != exclude && s.Len(m) >= minJobs {
			b.scratch = append(b.scratch, m)
		}
	}
	return b.scratch
}

// countEligible is eligible without the allocation, for HasMove probes.
func countEligible(s *solution.Solution, minJobs, exclude int) int {
	n := 0
	for m := 0; m < s.NMachines(); m++ {
		if m != exclude && s.Len(m) >= minJobs {
			n++
		}
	}
	return n
}

// hasSource reports whether a source machine with minJobs jobs exists.
func (b *base) hasSource(s *solution.Solution, minJobs int) bool {
	if b.useMakespanMachine {
		return s.Len(s.MakespanMachine()) >= minJobs
	}
	return countEligible(s, minJobs, solution.None) > 0
}

// source picks the machine a move starts from. HasMove guarantees one exists.
func (b *base) source(s *solution.Solution, minJobs int) int {
	if b.useMakespanMachine {
		return s.MakespanMachine()
	}
	c := b.eligible(s, minJobs, solution.None)
	return c[b.rng.Intn(len(c))]
}

// otherMachine draws a machine different from m uniformly.
func (b *base) otherMachine(s *solution.Solution, m int) int {
	o := b.rng.Intn(s.NMachines() - 1)
	if o >= m {
		o++
	}
	return o
}

// otherPosition draws a position in [0, n) different from p uniformly.
func (b *base) otherPosition(n, p int) int {
	q := b.rng.Intn(n - 1)
	if q >= p {
		q++
	}
	return q
}

// makespanDelta is the cost change when machine a ends at ca and machine b
// (possibly None) ends at cb.
func makespanDelta(s *solution.Solution, a, ca, b, cb int) int {
	mk := s.MaxCompletionExcept(a, b)
	if ca > mk {
		mk = ca
	}
	if b != solution.None && cb > mk {
		mk = cb
	}
	return mk - s.Cost()
}

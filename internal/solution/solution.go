// Package solution implements the mutable schedule searched by the heuristics:
// one job sequence per machine, with cached completion times and makespan.
package solution

import (
	"github.com/copyleftdev/upmsp/internal/problem"
)

// None marks a missing neighbour in a machine sequence.
const None = -1

// Solution assigns every job to one position of one machine sequence.
// It is not safe for concurrent use.
type Solution struct {
	problem *problem.Problem

	sequences  [][]int
	completion []int
	machineOf  []int

	makespan        int
	makespanMachine int
}

// New returns an empty solution for p: no job is assigned yet.
func New(p *problem.Problem) *Solution {
	s := &Solution{
		problem:    p,
		sequences:  make([][]int, p.NMachines),
		completion: make([]int, p.NMachines),
		machineOf:  make([]int, p.NJobs),
	}
	for m := range s.sequences {
		s.sequences[m] = make([]int, 0, p.NJobs/p.NMachines+1)
	}
	for j := range s.machineOf {
		s.machineOf[j] = None
	}
	return s
}

// Problem returns the instance this solution schedules.
func (s *Solution) Problem() *problem.Problem { return s.problem }

// Cost returns the makespan.
func (s *Solution) Cost() int { return s.makespan }

// MakespanMachine returns the machine with the largest completion time.
func (s *Solution) MakespanMachine() int { return s.makespanMachine }

// NMachines returns the number of machines.
func (s *Solution) NMachines() int { return len(s.sequences) }

// Len returns the number of jobs on machine m.
func (s *Solution) Len(m int) int { return len(s.sequences[m]) }

// Job returns the job at position pos of machine m.
func (s *Solution) Job(m, pos int) int { return s.sequences[m][pos] }

// Sequence returns the job sequence of machine m. Callers must not modify it.
func (s *Solution) Sequence(m int) []int { return s.sequences[m] }

// Completion returns the completion time of machine m.
func (s *Solution) Completion(m int) int { return s.completion[m] }

// MachineOf returns the machine job j is assigned to, or None.
func (s *Solution) MachineOf(j int) int { return s.machineOf[j] }

// Clone returns a deep copy.
func (s *Solution) Clone() *Solution {
	c := &Solution{
		problem:         s.problem,
		sequences:       make([][]int, len(s.sequences)),
		completion:      append([]int(nil), s.completion...),
		machineOf:       append([]int(nil), s.machineOf...),
		makespan:        s.makespan,
		makespanMachine: s.makespanMachine,
	}
	for m, seq := range s.sequences {
		c.sequences[m] = append(make([]int, 0, cap(seq)), seq...)
	}
	return c
}

// CopyFrom overwrites s with the content of o, reusing s's buffers.
// Both solutions must belong to the same problem.
func (s *Solution) CopyFrom(o *Solution) {
	for m := range s.sequences {
		s.sequences[m] = append(s.sequences[m][:0], o.sequences[m]...)
	}
	copy(s.completion, o.completion)
	copy(s.machineOf, o.machineOf)
	s.makespan = o.makespan
	s.makespanMachine = o.makespanMachine
}

// at returns the element at index k of machine m's sequence with position
// skip removed (skip == None keeps the sequence whole). Out of range is None.
func (s *Solution) at(m, skip, k int) int {
	seq := s.sequences[m]
	if skip != None && k >= skip {
		k++
	}
	if k < 0 || k >= len(seq) {
		return None
	}
	return seq[k]
}

// setup is the setup time on m between a and b, zero when either is None.
func (s *Solution) setup(m, a, b int) int {
	return s.problem.SetupTime(m, a, b)
}

// RemovalDelta is the change of machine m's completion time when the job at
// pos is removed.
func (s *Solution) RemovalDelta(m, pos int) int {
	a, j, b := s.at(m, None, pos-1), s.sequences[m][pos], s.at(m, None, pos+1)
	return s.setup(m, a, b) - s.problem.ProcessingTime(j, m) - s.setup(m, a, j) - s.setup(m, j, b)
}

// InsertionDelta is the change of machine m's completion time when job is
// inserted so that it ends at index pos of the sequence that has position
// skip removed (skip == None for the unchanged sequence).
func (s *Solution) InsertionDelta(m, skip, pos, job int) int {
	a, b := s.at(m, skip, pos-1), s.at(m, skip, pos)
	return s.problem.ProcessingTime(job, m) + s.setup(m, a, job) + s.setup(m, job, b) - s.setup(m, a, b)
}

// ReplacementDelta is the change of machine m's completion time when the job
// at pos is replaced by job.
func (s *Solution) ReplacementDelta(m, pos, job int) int {
	a, old, b := s.at(m, None, pos-1), s.sequences[m][pos], s.at(m, None, pos+1)
	added := s.problem.ProcessingTime(job, m) + s.setup(m, a, job) + s.setup(m, job, b)
	removed := s.problem.ProcessingTime(old, m) + s.setup(m, a, old) + s.setup(m, old, b)
	return added - removed
}

// SwapDelta is the change of machine m's completion time when positions p and
// q exchange their jobs.
func (s *Solution) SwapDelta(m, p, q int) int {
	if p == q {
		return 0
	}
	if p > q {
		p, q = q, p
	}
	seq := s.sequences[m]
	if q == p+1 {
		a, x, y, b := s.at(m, None, p-1), seq[p], seq[q], s.at(m, None, q+1)
		before := s.setup(m, a, x) + s.setup(m, x, y) + s.setup(m, y, b)
		after := s.setup(m, a, y) + s.setup(m, y, x) + s.setup(m, x, b)
		return after - before
	}
	// Non-adjacent positions share no setup pair, so both replacements are
	// independent.
	return s.ReplacementDelta(m, p, seq[q]) + s.ReplacementDelta(m, q, seq[p])
}

// BlockRemovalDelta is the change of machine m's completion time when the
// jobs at pos and pos+1 are removed together.
func (s *Solution) BlockRemovalDelta(m, pos int) int {
	seq := s.sequences[m]
	a, x, y, b := s.at(m, None, pos-1), seq[pos], seq[pos+1], s.at(m, None, pos+2)
	removed := s.problem.ProcessingTime(x, m) + s.problem.ProcessingTime(y, m) +
		s.setup(m, a, x) + s.setup(m, x, y) + s.setup(m, y, b)
	return s.setup(m, a, b) - removed
}

// BlockInsertionDelta is the change of machine m's completion time when first
// and second are inserted, in that order, starting at index pos.
func (s *Solution) BlockInsertionDelta(m, pos, first, second int) int {
	a, b := s.at(m, None, pos-1), s.at(m, None, pos)
	added := s.problem.ProcessingTime(first, m) + s.problem.ProcessingTime(second, m) +
		s.setup(m, a, first) + s.setup(m, first, second) + s.setup(m, second, b)
	return added - s.setup(m, a, b)
}

// MaxCompletionExcept returns the largest completion time among all machines
// other than a and b. Either may be None.
func (s *Solution) MaxCompletionExcept(a, b int) int {
	best := 0
	for m, c := range s.completion {
		if m != a && m != b && c > best {
			best = c
		}
	}
	return best
}

// Insert places job at index pos of machine m.
func (s *Solution) Insert(m, pos, job int) {
	s.completion[m] += s.InsertionDelta(m, None, pos, job)
	seq := append(s.sequences[m], None)
	copy(seq[pos+1:], seq[pos:])
	seq[pos] = job
	s.sequences[m] = seq
	s.machineOf[job] = m
	s.updateMakespan()
}

// Remove takes the job at index pos out of machine m and returns it.
func (s *Solution) Remove(m, pos int) int {
	s.completion[m] += s.RemovalDelta(m, pos)
	seq := s.sequences[m]
	job := seq[pos]
	s.sequences[m] = append(seq[:pos], seq[pos+1:]...)
	s.machineOf[job] = None
	s.updateMakespan()
	return job
}

// Replace puts job at index pos of machine m and returns the job it replaced.
func (s *Solution) Replace(m, pos, job int) int {
	s.completion[m] += s.ReplacementDelta(m, pos, job)
	old := s.sequences[m][pos]
	s.sequences[m][pos] = job
	// old may already sit on another machine when two replacements exchange jobs.
	if s.machineOf[old] == m {
		s.machineOf[old] = None
	}
	s.machineOf[job] = m
	s.updateMakespan()
	return old
}

// SwapPositions exchanges the jobs at positions p and q of machine m.
func (s *Solution) SwapPositions(m, p, q int) {
	s.completion[m] += s.SwapDelta(m, p, q)
	seq := s.sequences[m]
	seq[p], seq[q] = seq[q], seq[p]
	s.updateMakespan()
}

// Append places job at the end of machine m.
func (s *Solution) Append(m, job int) {
	s.Insert(m, len(s.sequences[m]), job)
}

func (s *Solution) updateMakespan() {
	s.makespan, s.makespanMachine = 0, 0
	for m, c := range s.completion {
		if c > s.makespan {
			s.makespan, s.makespanMachine = c, m
		}
	}
}

// completionOf recomputes the completion time of a sequence on machine m from
// scratch.
func (s *Solution) completionOf(m int, seq []int) int {
	total, prev := 0, None
	for _, j := range seq {
		total += s.problem.ProcessingTime(j, m) + s.setup(m, prev, j)
		prev = j
	}
	return total
}

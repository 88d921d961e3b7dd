package solution

import (
	"math/rand"

	"github.com/copyleftdev/upmsp/internal/problem"
)

// Random assigns jobs, in random order, to the end of uniformly drawn machines.
func Random(p *problem.Problem, rng *rand.Rand) *Solution {
	s := New(p)
	for _, j := range rng.Perm(p.NJobs) {
		s.Append(rng.Intn(p.NMachines), j)
	}
	return s
}

// Greedy appends jobs in index order to the machine whose completion time
// grows the least, breaking ties by the lowest resulting completion.
func Greedy(p *problem.Problem) *Solution {
	s := New(p)
	for j := 0; j < p.NJobs; j++ {
		bestM, bestDelta, bestEnd := 0, 0, 0
		for m := 0; m < p.NMachines; m++ {
			d := s.InsertionDelta(m, None, s.Len(m), j)
			end := s.completion[m] + d
			if m == 0 || d < bestDelta || (d == bestDelta && end < bestEnd) {
				bestM, bestDelta, bestEnd = m, d, end
			}
		}
		s.Append(bestM, j)
	}
	return s
}

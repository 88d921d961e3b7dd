// Package problem holds the immutable model of an unrelated parallel machine
// scheduling instance with sequence-dependent setup times.
package problem

import (
	"errors"
	"fmt"
	"math/rand"
)

// Problem is read-only once built. It is safe to share between concurrent runs.
type Problem struct {
	Name      string
	NJobs     int
	NMachines int

	// process[j][m] is the processing time of job j on machine m.
	process [][]int
	// setup[m][i][j] is the setup time of job j when it follows job i on machine m.
	setup [][][]int
}

// New validates the given matrices and builds a Problem.
func New(name string, process [][]int, setup [][][]int) (*Problem, error) {
	p := &Problem{
		Name:    name,
		NJobs:   len(process),
		process: process,
		setup:   setup,
	}
	if p.NJobs > 0 {
		p.NMachines = len(process[0])
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks matrix shapes and that no time is negative.
func (p *Problem) Validate() error {
	if p == nil {
		return errors.New("problem is nil")
	}
	if p.NJobs <= 0 {
		return fmt.Errorf("jobs must be > 0 (got %d)", p.NJobs)
	}
	if p.NMachines <= 0 {
		return fmt.Errorf("machines must be > 0 (got %d)", p.NMachines)
	}
	for j, row := range p.process {
		if len(row) != p.NMachines {
			return fmt.Errorf("processing times of job %d: expected %d machines, got %d", j, p.NMachines, len(row))
		}
		for m, v := range row {
			if v < 0 {
				return fmt.Errorf("processing time of job %d on machine %d must be >= 0 (got %d)", j, m, v)
			}
		}
	}
	if len(p.setup) != p.NMachines {
		return fmt.Errorf("setup times: expected %d machines, got %d", p.NMachines, len(p.setup))
	}
	for m, matrix := range p.setup {
		if len(matrix) != p.NJobs {
			return fmt.Errorf("setup times of machine %d: expected %d rows, got %d", m, p.NJobs, len(matrix))
		}
		for i, row := range matrix {
			if len(row) != p.NJobs {
				return fmt.Errorf("setup times of machine %d, row %d: expected %d columns, got %d", m, i, p.NJobs, len(row))
			}
			for j, v := range row {
				if v < 0 {
					return fmt.Errorf("setup time of machine %d from job %d to job %d must be >= 0 (got %d)", m, i, j, v)
				}
			}
		}
	}
	return nil
}

// ProcessingTime returns the processing time of job on machine.
func (p *Problem) ProcessingTime(job, machine int) int {
	return p.process[job][machine]
}

// SetupTime returns the setup needed on machine to run job right after prev.
// A negative prev or job means "no job" and costs nothing.
func (p *Problem) SetupTime(machine, prev, job int) int {
	if prev < 0 || job < 0 {
		return 0
	}
	return p.setup[machine][prev][job]
}

// DefaultTimeLimitMillis is the run budget used when none is configured:
// 30ms per job for every two machines.
func (p *Problem) DefaultTimeLimitMillis() int64 {
	return int64(float64(p.NJobs) * (float64(p.NMachines) / 2.0) * 30)
}

// Random builds an instance with processing times in [minProc, maxProc] and
// setup times in [minSetup, maxSetup].
func Random(name string, jobs, machines, minProc, maxProc, minSetup, maxSetup int, rng *rand.Rand) (*Problem, error) {
	if rng == nil {
		return nil, errors.New("random source is nil")
	}
	if minProc < 0 || maxProc < minProc {
		return nil, fmt.Errorf("invalid processing time bounds [%d, %d]", minProc, maxProc)
	}
	if minSetup < 0 || maxSetup < minSetup {
		return nil, fmt.Errorf("invalid setup time bounds [%d, %d]", minSetup, maxSetup)
	}
	if jobs <= 0 || machines <= 0 {
		return nil, fmt.Errorf("jobs and machines must be > 0 (got %d, %d)", jobs, machines)
	}

	draw := func(lo, hi int) int {
		return lo + rng.Intn(hi-lo+1)
	}

	process := make([][]int, jobs)
	for j := range process {
		process[j] = make([]int, machines)
		for m := range process[j] {
			process[j][m] = draw(minProc, maxProc)
		}
	}
	setup := make([][][]int, machines)
	for m := range setup {
		setup[m] = make([][]int, jobs)
		for i := range setup[m] {
			setup[m][i] = make([]int, jobs)
			for j := range setup[m][i] {
				setup[m][i][j] = draw(minSetup, maxSetup)
			}
		}
	}
	return New(name, process, setup)
}

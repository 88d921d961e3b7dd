package solution

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Report is the outcome of Validate.
type Report struct {
	Issues []string
}

// Feasible reports whether no issue was found.
func (r Report) Feasible() bool { return len(r.Issues) == 0 }

// String lists the issues, one per line.
func (r Report) String() string {
	if r.Feasible() {
		return "feasible"
	}
	return strings.Join(r.Issues, "\n")
}

func (r *Report) addf(format string, args ...interface{}) {
	r.Issues = append(r.Issues, fmt.Sprintf(format, args...))
}

// Validate checks that every job is scheduled exactly once and that the cached
// completion times and makespan agree with a full recomputation.
func (s *Solution) Validate() Report {
	var r Report
	seen := make([]int, s.problem.NJobs)
	for j := range seen {
		seen[j] = None
	}

	makespan := 0
	for m, seq := range s.sequences {
		for pos, j := range seq {
			if j < 0 || j >= s.problem.NJobs {
				r.addf("machine %d position %d: invalid job %d", m, pos, j)
				continue
			}
			if seen[j] != None {
				r.addf("job %d scheduled on machine %d and on machine %d", j, seen[j], m)
				continue
			}
			seen[j] = m
			if s.machineOf[j] != m {
				r.addf("job %d is on machine %d but recorded on machine %d", j, m, s.machineOf[j])
			}
		}
		c := s.completionOf(m, seq)
		if c != s.completion[m] {
			r.addf("machine %d: cached completion %d, recomputed %d", m, s.completion[m], c)
		}
		if c > makespan {
			makespan = c
		}
	}
	for j, m := range seen {
		if m == None {
			r.addf("job %d is not scheduled", j)
		}
	}
	if makespan != s.makespan {
		r.addf("cached makespan %d, recomputed %d", s.makespan, makespan)
	}
	return r
}

// Write serialises the schedule: the makespan on the first line, then one line
// per machine with the machine index, its job count and its jobs in order.
func (s *Solution) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", s.makespan)
	for m, seq := range s.sequences {
		fmt.Fprintf(bw, "%d %d", m, len(seq))
		for _, j := range seq {
			fmt.Fprintf(bw, " %d", j)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteFile writes the schedule to path, creating parent directories.
func (s *Solution) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Package report turns search callbacks into human and machine readable
// output: incumbent tracks, progress tables and move statistics.
package report

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/copyleftdev/upmsp/internal/optimization/neighborhood"
	"github.com/copyleftdev/upmsp/internal/problem"
	"github.com/copyleftdev/upmsp/internal/solution"
)

// TrackHeader is the first row of a track CSV.
var TrackHeader = []string{"INSTANCE", "N", "M", "SEED", "ITERATION", "TIME.MILLIS", "TIME.PERC", "MAKESPAN"}

// Entry is one improvement of the incumbent.
type Entry struct {
	Iteration int64
	Elapsed   time.Duration
	// TimeFraction is Elapsed relative to the time limit.
	TimeFraction float64
	Makespan     int
	Kind         neighborhood.Kind
}

// Tracker records every new incumbent of a run.
type Tracker struct {
	instance string
	jobs     int
	machines int
	seed     int64
	entries  []Entry
}

// NewTracker creates a tracker for a run of seed on p, loaded from path.
func NewTracker(path string, p *problem.Problem, seed int64) *Tracker {
	return &Tracker{
		instance: InstanceName(path),
		jobs:     p.NJobs,
		machines: p.NMachines,
		seed:     seed,
	}
}

// InstanceName is the base name of path without its .txt extension.
func InstanceName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".txt")
}

func (t *Tracker) OnNewIncumbent(s *solution.Solution, kind neighborhood.Kind, elapsed, timeLimit time.Duration, iteration, _ int64) {
	frac := 0.0
	if timeLimit > 0 {
		frac = float64(elapsed) / float64(timeLimit)
	}
	t.entries = append(t.entries, Entry{
		Iteration:    iteration,
		Elapsed:      elapsed,
		TimeFraction: frac,
		Makespan:     s.Cost(),
		Kind:         kind,
	})
}

func (t *Tracker) OnIteration(*solution.Solution, time.Duration, time.Duration, int64, int64) {}

// Entries returns the recorded improvements in order.
func (t *Tracker) Entries() []Entry { return t.entries }

// WriteCSV writes the header and one row per entry.
func (t *Tracker) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TrackHeader); err != nil {
		return err
	}
	n, m, seed := strconv.Itoa(t.jobs), strconv.Itoa(t.machines), strconv.FormatInt(t.seed, 10)
	for _, e := range t.entries {
		row := []string{
			t.instance, n, m, seed,
			strconv.FormatInt(e.Iteration, 10),
			strconv.FormatInt(e.Elapsed.Milliseconds(), 10),
			strconv.FormatFloat(e.TimeFraction, 'f', 6, 64),
			strconv.Itoa(e.Makespan),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the track to path, creating its directory when needed.
func (t *Tracker) ExportCSV(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

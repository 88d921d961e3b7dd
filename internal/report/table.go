package report

import (
	"fmt"
	"io"
	"time"

	"github.com/copyleftdev/upmsp/internal/optimization"
	"github.com/copyleftdev/upmsp/internal/optimization/heuristic"
	"github.com/copyleftdev/upmsp/internal/optimization/neighborhood"
	"github.com/copyleftdev/upmsp/internal/solution"
)

const (
	progressRule = "+--------------+---------------+-------------------------+--------------+\n"
	movesRule    = "+-------------------------+--------------+----------+----------+----------+----------+\n"
)

// Progress prints a table row for every new incumbent.
// Write errors are kept and reported by Close.
type Progress struct {
	w   io.Writer
	err error
}

// NewProgress writes the table header to w.
func NewProgress(w io.Writer) *Progress {
	p := &Progress{w: w}
	p.printf("+-----------------------------------------------------------------------+\n")
	p.printf("|                         Optimization progress                         |\n")
	p.printf(progressRule)
	p.printf("|   Iteration  |   Incumbent   |           Move          |   Time (s)   |\n")
	p.printf(progressRule)
	return p
}

func (p *Progress) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *Progress) OnNewIncumbent(s *solution.Solution, kind neighborhood.Kind, elapsed, _ time.Duration, iteration, _ int64) {
	p.printf("| %12d | %13d | %-23s | %12.2f |\n", iteration, s.Cost(), kind, elapsed.Seconds())
}

func (p *Progress) OnIteration(*solution.Solution, time.Duration, time.Duration, int64, int64) {}

// Close writes the closing rule and returns the first write error.
func (p *Progress) Close() error {
	p.printf(progressRule + "\n")
	return p.err
}

// WriteMoveStatistics prints one row per move.
func WriteMoveStatistics(w io.Writer, stats []optimization.MoveStatistics) error {
	rows := []string{
		"+------------------------------------------------------------------------------------+\n",
		"|                              Neighborhoods statistics                              |\n",
		movesRule,
		"|           Move          |     Calls    | Improvs. | Sideways |  Accepts |  Rejects |\n",
		movesRule,
	}
	for _, st := range stats {
		rows = append(rows, fmt.Sprintf("| %-23s | %12d | %8d | %8d | %8d | %8d |\n",
			st.Name, st.Calls, st.Improvements, st.Sideways, st.Accepts, st.Rejects))
	}
	rows = append(rows, movesRule+"\n")
	for _, r := range rows {
		if _, err := io.WriteString(w, r); err != nil {
			return err
		}
	}
	return nil
}

// Multi fans notifications out to every non-nil callback, in order.
// It returns nil when none is left.
func Multi(callbacks ...heuristic.Callback) heuristic.Callback {
	var cs multi
	for _, c := range callbacks {
		if c != nil {
			cs = append(cs, c)
		}
	}
	switch len(cs) {
	case 0:
		return nil
	case 1:
		return cs[0]
	}
	return cs
}

type multi []heuristic.Callback

func (m multi) OnNewIncumbent(s *solution.Solution, kind neighborhood.Kind, elapsed, timeLimit time.Duration, iteration, iterationLimit int64) {
	for _, c := range m {
		c.OnNewIncumbent(s, kind, elapsed, timeLimit, iteration, iterationLimit)
	}
}

func (m multi) OnIteration(s *solution.Solution, elapsed, timeLimit time.Duration, iteration, iterationLimit int64) {
	for _, c := range m {
		c.OnIteration(s, elapsed, timeLimit, iteration, iterationLimit)
	}
}

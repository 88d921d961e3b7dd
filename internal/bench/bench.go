// Package bench runs independent restarts of a search over many seeds in
// parallel and summarises them.
package bench

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/upmsp/internal/optimization"
	"github.com/copyleftdev/upmsp/internal/optimization/heuristic"
	"github.com/copyleftdev/upmsp/internal/problem"
)

// Run is the outcome of one seed.
type Run struct {
	Seed       int64
	Makespan   int
	Iterations int64
	Elapsed    time.Duration
	Feasible   bool
	// Err is set when the search stopped early but still produced a solution.
	Err error
}

// Runner solves one instance with consecutive seeds starting at Params.Seed.
// Every run owns its random source, moves and solution; only the problem is
// shared.
type Runner struct {
	Params  optimization.Params
	Runs    int
	Workers int

	Logger  *zap.Logger
	Metrics *heuristic.Metrics
}

// Run executes the restarts and returns them ordered by seed. Runs not yet
// started when ctx is done are skipped and ctx's error is returned.
func (r Runner) Run(ctx context.Context, p *problem.Problem) ([]Run, error) {
	if r.Runs <= 0 {
		return nil, optimization.InvalidParameterf("bench", "runs must be > 0 (got %d)", r.Runs)
	}
	if err := r.Params.Validate(); err != nil {
		return nil, err
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pl := pool.NewWithResults[Run]().
		WithContext(ctx).
		WithMaxGoroutines(workers)

	for i := 0; i < r.Runs; i++ {
		params := r.Params
		params.Seed = r.Params.Seed + int64(i)
		pl.Go(func(ctx context.Context) (Run, error) {
			if err := ctx.Err(); err != nil {
				return Run{}, err
			}
			runLogger := logger.With(zap.Int64("seed", params.Seed))
			best, res, err := heuristic.Solve(params, p, nil,
				heuristic.WithLogger(runLogger), heuristic.WithMetrics(r.Metrics))
			if best == nil || (err != nil && !errors.Is(err, optimization.ErrNoFeasibleMove)) {
				return Run{}, fmt.Errorf("seed %d: %w", params.Seed, err)
			}
			runLogger.Debug("Run finished",
				zap.Int("makespan", res.Makespan),
				zap.Int64("iterations", res.Iterations))
			return Run{
				Seed:       params.Seed,
				Makespan:   res.Makespan,
				Iterations: res.Iterations,
				Elapsed:    res.Elapsed,
				Feasible:   res.Feasible,
				Err:        err,
			}, nil
		})
	}

	runs, err := pl.Wait()
	sort.Slice(runs, func(i, j int) bool { return runs[i].Seed < runs[j].Seed })
	return runs, err
}

// Summary aggregates the runs of one instance.
type Summary struct {
	Instance string
	Runs     int
	Feasible int

	Best  int
	Worst int
	Mean  float64
	// Std is the sample standard deviation of the makespan, 0 for one run.
	Std float64

	MeanIterations float64
	MeanElapsed    time.Duration
}

// Summarize computes the statistics of runs.
func Summarize(instance string, runs []Run) Summary {
	s := Summary{Instance: instance, Runs: len(runs)}
	if len(runs) == 0 {
		return s
	}

	makespans := make([]float64, len(runs))
	iterations := make([]float64, len(runs))
	elapsed := make([]float64, len(runs))
	s.Best, s.Worst = runs[0].Makespan, runs[0].Makespan
	for i, r := range runs {
		makespans[i] = float64(r.Makespan)
		iterations[i] = float64(r.Iterations)
		elapsed[i] = float64(r.Elapsed)
		if r.Makespan < s.Best {
			s.Best = r.Makespan
		}
		if r.Makespan > s.Worst {
			s.Worst = r.Makespan
		}
		if r.Feasible {
			s.Feasible++
		}
	}

	s.Mean, s.Std = stat.MeanStdDev(makespans, nil)
	if len(runs) < 2 || math.IsNaN(s.Std) {
		s.Std = 0
	}
	s.MeanIterations = stat.Mean(iterations, nil)
	s.MeanElapsed = time.Duration(stat.Mean(elapsed, nil))
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: runs=%d feasible=%d best=%d worst=%d mean=%.2f std=%.2f iterations=%.0f time=%s",
		s.Instance, s.Runs, s.Feasible, s.Best, s.Worst, s.Mean, s.Std, s.MeanIterations, s.MeanElapsed.Round(time.Millisecond))
}

// RunsHeader is the first row written by WriteCSV.
var RunsHeader = []string{"INSTANCE", "SEED", "MAKESPAN", "ITERATIONS", "TIME.MILLIS", "FEASIBLE", "ERROR"}

// WriteCSV writes one row per run, preceded by RunsHeader when header is set.
func WriteCSV(w io.Writer, instance string, runs []Run, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(RunsHeader); err != nil {
			return err
		}
	}
	for _, r := range runs {
		msg := ""
		if r.Err != nil {
			msg = r.Err.Error()
		}
		row := []string{
			instance,
			strconv.FormatInt(r.Seed, 10),
			strconv.Itoa(r.Makespan),
			strconv.FormatInt(r.Iterations, 10),
			strconv.FormatInt(r.Elapsed.Milliseconds(), 10),
			strconv.FormatBool(r.Feasible),
			msg,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

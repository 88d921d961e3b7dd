package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"github.com/copyleftdev/upmsp/internal/config"
	apperrors "github.com/copyleftdev/upmsp/internal/errors"
	"github.com/copyleftdev/upmsp/internal/logging"
	"github.com/copyleftdev/upmsp/internal/optimization"
	"github.com/copyleftdev/upmsp/internal/optimization/heuristic"
	"github.com/copyleftdev/upmsp/internal/problem"
	"github.com/copyleftdev/upmsp/internal/report"
)

// searchFlags registers the search parameters on fs with defaults taken
// from cfg. The returned function resolves them after fs.Parse.
func searchFlags(fs *flag.FlagSet, cfg *config.Config) func() optimization.Params {
	params := cfg.SearchParams()

	defaultLimit := int64(-1)
	if params.TimeLimit >= 0 {
		defaultLimit = params.TimeLimit.Milliseconds()
	}

	fs.StringVar(&params.Algorithm, "algorithm", params.Algorithm, "sa, adaptive-sa")
	fs.Int64Var(&params.Seed, "seed", params.Seed, "seed of the pseudo-random number generator")
	fs.StringVar(&params.Initial, "initial", params.Initial, "initial solution: random, greedy")
	fs.Float64Var(&params.InitialTemperature, "initial-temperature", params.InitialTemperature, "initial temperature of the annealing")
	fs.Float64Var(&params.CoolingRate, "cooling-rate", params.CoolingRate, "cooling rate")
	fs.IntVar(&params.IterationsPerTemperature, "iterations-per-temperature", params.IterationsPerTemperature, "iterations before the temperature is updated")
	fs.StringVar(&params.CoefficientsFile, "coefficients-file", params.CoefficientsFile, "coefficients of the utility model (adaptive-sa)")
	fs.Int64Var(&params.UpdateFrequency, "update-frequency", params.UpdateFrequency, "iterations before the utility values are updated")
	fs.Float64Var(&params.MaxProbability, "max-probability", params.MaxProbability, "maximum probability of choosing a move")
	limit := fs.Int64("time-limit", defaultLimit, "maximum runtime in milliseconds; negative derives it from the problem size")
	fs.Int64Var(&params.IterationsLimit, "iterations-limit", params.IterationsLimit, "maximum number of iterations")
	var disabled listFlag
	fs.Var(&disabled, "disable", "move families to leave out: shift, direct-swap, swap, switch, task-move, two-shift")

	return func() optimization.Params {
		p := params
		p.TimeLimit = optimization.DeriveTimeLimit
		if *limit >= 0 {
			p.TimeLimit = time.Duration(*limit) * time.Millisecond
		}
		if len(disabled) > 0 {
			p.DisabledMoves = append([]string(nil), disabled...)
		}
		return p
	}
}

func runOptimize(args []string, cfg *config.Config, stdout io.Writer, logger *logging.Logger) error {
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: upmsp optimize [flags] <instance> [<solution>]\n\n")
		fs.PrintDefaults()
	}
	resolve := searchFlags(fs, cfg)
	verbose := fs.Bool("verbose", false, "show optimization progress")
	track := fs.String("track", "", "CSV file in which the makespan of every incumbent is tracked")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return apperrors.New("expected an instance path and an optional solution path")
	}
	input, output := fs.Arg(0), fs.Arg(1)

	params := resolve()
	p, err := problem.Load(input)
	if err != nil {
		return err
	}

	job, err := heuristic.Prepare(params, p, heuristic.WithLogger(logging.NewZapLogger(logger)))
	if err != nil {
		return err
	}

	var callbacks []heuristic.Callback
	var progress *report.Progress
	if *verbose {
		fmt.Fprintf(stdout, "\n")
		fmt.Fprintf(stdout, "Instance......: %s\n", filepath.Base(input))
		fmt.Fprintf(stdout, "Algorithm.....: %s\n", job.Algorithm)
		fmt.Fprintf(stdout, "Other params..: seed=%d, iterations-limit=%s, time-limit=%.2fs\n\n",
			params.Seed, formatLimit(params.IterationsLimit), heuristic.TimeLimit(params, p).Seconds())
		progress = report.NewProgress(stdout)
		callbacks = append(callbacks, progress)
	}
	var tracker *report.Tracker
	if *track != "" {
		tracker = report.NewTracker(input, p, params.Seed)
		callbacks = append(callbacks, tracker)
	}

	best, result, err := job.Run(report.Multi(callbacks...))
	if err != nil {
		if !apperrors.Is(err, optimization.ErrNoFeasibleMove) {
			return err
		}
		logger.WithError(err).Warn("Search stopped early")
	}

	if tracker != nil {
		if err := tracker.ExportCSV(*track); err != nil {
			return apperrors.Wrapf(err, "export track to %s", *track)
		}
	}

	if *verbose {
		if err := writeVerboseSummary(stdout, progress, best.Validate().String(), result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(stdout, "%d %d %d\n", result.Makespan, result.Iterations, result.Elapsed.Milliseconds())
	}

	if output != "" {
		if err := best.WriteFile(output); err != nil {
			return apperrors.Wrapf(err, "write solution to %s", output)
		}
	}
	return nil
}

func writeVerboseSummary(w io.Writer, progress *report.Progress, issues string, result optimization.Result) error {
	if err := progress.Close(); err != nil {
		return err
	}
	if err := report.WriteMoveStatistics(w, result.Moves); err != nil {
		return err
	}
	if result.Feasible {
		fmt.Fprintf(w, "Feasible solution found!\n\n")
	} else {
		fmt.Fprintf(w, "Solution is infeasible:\n%s\n", issues)
	}
	fmt.Fprintf(w, "Best makespan......: %d\n", result.Makespan)
	fmt.Fprintf(w, "N. of iterations...: %d\n", result.Iterations)
	_, err := fmt.Fprintf(w, "Total runtime (s)..: %.4fs\n\n", result.Elapsed.Seconds())
	return err
}

func formatLimit(n int64) string {
	if n == math.MaxInt64 {
		return "inf"
	}
	return strconv.FormatInt(n, 10)
}

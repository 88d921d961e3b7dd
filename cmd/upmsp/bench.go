package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/copyleftdev/upmsp/internal/bench"
	"github.com/copyleftdev/upmsp/internal/config"
	apperrors "github.com/copyleftdev/upmsp/internal/errors"
	"github.com/copyleftdev/upmsp/internal/logging"
	"github.com/copyleftdev/upmsp/internal/problem"
	"github.com/copyleftdev/upmsp/internal/report"
)

func runBench(args []string, cfg *config.Config, stdout io.Writer, logger *logging.Logger) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: upmsp bench [flags] <instance>...\n\n")
		fs.PrintDefaults()
	}
	resolve := searchFlags(fs, cfg)
	runs := fs.Int("runs", cfg.Bench.Runs, "number of seeds per instance, starting at --seed")
	workers := fs.Int("workers", cfg.Bench.Workers, "runs solved at once; 0 uses GOMAXPROCS")
	out := fs.String("out", "", "CSV file with one row per run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return apperrors.New("expected at least one instance path")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := bench.Runner{
		Params:  resolve(),
		Runs:    *runs,
		Workers: *workers,
		Logger:  logging.NewZapLogger(logger),
	}

	var csvOut io.Writer
	if *out != "" {
		if dir := filepath.Dir(*out); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		f, err := os.Create(*out)
		if err != nil {
			return apperrors.Wrapf(err, "create %s", *out)
		}
		defer f.Close()
		csvOut = f
	}

	for i, path := range fs.Args() {
		p, err := problem.Load(path)
		if err != nil {
			return err
		}
		name := report.InstanceName(path)
		logger.Info("Benchmark started", map[string]interface{}{
			"instance": name,
			"runs":     runner.Runs,
		})

		results, err := runner.Run(ctx, p)
		if err != nil {
			return apperrors.Wrapf(err, "bench %s", name)
		}
		fmt.Fprintln(stdout, bench.Summarize(name, results))

		if csvOut != nil {
			if err := bench.WriteCSV(csvOut, name, results, i == 0); err != nil {
				return apperrors.Wrapf(err, "write %s", *out)
			}
		}
	}
	return nil
}

package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/copyleftdev/upmsp/internal/config"
	apperrors "github.com/copyleftdev/upmsp/internal/errors"
	"github.com/copyleftdev/upmsp/internal/logging"
	"github.com/copyleftdev/upmsp/internal/problem"
)

func runGenerate(args []string, _ *config.Config, stdout io.Writer, logger *logging.Logger) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: upmsp generate [flags] [<output>]\n\n")
		fs.PrintDefaults()
	}
	jobs := fs.Int("jobs", 50, "number of jobs")
	machines := fs.Int("machines", 10, "number of machines")
	minProc := fs.Int("min-processing", 1, "minimum processing time")
	maxProc := fs.Int("max-processing", 99, "maximum processing time")
	minSetup := fs.Int("min-setup", 1, "minimum setup time")
	maxSetup := fs.Int("max-setup", 9, "maximum setup time")
	seed := fs.Int64("seed", 0, "seed of the pseudo-random number generator")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return apperrors.New("expected at most one output path")
	}

	name := fmt.Sprintf("I_%d_%d_S_%d-%d_%d", *jobs, *machines, *minSetup, *maxSetup, *seed)
	if fs.NArg() == 1 {
		name = filepath.Base(fs.Arg(0))
		name = name[:len(name)-len(filepath.Ext(name))]
	}
	p, err := problem.Random(name, *jobs, *machines, *minProc, *maxProc, *minSetup, *maxSetup,
		rand.New(rand.NewSource(*seed)))
	if err != nil {
		return err
	}

	if fs.NArg() == 0 {
		return p.Write(stdout)
	}

	path := fs.Arg(0)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrapf(err, "create %s", path)
	}
	if err := p.Write(f); err != nil {
		f.Close()
		return apperrors.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("Instance written", map[string]interface{}{
		"path":     path,
		"jobs":     p.NJobs,
		"machines": p.NMachines,
	})
	return nil
}

// Command upmsp solves, benchmarks and generates instances of the unrelated
// parallel machine scheduling problem with sequence-dependent setup times.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/copyleftdev/upmsp/internal/config"
	apperrors "github.com/copyleftdev/upmsp/internal/errors"
	"github.com/copyleftdev/upmsp/internal/logging"
)

const usage = `usage: upmsp <command> [flags] <args>

commands:
  optimize   solve an instance and optionally write the best solution
  bench      solve an instance with many seeds in parallel
  generate   write a random instance

Search defaults come from UPMSP_* environment variables.
Run "upmsp <command> -h" for the flags of a command.
`

type command func(args []string, cfg *config.Config, stdout io.Writer, logger *logging.Logger) error

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	commands := map[string]command{
		"optimize": runOptimize,
		"bench":    runBench,
		"generate": runGenerate,
	}
	name := os.Args[1]
	if name == "-h" || name == "--help" || name == "help" {
		fmt.Fprint(os.Stdout, usage)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr so that stdout only carries results.
	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := cmd(os.Args[2:], cfg, os.Stdout, logger.WithField("command", name)); err != nil {
		if apperrors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

// listFlag collects comma separated values, accepting the flag repeatedly.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*l = append(*l, item)
		}
	}
	return nil
}

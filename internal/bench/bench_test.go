package bench

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/copyleftdev/upmsp/internal/optimization"
	"github.com/copyleftdev/upmsp/internal/optimization/heuristic"
	"github.com/copyleftdev/upmsp/internal/problem"
)

func testProblem(t *testing.T) *problem.Problem {
	t.Helper()
	p, err := problem.Random("bench", 12, 3, 1, 50, 1, 10, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	return p
}

func testParams() optimization.Params {
	params := optimization.DefaultParams()
	params.Seed = 100
	params.TimeLimit = time.Minute
	params.IterationsLimit = 500
	params.IterationsPerTemperature = 50
	return params
}

func TestRunnerRun(t *testing.T) {
	p := testProblem(t)
	r := Runner{
		Params:  testParams(),
		Runs:    6,
		Workers: 3,
		Logger:  zap.NewNop(),
		Metrics: heuristic.NewMetrics(prometheus.NewRegistry()),
	}

	runs, err := r.Run(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, runs, 6)
	for i, run := range runs {
		assert.Equal(t, int64(100+i), run.Seed)
		assert.Equal(t, int64(500), run.Iterations)
		assert.True(t, run.Feasible)
		assert.NoError(t, run.Err)
	}

	again, err := Runner{Params: testParams(), Runs: 6, Workers: 1}.Run(context.Background(), p)
	require.NoError(t, err)
	for i := range runs {
		assert.Equal(t, runs[i].Makespan, again[i].Makespan, "seed %d is reproducible", runs[i].Seed)
	}
}

func TestRunnerRejectsBadConfiguration(t *testing.T) {
	p := testProblem(t)

	_, err := Runner{Params: testParams(), Runs: 0}.Run(context.Background(), p)
	assert.True(t, errors.Is(err, optimization.ErrInvalidParameter))

	params := testParams()
	params.CoolingRate = 1
	_, err = Runner{Params: params, Runs: 2}.Run(context.Background(), p)
	assert.True(t, errors.Is(err, optimization.ErrInvalidParameter))

	coefficients := filepath.Join(t.TempDir(), "coefficients.yaml")
	require.NoError(t, os.WriteFile(coefficients, []byte("improvement: 1\n"), 0o644))
	params = testParams()
	params.Algorithm = optimization.AlgorithmAdaptiveSA
	params.CoefficientsFile = coefficients
	params.MaxProbability = 0.01
	runs, err := Runner{Params: params, Runs: 2}.Run(context.Background(), p)
	assert.True(t, errors.Is(err, optimization.ErrInvalidParameter))
	for _, run := range runs {
		assert.NotZero(t, run.Iterations, "no failed run is reported as a result")
	}
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runs, err := Runner{Params: testParams(), Runs: 4, Workers: 2}.Run(ctx, testProblem(t))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, runs)
}

func TestSummarize(t *testing.T) {
	runs := []Run{
		{Seed: 1, Makespan: 10, Iterations: 100, Elapsed: 10 * time.Millisecond, Feasible: true},
		{Seed: 2, Makespan: 14, Iterations: 300, Elapsed: 30 * time.Millisecond, Feasible: true},
		{Seed: 3, Makespan: 12, Iterations: 200, Elapsed: 20 * time.Millisecond},
	}
	s := Summarize("inst", runs)
	assert.Equal(t, 3, s.Runs)
	assert.Equal(t, 2, s.Feasible)
	assert.Equal(t, 10, s.Best)
	assert.Equal(t, 14, s.Worst)
	assert.InDelta(t, 12.0, s.Mean, 1e-12)
	assert.InDelta(t, 2.0, s.Std, 1e-12)
	assert.InDelta(t, 200.0, s.MeanIterations, 1e-9)
	assert.Equal(t, 20*time.Millisecond, s.MeanElapsed)
	assert.Contains(t, s.String(), "best=10 worst=14 mean=12.00 std=2.00")

	one := Summarize("inst", runs[:1])
	assert.Zero(t, one.Std)
	assert.Equal(t, Summary{Instance: "empty"}, Summarize("empty", nil))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, "inst", []Run{
		{Seed: 1, Makespan: 10, Iterations: 100, Elapsed: 1500 * time.Millisecond, Feasible: true},
		{Seed: 2, Makespan: 11, Iterations: 5, Err: errors.New("no feasible move")},
	}, true)
	require.NoError(t, err)
	require.NoError(t, WriteCSV(&buf, "next", []Run{{Seed: 1, Makespan: 9, Feasible: true}}, false))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"INSTANCE,SEED,MAKESPAN,ITERATIONS,TIME.MILLIS,FEASIBLE,ERROR",
		"inst,1,10,100,1500,true,",
		"inst,2,11,5,0,false,no feasible move",
		"next,1,9,0,0,true,",
	}, lines)
}

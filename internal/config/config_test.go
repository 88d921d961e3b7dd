package config

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/upmsp/internal/optimization"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 4, cfg.HTTP.MaxJobs)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level, "the environment does not change the log level")
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, 10, cfg.Bench.Runs)

	params := cfg.SearchParams()
	def := optimization.DefaultParams()
	assert.Equal(t, def.Algorithm, params.Algorithm)
	assert.Equal(t, def.InitialTemperature, params.InitialTemperature)
	assert.Equal(t, def.Initial, params.Initial)
	assert.Equal(t, def.CoolingRate, params.CoolingRate)
	assert.Equal(t, def.IterationsPerTemperature, params.IterationsPerTemperature)
	assert.Equal(t, def.UpdateFrequency, params.UpdateFrequency)
	assert.Equal(t, def.MaxProbability, params.MaxProbability)
	assert.Equal(t, int64(math.MaxInt64), params.IterationsLimit)
	assert.Equal(t, def.TimeLimit, params.TimeLimit)
	assert.Negative(t, int64(params.TimeLimit))
	assert.Empty(t, params.DisabledMoves)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("UPMSP_ALGORITHM", "adaptive-sa")
	t.Setenv("UPMSP_SEED", "17")
	t.Setenv("UPMSP_INITIAL", "greedy")
	t.Setenv("UPMSP_COOLING_RATE", "0.9")
	t.Setenv("UPMSP_COEFFICIENTS_FILE", "coefficients.yaml")
	t.Setenv("UPMSP_MAX_PROBABILITY", "0.3")
	t.Setenv("UPMSP_TIME_LIMIT", "1500ms")
	t.Setenv("UPMSP_ITERATIONS_LIMIT", "1000")
	t.Setenv("UPMSP_DISABLE", "shift,two-shift")
	t.Setenv("BENCH_RUNS", "3")
	t.Setenv("BENCH_WORKERS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 3, cfg.Bench.Runs)
	assert.Equal(t, 2, cfg.Bench.Workers)

	params := cfg.SearchParams()
	assert.Equal(t, optimization.AlgorithmAdaptiveSA, params.Algorithm)
	assert.Equal(t, int64(17), params.Seed)
	assert.Equal(t, optimization.InitialGreedy, params.Initial)
	assert.Equal(t, 0.9, params.CoolingRate)
	assert.Equal(t, "coefficients.yaml", params.CoefficientsFile)
	assert.Equal(t, 0.3, params.MaxProbability)
	assert.Equal(t, 1500*time.Millisecond, params.TimeLimit)
	assert.Equal(t, int64(1000), params.IterationsLimit)
	assert.Equal(t, []string{"shift", "two-shift"}, params.DisabledMoves)
}

func TestLoadKeepsExplicitLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		is    error
	}{
		{"malformed number", "UPMSP_SEED", "seventeen", nil},
		{"cooling rate", "UPMSP_COOLING_RATE", "1.5", optimization.ErrInvalidParameter},
		{"iterations per temperature", "UPMSP_ITERATIONS_PER_TEMPERATURE", "0", optimization.ErrInvalidParameter},
		{"algorithm", "UPMSP_ALGORITHM", "genetic", optimization.ErrUnknownAlgorithm},
		{"initial solution", "UPMSP_INITIAL", "sorted", optimization.ErrInvalidParameter},
		{"adaptive without coefficients", "UPMSP_ALGORITHM", "adaptive-sa", optimization.ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is), "got %v", err)
			}
		})
	}
}

func TestSearchParamsCopiesDisabledMoves(t *testing.T) {
	cfg := &Config{}
	cfg.Search.Disable = []string{"swap"}
	params := cfg.SearchParams()
	params.DisabledMoves[0] = "switch"
	assert.Equal(t, "swap", cfg.Search.Disable[0])
}

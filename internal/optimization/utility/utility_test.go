package utility

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/upmsp/internal/optimization"
	"github.com/copyleftdev/upmsp/internal/optimization/neighborhood"
)

func TestParseCoefficients(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Coefficients
		wantErr bool
	}{
		{
			name:  "yaml",
			input: "intercept: 0.5\nimprovement: 4\nsideways: 1\naccept: 0.25\nreject: -1\npriority: 0.1\n",
			want:  Coefficients{Intercept: 0.5, Improvement: 4, Sideways: 1, Accept: 0.25, Reject: -1, Priority: 0.1},
		},
		{
			name:  "json",
			input: `{"intercept": 1, "improvement": 2}`,
			want:  Coefficients{Intercept: 1, Improvement: 2},
		},
		{name: "empty mapping", input: "{}", want: Coefficients{}},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown key", input: "gamma: 3\n", wantErr: true},
		{name: "unknown key next to known ones", input: `{"intercept": 1, "gamma": 2}`, wantErr: true},
		{name: "malformed", input: "intercept: [1, 2\n", wantErr: true},
		{name: "not a number", input: "intercept: high\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCoefficients([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCoefficientsErrors(t *testing.T) {
	_, err := ParseCoefficients(nil)
	assert.True(t, errors.Is(err, optimization.ErrInvalidParameter))
	assert.Contains(t, err.Error(), "no coefficients defined")

	_, err = ParseCoefficients([]byte("improvement: 1\ngamma: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gamma")
	var optErr *optimization.Error
	require.True(t, errors.As(err, &optErr))
	assert.Equal(t, "utility", optErr.Component)
}

func TestNewStandardModelValidation(t *testing.T) {
	_, err := NewStandardModel(Coefficients{Improvement: -1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrInvalidParameter))

	_, err = NewStandardModel(Coefficients{Intercept: math.NaN()})
	assert.True(t, errors.Is(err, optimization.ErrInvalidParameter))

	_, err = NewStandardModel(Coefficients{Reject: math.Inf(-1)})
	assert.Error(t, err)
}

func TestLoadStandardModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coefficients.yaml")
	require.NoError(t, os.WriteFile(path, []byte("intercept: 0\nimprovement: 3\n"), 0o644))

	m, err := LoadStandardModel(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, m.Coefficients().Improvement)
	assert.Equal(t, "standard", m.Name())

	_, err = LoadStandardModel(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestScoreZeroStatistics(t *testing.T) {
	m, err := NewStandardModel(Coefficients{Intercept: 0, Improvement: 5, Priority: 0.5})
	require.NoError(t, err)

	got := m.Score(&neighborhood.Stats{}, 2)
	assert.InDelta(t, math.Log1p(math.E), got, 1e-12)
	assert.InDelta(t, math.Log(2), m.Score(nil, 0), 1e-12)
}

func TestScoreMonotonicInImprovements(t *testing.T) {
	m, err := NewStandardModel(Coefficients{Intercept: -2, Improvement: 6, Sideways: 1, Accept: -3, Reject: 2})
	require.NoError(t, err)

	prev := -1.0
	for imp := int64(0); imp <= 100; imp += 5 {
		s := neighborhood.Stats{Calls: 100, Improvements: imp, Sideways: 3, Accepts: 40, Rejects: 60}
		got := m.Score(&s, 1)
		assert.GreaterOrEqual(t, got, prev)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.False(t, math.IsInf(got, 0) || math.IsNaN(got))
		prev = got
	}
}

func TestSoftplusLargeInput(t *testing.T) {
	assert.Equal(t, 1000.0, softplus(1000))
	assert.InDelta(t, 0, softplus(-1000), 1e-12)
}

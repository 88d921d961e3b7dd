// Package utility scores moves from their past outcomes. Adaptive heuristics
// turn the scores into selection probabilities.
package utility

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/upmsp/internal/optimization"
	"github.com/copyleftdev/upmsp/internal/optimization/neighborhood"
)

// Model maps a move's statistics to a selection weight.
//
// Score must be a pure function of its inputs, return a finite value >= 0,
// never decrease when only Improvements grows, and be defined for all-zero
// statistics.
type Model interface {
	Score(stats *neighborhood.Stats, priority int) float64
	Name() string
}

// Coefficients parametrise StandardModel.
type Coefficients struct {
	Intercept   float64 `yaml:"intercept" json:"intercept"`
	Improvement float64 `yaml:"improvement" json:"improvement"`
	Sideways    float64 `yaml:"sideways" json:"sideways"`
	Accept      float64 `yaml:"accept" json:"accept"`
	Reject      float64 `yaml:"reject" json:"reject"`
	Priority    float64 `yaml:"priority" json:"priority"`
}

// Validate rejects non-finite values and a negative improvement coefficient.
func (c Coefficients) Validate() error {
	for name, v := range map[string]float64{
		"intercept":   c.Intercept,
		"improvement": c.Improvement,
		"sideways":    c.Sideways,
		"accept":      c.Accept,
		"reject":      c.Reject,
		"priority":    c.Priority,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return optimization.InvalidParameterf("utility", "coefficient %s must be finite (got %v)", name, v)
		}
	}
	if c.Improvement < 0 {
		return optimization.InvalidParameterf("utility", "coefficient improvement must be >= 0 (got %v)", c.Improvement)
	}
	return nil
}

func (c Coefficients) vector() []float64 {
	return []float64{c.Improvement, c.Sideways, c.Accept, c.Reject, c.Priority}
}

// StandardModel scores a move as
//
//	softplus(intercept + c · [improvement rate, sideways rate, accept rate, reject rate, priority])
//
// where rates are per call and zero before the first call.
type StandardModel struct {
	coefficients Coefficients
	weights      []float64
}

// NewStandardModel validates c and builds the model.
func NewStandardModel(c Coefficients) (*StandardModel, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &StandardModel{coefficients: c, weights: c.vector()}, nil
}

// LoadStandardModel reads the coefficients from a YAML or JSON file.
func LoadStandardModel(path string) (*StandardModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, optimization.WrapErrorf(err, "failed to read coefficients file %s", path).WithComponent("utility")
	}
	c, err := ParseCoefficients(data)
	if err != nil {
		return nil, optimization.WrapErrorf(err, "failed to parse coefficients file %s", path)
	}
	return NewStandardModel(c)
}

// ParseCoefficients decodes one YAML (and therefore JSON) document. Unknown
// keys are errors.
func ParseCoefficients(data []byte) (Coefficients, error) {
	var c Coefficients
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return c, optimization.InvalidParameterf("utility", "no coefficients defined")
		}
		return c, optimization.WrapError(err, "decode coefficients").WithComponent("utility")
	}
	return c, nil
}

// Coefficients returns the model parameters.
func (m *StandardModel) Coefficients() Coefficients { return m.coefficients }

func (m *StandardModel) Name() string { return "standard" }

// Score implements Model.
func (m *StandardModel) Score(stats *neighborhood.Stats, priority int) float64 {
	features := make([]float64, len(m.weights))
	if stats != nil && stats.Calls > 0 {
		calls := float64(stats.Calls)
		features[0] = float64(stats.Improvements) / calls
		features[1] = float64(stats.Sideways) / calls
		features[2] = float64(stats.Accepts) / calls
		features[3] = float64(stats.Rejects) / calls
	}
	features[4] = float64(priority)
	return softplus(m.coefficients.Intercept + floats.Dot(m.weights, features))
}

// softplus is log(1 + e^x), computed without overflow.
func softplus(x float64) float64 {
	if x > 30 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

package heuristic

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports the progress of search runs. A nil *Metrics records nothing.
// One Metrics value may be shared by concurrent runs.
type Metrics struct {
	iterations   *prometheus.CounterVec
	outcomes     *prometheus.CounterVec
	temperature  *prometheus.GaugeVec
	bestMakespan *prometheus.GaugeVec
	probability  *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "upmsp",
			Name:      "iterations_total",
			Help:      "Search iterations performed.",
		}, []string{"algorithm"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "upmsp",
			Name:      "move_outcomes_total",
			Help:      "Evaluated moves by outcome.",
		}, []string{"move", "outcome"}),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "upmsp",
			Name:      "temperature",
			Help:      "Current annealing temperature of the last active run.",
		}, []string{"algorithm"}),
		bestMakespan: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "upmsp",
			Name:      "best_makespan",
			Help:      "Makespan of the incumbent of the last active run.",
		}, []string{"algorithm"}),
		probability: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "upmsp",
			Name:      "selection_probability",
			Help:      "Selection probability of each move after the last reweighting.",
		}, []string{"move"}),
	}
	if reg != nil {
		reg.MustRegister(m.iterations, m.outcomes, m.temperature, m.bestMakespan, m.probability)
	}
	return m
}

func (m *Metrics) iteration(algorithm string) {
	if m == nil {
		return
	}
	m.iterations.WithLabelValues(algorithm).Inc()
}

func (m *Metrics) outcome(move string, accepted bool) {
	if m == nil {
		return
	}
	outcome := "reject"
	if accepted {
		outcome = "accept"
	}
	m.outcomes.WithLabelValues(move, outcome).Inc()
}

func (m *Metrics) setTemperature(algorithm string, t float64) {
	if m == nil {
		return
	}
	m.temperature.WithLabelValues(algorithm).Set(t)
}

func (m *Metrics) setBest(algorithm string, cost int) {
	if m == nil {
		return
	}
	m.bestMakespan.WithLabelValues(algorithm).Set(float64(cost))
}

func (m *Metrics) setProbability(move string, p float64) {
	if m == nil {
		return
	}
	m.probability.WithLabelValues(move).Set(p)
}

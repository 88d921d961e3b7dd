package config

import (
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/copyleftdev/upmsp/internal/optimization"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
		// MaxJobs bounds the solve jobs running at once in the service.
		MaxJobs int `env:"HTTP_MAX_JOBS" envDefault:"4"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Search struct {
		Algorithm                string        `env:"UPMSP_ALGORITHM" envDefault:"sa"`
		Seed                     int64         `env:"UPMSP_SEED" envDefault:"0"`
		Initial                  string        `env:"UPMSP_INITIAL" envDefault:"random"`
		InitialTemperature       float64       `env:"UPMSP_INITIAL_TEMPERATURE" envDefault:"1.0"`
		CoolingRate              float64       `env:"UPMSP_COOLING_RATE" envDefault:"0.96"`
		IterationsPerTemperature int           `env:"UPMSP_ITERATIONS_PER_TEMPERATURE" envDefault:"1176628"`
		CoefficientsFile         string        `env:"UPMSP_COEFFICIENTS_FILE"`
		UpdateFrequency          int64         `env:"UPMSP_UPDATE_FREQUENCY" envDefault:"1"`
		MaxProbability           float64       `env:"UPMSP_MAX_PROBABILITY" envDefault:"1"`
		TimeLimit                time.Duration `env:"UPMSP_TIME_LIMIT" envDefault:"-1ms"`
		IterationsLimit          int64         `env:"UPMSP_ITERATIONS_LIMIT" envDefault:"9223372036854775807"`
		Disable                  []string      `env:"UPMSP_DISABLE" envSeparator:","`
	}
	Bench struct {
		Runs    int `env:"BENCH_RUNS" envDefault:"10"`
		Workers int `env:"BENCH_WORKERS" envDefault:"0"`
	}
}

// Load parses the environment and validates the search defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := cfg.SearchParams().Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SearchParams converts the search section into run parameters.
func (c *Config) SearchParams() optimization.Params {
	s := c.Search
	return optimization.Params{
		Algorithm:                s.Algorithm,
		Seed:                     s.Seed,
		Initial:                  s.Initial,
		InitialTemperature:       s.InitialTemperature,
		CoolingRate:              s.CoolingRate,
		IterationsPerTemperature: s.IterationsPerTemperature,
		CoefficientsFile:         s.CoefficientsFile,
		UpdateFrequency:          s.UpdateFrequency,
		MaxProbability:           s.MaxProbability,
		TimeLimit:                s.TimeLimit,
		IterationsLimit:          s.IterationsLimit,
		DisabledMoves:            append([]string(nil), s.Disable...),
	}
}

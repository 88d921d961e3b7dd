package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Config mirrors the LOG_* settings of config.Config. Empty fields take the
// values of DefaultConfig.
type Config struct {
	// Level is one of debug, info, warn, error or fatal, in any case.
	Level string `yaml:"level"`
	// Format is json or text.
	Format string `yaml:"format"`
	// Output is stdout, stderr or a file path opened for appending.
	Output string `yaml:"output"`
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: string(JSONFormat),
		Output: "stderr",
	}
}

// NewLogger creates a logger from cfg. Unknown levels and formats are errors.
func NewLogger(cfg *Config) (*Logger, error) {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.Level != "" {
			c.Level = cfg.Level
		}
		if cfg.Format != "" {
			c.Format = cfg.Format
		}
		if cfg.Output != "" {
			c.Output = cfg.Output
		}
	}

	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	format := Format(strings.ToLower(c.Format))
	if format != JSONFormat && format != TextFormat {
		return nil, fmt.Errorf("unknown log format %q (expected %s or %s)", c.Format, JSONFormat, TextFormat)
	}
	output, err := openOutput(c.Output)
	if err != nil {
		return nil, err
	}
	return New(level, output).WithFormat(format), nil
}

// ParseLevel converts a level name to LogLevel.
func ParseLevel(level string) (LogLevel, error) {
	l := LogLevel(strings.ToUpper(strings.TrimSpace(level)))
	if _, ok := severity[l]; !ok {
		return "", fmt.Errorf("unknown log level %q", level)
	}
	return l, nil
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log output %s: %w", output, err)
	}
	return f, nil
}

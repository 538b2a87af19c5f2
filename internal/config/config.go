package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is the service configuration, read from the environment.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Optimization struct {
		// DefaultSteps is used when a run request omits steps.
		DefaultSteps int `env:"OPT_DEFAULT_STEPS" envDefault:"1000"`
		// MaxSteps caps the steps of a single run.
		MaxSteps int `env:"OPT_MAX_STEPS" envDefault:"100000"`
		// MaxRuns is the number of runs retained; the oldest finished run
		// is evicted beyond it.
		MaxRuns int `env:"OPT_MAX_RUNS" envDefault:"256"`
		// HistoryStride records every n-th iterate of a run.
		HistoryStride int `env:"OPT_HISTORY_STRIDE" envDefault:"10"`
		// LogEvery emits a debug line every n steps of a run.
		LogEvery int `env:"OPT_LOG_EVERY" envDefault:"1000"`
	}
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	o := c.Optimization
	switch {
	case c.HTTP.Port <= 0 || c.HTTP.Port > 65535:
		return fmt.Errorf("HTTP_PORT out of range: %d", c.HTTP.Port)
	case o.MaxSteps < 1:
		return fmt.Errorf("OPT_MAX_STEPS must be positive, got %d", o.MaxSteps)
	case o.DefaultSteps < 1 || o.DefaultSteps > o.MaxSteps:
		return fmt.Errorf("OPT_DEFAULT_STEPS must be in [1,%d], got %d", o.MaxSteps, o.DefaultSteps)
	case o.MaxRuns < 1:
		return fmt.Errorf("OPT_MAX_RUNS must be positive, got %d", o.MaxRuns)
	case o.HistoryStride < 1:
		return fmt.Errorf("OPT_HISTORY_STRIDE must be positive, got %d", o.HistoryStride)
	}
	return nil
}

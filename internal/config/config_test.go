package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 1000, cfg.Optimization.DefaultSteps)
	assert.Equal(t, 100000, cfg.Optimization.MaxSteps)
	assert.Equal(t, 256, cfg.Optimization.MaxRuns)
	assert.Equal(t, 10, cfg.Optimization.HistoryStride)
	assert.Equal(t, 1000, cfg.Optimization.LogEvery)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HTTP_READ_TIMEOUT", "5s")
	t.Setenv("OPT_MAX_STEPS", "500")
	t.Setenv("OPT_DEFAULT_STEPS", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 500, cfg.Optimization.MaxSteps)
	assert.Equal(t, 50, cfg.Optimization.DefaultSteps)
}

func TestLoadExplicitLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"malformed port", map[string]string{"HTTP_PORT": "eighty"}, "Port"},
		{"port range", map[string]string{"HTTP_PORT": "70000"}, "HTTP_PORT out of range"},
		{"default above max", map[string]string{"OPT_MAX_STEPS": "10", "OPT_DEFAULT_STEPS": "20"}, "OPT_DEFAULT_STEPS"},
		{"zero max steps", map[string]string{"OPT_MAX_STEPS": "0"}, "OPT_MAX_STEPS"},
		{"zero runs", map[string]string{"OPT_MAX_RUNS": "0"}, "OPT_MAX_RUNS"},
		{"zero stride", map[string]string{"OPT_HISTORY_STRIDE": "0"}, "OPT_HISTORY_STRIDE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsim/src/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 100.0, cfg.Engine.DefaultMid)
	assert.Equal(t, 0.05, cfg.Engine.DefaultSpread)
	assert.Equal(t, int64(42), cfg.Sim.Seed)
	assert.Equal(t, 3600.0, cfg.Sim.Horizon)
	assert.Equal(t, 15.0, cfg.Sim.ArrivalRate)
	assert.Equal(t, 100, cfg.Sim.WarmupSteps)
	assert.Equal(t, 5, cfg.Sim.DepthLevels)
	assert.Equal(t, config.DefaultScenarios(), cfg.Sim.Scenarios)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Server.RateLimitDisabled)
	assert.Equal(t, 100, cfg.Server.RateLimitMax)
	assert.Equal(t, time.Second, cfg.Server.RateLimitWindow)
	assert.True(t, cfg.Server.RequestLogging)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SIM_SEED", "7")
	t.Setenv("SIM_HORIZON", "60")
	t.Setenv("ENGINE_DEFAULT_SPREAD", "0.1")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SIM_SCENARIOS", "small:5:2:1; mm-only:0:4:0")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_DISABLED", "1")
	t.Setenv("REQUEST_LOGGING_DISABLED", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Sim.Seed)
	assert.Equal(t, 60.0, cfg.Sim.Horizon)
	assert.Equal(t, 0.1, cfg.Engine.DefaultSpread)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Server.RateLimitDisabled)
	assert.False(t, cfg.Server.RequestLogging)
	assert.Equal(t, []config.Scenario{
		{Name: "small", Noise: 5, MarketMakers: 2, Momentum: 1},
		{Name: "mm-only", MarketMakers: 4},
	}, cfg.Sim.Scenarios)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"negative horizon":  {"SIM_HORIZON": "-1"},
		"zero arrival rate": {"SIM_ARRIVAL_RATE": "0"},
		"bad log level":     {"LOG_LEVEL": "verbose"},
		"bad log format":    {"LOG_FORMAT": "xml"},
		"bad scenario":      {"SIM_SCENARIOS": "broken:1:2"},
		"empty scenario":    {"SIM_SCENARIOS": "idle:0:0:0"},
		"duplicate names":   {"SIM_SCENARIOS": "a:1:0:0;a:2:0:0"},
		"limits inverted":   {"REPORT_DEFAULT_LIMIT": "50", "REPORT_MAX_LIMIT": "10"},
		"sub-second window": {"RATE_LIMIT_WINDOW": "500ms"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestParseScenarios(t *testing.T) {
	got, err := config.ParseScenarios("a:1:2:3;;")
	require.NoError(t, err)
	assert.Equal(t, []config.Scenario{{Name: "a", Noise: 1, MarketMakers: 2, Momentum: 3}}, got)

	_, err = config.ParseScenarios("a:x:2:3")
	assert.Error(t, err)

	_, err = config.ParseScenarios("a:-1:2:3")
	assert.Error(t, err)

	_, err = config.ParseScenarios(" ; ")
	assert.Error(t, err)
}

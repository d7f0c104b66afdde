package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the simulator
type Config struct {
	Engine EngineConfig
	Sim    SimConfig
	Logger LoggerConfig
	Server ServerConfig
}

// EngineConfig holds matching engine defaults
type EngineConfig struct {
	DefaultMid    float64
	DefaultSpread float64
}

// SimConfig holds scenario runner settings
type SimConfig struct {
	Seed           int64
	Horizon        float64 // simulated seconds
	ArrivalRate    float64 // background agent turns per simulated second
	RecordInterval float64
	WarmupSteps    int
	DepthLevels    int
	FairValue      float64
	FairValueSigma float64
	Scenarios      []Scenario
}

// Scenario is a named agent population
type Scenario struct {
	Name         string
	Noise        int
	MarketMakers int
	Momentum     int
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level  string
	File   string
	Format string // "json" or "pretty"
}

// ServerConfig holds the report viewer configuration
type ServerConfig struct {
	Port                  string
	ShutdownTimeout       time.Duration
	DefaultLimit          int
	MaxLimit              int
	RateLimitDisabled     bool
	RateLimitMax          int
	RateLimitWindow       time.Duration
	MaxConcurrentRequests int64
	RequestLogging        bool
}

// DefaultScenarios returns the built-in agent populations
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "noise-only", Noise: 100},
		{Name: "noise-mm", Noise: 80, MarketMakers: 20},
		{Name: "noise-momentum", Noise: 80, Momentum: 20},
	}
}

// Load loads configuration from .env file (if exists) and environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	scenarios := DefaultScenarios()
	if raw := os.Getenv("SIM_SCENARIOS"); raw != "" {
		parsed, err := ParseScenarios(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		scenarios = parsed
	}

	cfg := &Config{
		Engine: EngineConfig{
			DefaultMid:    getEnvFloat("ENGINE_DEFAULT_MID", 100.0),
			DefaultSpread: getEnvFloat("ENGINE_DEFAULT_SPREAD", 0.05),
		},
		Sim: SimConfig{
			Seed:           getEnvInt64("SIM_SEED", 42),
			Horizon:        getEnvFloat("SIM_HORIZON", 3600.0),
			ArrivalRate:    getEnvFloat("SIM_ARRIVAL_RATE", 15.0),
			RecordInterval: getEnvFloat("SIM_RECORD_INTERVAL", 1.0),
			WarmupSteps:    getEnvInt("SIM_WARMUP_STEPS", 100),
			DepthLevels:    getEnvInt("SIM_DEPTH_LEVELS", 5),
			FairValue:      getEnvFloat("SIM_FAIR_VALUE", 100.0),
			FairValueSigma: getEnvFloat("SIM_FAIR_VALUE_SIGMA", 0.0005),
			Scenarios:      scenarios,
		},
		Logger: LoggerConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			File:   getEnv("LOG_FILE", ""),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			DefaultLimit:    getEnvInt("REPORT_DEFAULT_LIMIT", 100),
			MaxLimit:        getEnvInt("REPORT_MAX_LIMIT", 5000),

			RateLimitDisabled:     getEnvBool("RATE_LIMIT_DISABLED", false),
			RateLimitMax:          getEnvInt("RATE_LIMIT_MAX", 100),
			RateLimitWindow:       getEnvDuration("RATE_LIMIT_WINDOW", time.Second),
			MaxConcurrentRequests: getEnvInt64("MAX_CONCURRENT_REQUESTS", 0),
			RequestLogging:        !getEnvBool("REQUEST_LOGGING_DISABLED", false),
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Engine.DefaultMid <= 0 {
		return fmt.Errorf("ENGINE_DEFAULT_MID must be > 0")
	}
	if c.Engine.DefaultSpread < 0 {
		return fmt.Errorf("ENGINE_DEFAULT_SPREAD must be >= 0")
	}

	if c.Sim.Horizon <= 0 {
		return fmt.Errorf("SIM_HORIZON must be > 0")
	}
	if c.Sim.ArrivalRate <= 0 {
		return fmt.Errorf("SIM_ARRIVAL_RATE must be > 0")
	}
	if c.Sim.RecordInterval <= 0 {
		return fmt.Errorf("SIM_RECORD_INTERVAL must be > 0")
	}
	if c.Sim.WarmupSteps < 0 {
		return fmt.Errorf("SIM_WARMUP_STEPS must be >= 0")
	}
	if c.Sim.DepthLevels < 1 {
		return fmt.Errorf("SIM_DEPTH_LEVELS must be > 0")
	}
	if c.Sim.FairValue <= 0 {
		return fmt.Errorf("SIM_FAIR_VALUE must be > 0")
	}
	if c.Sim.FairValueSigma < 0 {
		return fmt.Errorf("SIM_FAIR_VALUE_SIGMA must be >= 0")
	}
	if len(c.Sim.Scenarios) == 0 {
		return fmt.Errorf("at least one scenario is required")
	}
	seen := make(map[string]bool, len(c.Sim.Scenarios))
	for _, s := range c.Sim.Scenarios {
		if seen[s.Name] {
			return fmt.Errorf("duplicate scenario name %q", s.Name)
		}
		seen[s.Name] = true
		if s.Noise+s.MarketMakers+s.Momentum == 0 {
			return fmt.Errorf("scenario %q has no agents", s.Name)
		}
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logger.Format != "json" && c.Logger.Format != "pretty" {
		return fmt.Errorf("LOG_FORMAT must be json or pretty")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Server.DefaultLimit < 1 {
		return fmt.Errorf("REPORT_DEFAULT_LIMIT must be > 0")
	}
	if c.Server.MaxLimit < c.Server.DefaultLimit {
		return fmt.Errorf("REPORT_MAX_LIMIT must be >= REPORT_DEFAULT_LIMIT")
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitMax < 1 {
			return fmt.Errorf("RATE_LIMIT_MAX must be > 0")
		}
		if c.Server.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be >= 1s")
		}
	}
	if c.Server.MaxConcurrentRequests < 0 {
		return fmt.Errorf("MAX_CONCURRENT_REQUESTS must be >= 0")
	}

	return nil
}

// ParseScenarios reads "name:noise:mm:momentum" entries separated by ';'
func ParseScenarios(raw string) ([]Scenario, error) {
	var scenarios []Scenario
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("scenario %q: expected name:noise:mm:momentum", entry)
		}

		counts := make([]int, 3)
		for i, p := range parts[1:] {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("scenario %q: invalid agent count %q", entry, p)
			}
			counts[i] = n
		}

		scenarios = append(scenarios, Scenario{
			Name:         strings.TrimSpace(parts[0]),
			Noise:        counts[0],
			MarketMakers: counts[1],
			Momentum:     counts[2],
		})
	}

	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios in %q", raw)
	}
	return scenarios, nil
}

// Helper functions to read environment variables with defaults

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

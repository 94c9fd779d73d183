// Package config loads server settings from the environment and the
// fleet configuration from an optional file in the XDG config dirs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/adrg/xdg"

	"github.com/mrsobakin/broadside/internal/game/field"
)

var (
	fleetFile = "broadside/fleet.json"
)

type InvalidConfig struct {
	err string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("config error: %s", e.err)
}

// Config holds application configuration loaded from environment variables.
type Config struct {
	Addr string

	// Pause before the computer answers a human attack.
	AIDelay time.Duration

	// Simulated matches that may run at once.
	SimJobs int

	HuntAttempts  int
	TurnRetries   int
	PlaceAttempts int

	Fleet field.Configuration
}

// Load reads configuration from environment variables with sensible defaults.
// The fleet comes from `broadside/fleet.json` if present, the standard fleet
// otherwise.
func Load() (*Config, error) {
	var errs []error
	intVar := func(key string, fallback int) int {
		v, err := envInt(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Addr:          envOrDefault("ADDR", "127.0.0.1:4239"),
		SimJobs:       intVar("SIM_JOBS", runtime.NumCPU()*2),
		HuntAttempts:  intVar("HUNT_ATTEMPTS", 0),
		TurnRetries:   intVar("TURN_RETRIES", 0),
		PlaceAttempts: intVar("PLACE_ATTEMPTS", 0),
		Fleet:         field.DefaultConfiguration(),
	}

	delay, err := envDuration("AI_DELAY", 700*time.Millisecond)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.AIDelay = delay

	if len(errs) > 0 {
		return nil, errs[0]
	}

	if absPath, err := xdg.SearchConfigFile(fleetFile); err == nil {
		fleet, err := ReadFleet(absPath)
		if err != nil {
			return nil, err
		}
		cfg.Fleet = fleet
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SimJobs <= 0 {
		return &InvalidConfig{"SIM_JOBS must be positive"}
	}
	if c.AIDelay < 0 {
		return &InvalidConfig{"AI_DELAY must not be negative"}
	}
	if err := c.Fleet.IsValid(); err != nil {
		return &InvalidConfig{fmt.Sprintf("invalid fleet: %s", err)}
	}
	return nil
}

// Reads a fleet configuration in JSON form.
func ReadFleet(filePath string) (field.Configuration, error) {
	var conf field.Configuration

	data, err := os.ReadFile(filePath)
	if err != nil {
		return conf, err
	}

	if err := json.Unmarshal(data, &conf); err != nil {
		return conf, &InvalidConfig{fmt.Sprintf("%s: %s", filePath, err)}
	}

	return conf, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &InvalidConfig{fmt.Sprintf("%s: %q is not a number", key, v)}
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &InvalidConfig{fmt.Sprintf("%s: %q is not a duration", key, v)}
	}
	return d, nil
}

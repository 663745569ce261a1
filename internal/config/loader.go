package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ahmed-madyan/surge/loadshape"
)

// Environment overlay defaults. These reproduce the profile the tool ships
// with when nothing else is configured: a single-user spike, a ramp to 20
// over 10s, 5 steady users for 5s, then a stress ramp 5 -> 15 over 10s.
const (
	envPrefix = "SURGE"

	defaultSpikeUsers       = 1
	defaultRampUpUsers      = 20
	defaultRampUpDuration   = "10s"
	defaultSteadyUsers      = 5
	defaultSteadyDuration   = "5s"
	defaultStressStartUsers = 5
	defaultStressEndUsers   = 15
	defaultStressDuration   = "10s"

	defaultTimeout = 30 * time.Second
)

// Load reads a YAML or JSON config file, applies the SURGE_* environment
// overlay and validates the result.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := baseConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q (want .yaml, .yml or .json)", filepath.Ext(path))
	}

	applyEnvOverlay(cfg)

	if errs := ValidateConfig(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errs[0])
	}
	return cfg, nil
}

// Default returns a config built entirely from defaults and the SURGE_*
// environment, for runs started without a config file.
func Default() *Config {
	cfg := baseConfig()
	applyEnvOverlay(cfg)
	return cfg
}

func baseConfig() *Config {
	return &Config{
		Name:   "surge",
		Runner: RunnerSync,
		Target: TargetConfig{Timeout: defaultTimeout.String()},
		Pacing: PacingConfig{Kind: PacingNone},
		Log:    LogConfig{Level: "info", Format: "console", Output: "stdout"},
	}
}

// applyEnvOverlay folds the SURGE_* environment into cfg. SURGE_BASE_URL
// always wins over the file. The profile variables only apply when the file
// defines no profile steps; the shape is then fully tunable by environment,
// which is how headless runs are configured in CI.
func applyEnvOverlay(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("spike_users", defaultSpikeUsers)
	v.SetDefault("ramp_up_users", defaultRampUpUsers)
	v.SetDefault("ramp_up_duration", defaultRampUpDuration)
	v.SetDefault("steady_users", defaultSteadyUsers)
	v.SetDefault("steady_duration", defaultSteadyDuration)
	v.SetDefault("stress_start_users", defaultStressStartUsers)
	v.SetDefault("stress_end_users", defaultStressEndUsers)
	v.SetDefault("stress_duration", defaultStressDuration)

	if url := v.GetString("base_url"); url != "" {
		cfg.Target.BaseURL = strings.TrimSpace(url)
	}

	if len(cfg.Profile) == 0 {
		cfg.Profile = []StepConfig{
			{Kind: StepSpike, Users: v.GetInt("spike_users")},
			{Kind: StepRampUp, To: v.GetInt("ramp_up_users"), Duration: v.GetString("ramp_up_duration")},
			{Kind: StepSteady, Users: v.GetInt("steady_users"), Duration: v.GetString("steady_duration")},
			{Kind: StepStressRamp, From: v.GetInt("stress_start_users"), To: v.GetInt("stress_end_users"), Duration: v.GetString("stress_duration")},
		}
	}
}

// BuildSchedule maps the profile steps onto the loadshape builder.
func BuildSchedule(cfg *Config) (loadshape.Schedule, error) {
	b := loadshape.NewBuilder()
	for i, step := range cfg.Profile {
		switch normalizeKind(step.Kind) {
		case "spike":
			b.Spike(step.Users)
		case "rampup":
			d, err := ParseDuration(step.Duration)
			if err != nil {
				return loadshape.Schedule{}, fmt.Errorf("profile[%d]: duration: %w", i, err)
			}
			b.RampUp(step.To, d.Seconds())
		case "steady":
			d, err := ParseDuration(step.Duration)
			if err != nil {
				return loadshape.Schedule{}, fmt.Errorf("profile[%d]: duration: %w", i, err)
			}
			b.SteadyUsers(step.Users, d.Seconds())
		case "stressramp":
			d, err := ParseDuration(step.Duration)
			if err != nil {
				return loadshape.Schedule{}, fmt.Errorf("profile[%d]: duration: %w", i, err)
			}
			b.StressRamp(step.From, step.To, d.Seconds())
		default:
			return loadshape.Schedule{}, fmt.Errorf("profile[%d]: unknown step kind %q", i, step.Kind)
		}
	}
	return b.Build()
}

// RequestTimeout returns the configured target timeout, or the default when
// unset. The value is validated at load time, so parse errors here fall back
// to the default rather than failing.
func (c *Config) RequestTimeout() time.Duration {
	if c.Target.Timeout == "" {
		return defaultTimeout
	}
	d, err := ParseDuration(c.Target.Timeout)
	if err != nil {
		return defaultTimeout
	}
	return d
}

// normalizeKind lower-cases a step or pacing kind and strips separators.
func normalizeKind(kind string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	kind = strings.ReplaceAll(kind, "-", "")
	kind = strings.ReplaceAll(kind, "_", "")
	return kind
}

// ParseDuration parses duration strings like "30s", "5m", "1h" and spelled
// out forms like "30 seconds". A bare number is taken as seconds, so env
// values like SURGE_STEADY_DURATION=5 work.
func ParseDuration(duration string) (time.Duration, error) {
	duration = strings.TrimSpace(duration)
	if duration == "" {
		return 0, fmt.Errorf("duration cannot be empty")
	}

	if d, err := time.ParseDuration(duration); err == nil {
		return d, nil
	}

	if secs, err := strconv.ParseFloat(duration, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}

	lowered := strings.ToLower(duration)
	lowered = strings.ReplaceAll(lowered, " ", "")
	// Plural forms first; replacing "second" inside "seconds" would leave
	// a stray "s" behind.
	replacements := []struct{ word, abbrev string }{
		{"seconds", "s"},
		{"second", "s"},
		{"minutes", "m"},
		{"minute", "m"},
		{"hours", "h"},
		{"hour", "h"},
	}
	for _, r := range replacements {
		lowered = strings.ReplaceAll(lowered, r.word, r.abbrev)
	}
	return time.ParseDuration(lowered)
}

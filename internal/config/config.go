// Package config defines engine configuration structures and loading hooks.
//
// Conventions:
//   - Keys are flat snake_case so the same name works in YAML and as an
//     XIAN_ prefixed env var.
//   - Durations are integer milliseconds; use the accessor methods to get
//     time.Duration values.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ActionThreshold is the accumulated time a participant needs before choosing.
	ActionThreshold float64 `koanf:"action_threshold"`

	// TickStep is the simulated time added per tick, scaled by normalized agility.
	TickStep float64 `koanf:"tick_step"`

	// TickIntervalMS is the wall-clock period of one tick. 0 runs ticks back to back.
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// Casting time = (cost*CastCostFactor + damage*CastDamageFactor) * CastScale.
	CastCostFactor   float64 `koanf:"cast_cost_factor"`
	CastDamageFactor float64 `koanf:"cast_damage_factor"`
	CastScale        float64 `koanf:"cast_scale"`

	// ExecutePauseMS is the pause after a resolution before the timeline resumes.
	ExecutePauseMS int `koanf:"execute_pause_ms"`

	// NarrationTimeoutMS bounds every rendezvous wait. 0 waits forever.
	NarrationTimeoutMS int `koanf:"narration_timeout_ms"`

	// AI decision policy.
	AIThinkDelayMS     int     `koanf:"ai_think_delay_ms"`
	AITopN             int     `koanf:"ai_top_n"`
	AIDamageWeight     float64 `koanf:"ai_damage_weight"`
	AIEfficiencyWeight float64 `koanf:"ai_efficiency_weight"`
	AICounterWeight    float64 `koanf:"ai_counter_weight"`
	AISeed             int64   `koanf:"ai_seed"`

	// Narration typing.
	TypingSpeedMS      int `koanf:"typing_speed_ms"`
	EndSettleMS        int `koanf:"end_settle_ms"`
	LookupTimeoutMS    int `koanf:"lookup_timeout_ms"`
	NarrationQueueSize int `koanf:"narration_queue_size"`

	// DedupeSize bounds the remembered HTTP choice request ids.
	DedupeSize int `koanf:"dedupe_size"`

	// CatalogPath optionally points at a YAML skill/character catalog.
	CatalogPath string `koanf:"catalog_path"`

	// PlayerID selects the player character from the catalog.
	PlayerID string `koanf:"player_id"`

	// MetricsNamespace and MetricsSubsystem prefix the exported metric names.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsLatencyBucketsMS overrides the latency histogram buckets. Empty
	// keeps the built-in buckets.
	MetricsLatencyBucketsMS []float64 `koanf:"metrics_latency_buckets_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		ActionThreshold:    1000,
		TickStep:           30,
		TickIntervalMS:     30,
		CastCostFactor:     0.3,
		CastDamageFactor:   0.2,
		CastScale:          100,
		ExecutePauseMS:     500,
		NarrationTimeoutMS: 0,
		AIThinkDelayMS:     1000,
		AITopN:             3,
		AIDamageWeight:     1.5,
		AIEfficiencyWeight: 1.0,
		AICounterWeight:    0.8,
		AISeed:             0,
		TypingSpeedMS:      40,
		EndSettleMS:        1000,
		LookupTimeoutMS:    200,
		NarrationQueueSize: 64,
		DedupeSize:         1024,
		PlayerID:           "player",
		MetricsNamespace:   "xianxia",
		MetricsSubsystem:   "battle",
	}
}

// Validate reports the first invalid field wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ActionThreshold <= 0:
		return fmt.Errorf("%w: action_threshold must be positive", ErrInvalidConfig)
	case c.TickStep <= 0:
		return fmt.Errorf("%w: tick_step must be positive", ErrInvalidConfig)
	case c.TickIntervalMS < 0, c.ExecutePauseMS < 0, c.NarrationTimeoutMS < 0,
		c.AIThinkDelayMS < 0, c.TypingSpeedMS < 0, c.EndSettleMS < 0, c.LookupTimeoutMS < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	case c.CastCostFactor < 0 || c.CastDamageFactor < 0 || c.CastScale < 0:
		return fmt.Errorf("%w: cast factors must not be negative", ErrInvalidConfig)
	case c.AITopN < 1:
		return fmt.Errorf("%w: ai_top_n must be at least 1", ErrInvalidConfig)
	case c.NarrationQueueSize < 1:
		return fmt.Errorf("%w: narration_queue_size must be at least 1", ErrInvalidConfig)
	case c.PlayerID == "":
		return fmt.Errorf("%w: player_id must not be empty", ErrInvalidConfig)
	case c.MetricsNamespace == "":
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	case !ascending(c.MetricsLatencyBucketsMS):
		return fmt.Errorf("%w: metrics_latency_buckets_ms must be strictly ascending", ErrInvalidConfig)
	}
	return nil
}

// TickInterval returns TickIntervalMS as a duration.
func (c *Config) TickInterval() time.Duration { return ms(c.TickIntervalMS) }

// ExecutePause returns ExecutePauseMS as a duration.
func (c *Config) ExecutePause() time.Duration { return ms(c.ExecutePauseMS) }

// NarrationTimeout returns NarrationTimeoutMS as a duration.
func (c *Config) NarrationTimeout() time.Duration { return ms(c.NarrationTimeoutMS) }

// AIThinkDelay returns AIThinkDelayMS as a duration.
func (c *Config) AIThinkDelay() time.Duration { return ms(c.AIThinkDelayMS) }

// TypingSpeed returns TypingSpeedMS as a duration.
func (c *Config) TypingSpeed() time.Duration { return ms(c.TypingSpeedMS) }

// EndSettle returns EndSettleMS as a duration.
func (c *Config) EndSettle() time.Duration { return ms(c.EndSettleMS) }

// LookupTimeout returns LookupTimeoutMS as a duration.
func (c *Config) LookupTimeout() time.Duration { return ms(c.LookupTimeoutMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func ascending(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] <= v[i-1] {
			return false
		}
	}
	return true
}

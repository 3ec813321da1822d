package timeline

import (
	"fmt"
	"time"
)

// Settings are the balance and pacing constants of the timeline.
type Settings struct {
	// ActionThreshold is the accumulated time that makes an entry ready.
	ActionThreshold float64
	// TickStep is the simulated time per tick.
	TickStep float64
	// TickInterval is the wall-clock period of a tick. Zero runs ticks back to back.
	TickInterval time.Duration
	// Casting time = (cost*CastCostFactor + damage*CastDamageFactor) * CastScale.
	CastCostFactor   float64
	CastDamageFactor float64
	CastScale        float64
	// ExecutePause is the settle time after each resolution.
	ExecutePause time.Duration
	// NarrationTimeout bounds rendezvous waits. Zero waits forever.
	NarrationTimeout time.Duration
}

// DefaultSettings returns the tuned constants.
func DefaultSettings() Settings {
	return Settings{
		ActionThreshold:  1000,
		TickStep:         30,
		TickInterval:     30 * time.Millisecond,
		CastCostFactor:   0.3,
		CastDamageFactor: 0.2,
		CastScale:        100,
		ExecutePause:     500 * time.Millisecond,
	}
}

func (s Settings) validate() error {
	switch {
	case s.ActionThreshold <= 0:
		return fmt.Errorf("%w: action threshold must be positive", ErrInvalidSettings)
	case s.TickStep <= 0:
		return fmt.Errorf("%w: tick step must be positive", ErrInvalidSettings)
	case s.TickInterval < 0 || s.ExecutePause < 0 || s.NarrationTimeout < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidSettings)
	case s.CastCostFactor < 0 || s.CastDamageFactor < 0 || s.CastScale < 0:
		return fmt.Errorf("%w: cast factors must not be negative", ErrInvalidSettings)
	}
	return nil
}

// CastingTime is the cast duration of a skill in simulated time.
func (s Settings) CastingTime(cost, damage int) float64 {
	return (float64(cost)*s.CastCostFactor + float64(damage)*s.CastDamageFactor) * s.CastScale
}

package config

import (
	"fmt"
	"sync"
)

// RuntimeConfig holds configuration values that can be changed at runtime.
// All methods are thread-safe.
type RuntimeConfig struct {
	mu            sync.RWMutex
	conveyorSpeed float64 // Nominal belt speed in m/s: 0.01 - 1.0
	timeScale     float64 // Wall-clock multiplier: 0.1 - 20.0 (default 1.0)
}

// NewRuntimeConfig creates a new RuntimeConfig from the static Config.
func NewRuntimeConfig(cfg *Config) *RuntimeConfig {
	scale := cfg.TimeScale
	if scale <= 0 {
		scale = 1.0
	}
	return &RuntimeConfig{
		conveyorSpeed: cfg.ConveyorSpeed,
		timeScale:     scale,
	}
}

// GetConveyorSpeed returns the nominal conveyor speed.
func (rc *RuntimeConfig) GetConveyorSpeed() float64 {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.conveyorSpeed
}

// GetTimeScale returns the wall-clock speed-up factor.
// Higher scale = more simulation ticks per second.
func (rc *RuntimeConfig) GetTimeScale() float64 {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.timeScale
}

func validateConveyorSpeed(speed float64) error {
	if speed < 0.01 || speed > 1.0 {
		return fmt.Errorf("conveyor speed must be between 0.01 and 1.0, got %f", speed)
	}
	return nil
}

func validateTimeScale(scale float64) error {
	if scale < 0.1 || scale > 20.0 {
		return fmt.Errorf("time scale must be between 0.1 and 20.0, got %f", scale)
	}
	return nil
}

// SetConveyorSpeed sets the nominal conveyor speed.
// Valid range: 0.01 - 1.0 m/s
func (rc *RuntimeConfig) SetConveyorSpeed(speed float64) error {
	return rc.Update(&speed, nil)
}

// SetTimeScale sets the wall-clock speed-up factor.
// Valid range: 0.1 - 20.0
func (rc *RuntimeConfig) SetTimeScale(scale float64) error {
	return rc.Update(nil, &scale)
}

// Update validates every non-nil value and applies them together. Nothing
// changes when any value is out of range.
func (rc *RuntimeConfig) Update(speed, scale *float64) error {
	if speed != nil {
		if err := validateConveyorSpeed(*speed); err != nil {
			return err
		}
	}
	if scale != nil {
		if err := validateTimeScale(*scale); err != nil {
			return err
		}
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if speed != nil {
		rc.conveyorSpeed = *speed
	}
	if scale != nil {
		rc.timeScale = *scale
	}
	return nil
}

// RuntimeConfigSnapshot is a point-in-time copy of all runtime values.
type RuntimeConfigSnapshot struct {
	ConveyorSpeed float64
	TimeScale     float64
}

// Snapshot returns a point-in-time copy of all runtime config values.
func (rc *RuntimeConfig) Snapshot() RuntimeConfigSnapshot {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return RuntimeConfigSnapshot{
		ConveyorSpeed: rc.conveyorSpeed,
		TimeScale:     rc.timeScale,
	}
}

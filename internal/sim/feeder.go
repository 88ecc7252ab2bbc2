package sim

import (
	"fmt"
	"time"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

// FeederConfig controls how fruit is put on the belt
type FeederConfig struct {
	Start         time.Duration // no fruit before this simulation time
	IntervalTicks int           // ticks between spawns
	MaxPerType    int           // apples and oranges each
	RottenRate    float64       // probability that an apple is rotten
}

// DefaultFeederConfig returns the default feeder schedule
func DefaultFeederConfig() FeederConfig {
	return FeederConfig{
		Start:         7500 * time.Millisecond,
		IntervalTicks: 120,
		MaxPerType:    42,
		RottenRate:    0.1,
	}
}

// first model index of each fruit in the world file
const firstModelIndex = 8

// Feeder alternates apples and oranges at random onto the start of the belt
type Feeder struct {
	cfg     FeederConfig
	noise   *core.NoiseGenerator
	counter int
	apples  int
	oranges int
}

// NewFeeder creates a feeder
func NewFeeder(cfg FeederConfig, noise *core.NoiseGenerator) *Feeder {
	if cfg.IntervalTicks <= 0 {
		cfg.IntervalTicks = 1
	}
	return &Feeder{cfg: cfg, noise: noise}
}

// Done reports whether every fruit has been fed
func (f *Feeder) Done() bool {
	return f.apples >= f.cfg.MaxPerType && f.oranges >= f.cfg.MaxPerType
}

// step spawns a fruit when the interval counter wraps. A spawn blocked by
// an item still at the start of the belt is retried on the next tick.
func (f *Feeder) step(now time.Duration, spawn func(kind core.FruitType, name string) bool) {
	if now <= f.cfg.Start {
		return
	}

	if f.counter == 0 && !f.Done() {
		apple := f.noise.Bool(0.5)
		if f.apples >= f.cfg.MaxPerType {
			apple = false
		}
		if f.oranges >= f.cfg.MaxPerType {
			apple = true
		}

		kind, name := core.FruitOrange, fmt.Sprintf("orange%d", firstModelIndex+f.oranges)
		if apple {
			kind, name = core.FruitApple, fmt.Sprintf("apple%d", firstModelIndex+f.apples)
			if f.noise.Bool(f.cfg.RottenRate) {
				kind = core.FruitRottenApple
			}
		}

		if !spawn(kind, name) {
			return
		}
		if apple {
			f.apples++
		} else {
			f.oranges++
		}
	}

	f.counter++
	if f.counter >= f.cfg.IntervalTicks {
		f.counter = 0
	}
}

package core

import (
	"math/rand"
	"time"
)

// NoiseGenerator provides utilities for generating realistic sensor noise
type NoiseGenerator struct {
	rng *rand.Rand
}

// NewNoiseGenerator creates a new noise generator seeded from the clock
func NewNoiseGenerator() *NoiseGenerator {
	return NewSeededNoiseGenerator(time.Now().UnixNano())
}

// NewSeededNoiseGenerator creates a reproducible noise generator
func NewSeededNoiseGenerator(seed int64) *NoiseGenerator {
	return &NoiseGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GaussianNoiseWithClamp returns Gaussian noise scaled by a percentage of the
// target value, clamped to min/max values
func (ng *NoiseGenerator) GaussianNoiseWithClamp(target, noisePercent, min, max float64) float64 {
	value := target + ng.rng.NormFloat64()*(target*noisePercent)
	return Clamp(value, min, max)
}

// Bool returns true with the given probability
func (ng *NoiseGenerator) Bool(probability float64) bool {
	return ng.rng.Float64() < probability
}

// Clamp ensures a value is within bounds
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

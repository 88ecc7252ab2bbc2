package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the sorting cell
type Config struct {
	// Core settings
	SimulatorName string
	StageFile     string
	WatchStages   bool
	LogLevel      string

	// Simulation timing
	Timestep  time.Duration
	TimeScale float64
	Seed      int64 // 0 seeds from the clock

	// Cell mechanics
	ConveyorSpeed     float64 // m/s nominal belt speed
	ArmVelocity       float64 // rad/s joint slew rate
	PickCooldownTicks int
	DropCooldownTicks int

	// Feeder
	FeederStart         time.Duration
	FeederIntervalTicks int
	FeederMaxPerType    int
	RottenRate          float64

	// Telemetry
	OPCUAPort      int
	HealthPort     int
	StatusInterval time.Duration
	NATSURL        string
	NATSSubject    string
	ReportEndpoint string
	ReportPath     string
}

// Load reads configuration from environment variables with defaults
func Load() (*Config, error) {
	cfg := &Config{
		// Core settings
		SimulatorName: getEnvOrDefault("SIMULATOR_NAME", "FruitSortingCell-01"),
		StageFile:     getEnvOrDefault("STAGE_FILE", "fsa_message.json"),
		WatchStages:   getEnvAsBoolOrDefault("WATCH_STAGE_FILE", true),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),

		// Simulation timing
		Timestep:  getDurationOrDefault("TIMESTEP", 32*time.Millisecond),
		TimeScale: getEnvAsFloatOrDefault("TIME_SCALE", 1.0),
		Seed:      int64(getEnvAsIntOrDefault("SEED", 0)),

		// Cell mechanics
		ConveyorSpeed:     getEnvAsFloatOrDefault("CONVEYOR_SPEED", 0.15),
		ArmVelocity:       getEnvAsFloatOrDefault("ARM_VELOCITY", 2.0),
		PickCooldownTicks: getEnvAsIntOrDefault("PICK_COOLDOWN_TICKS", 8),
		DropCooldownTicks: getEnvAsIntOrDefault("DROP_COOLDOWN_TICKS", 4),

		// Feeder
		FeederStart:         getDurationOrDefault("FEEDER_START", 7500*time.Millisecond),
		FeederIntervalTicks: getEnvAsIntOrDefault("FEEDER_INTERVAL_TICKS", 120),
		FeederMaxPerType:    getEnvAsIntOrDefault("FEEDER_MAX_PER_TYPE", 42),
		RottenRate:          getEnvAsFloatOrDefault("ROTTEN_RATE", 0.1),

		// Telemetry
		OPCUAPort:      getEnvAsIntOrDefault("OPCUA_PORT", 4840),
		HealthPort:     getEnvAsIntOrDefault("HEALTH_PORT", 8081),
		StatusInterval: getDurationOrDefault("STATUS_INTERVAL", 10*time.Second),
		NATSURL:        getEnvOrDefault("NATS_URL", ""),
		NATSSubject:    getEnvOrDefault("NATS_SUBJECT", "fruitsort.events"),
		ReportEndpoint: getEnvOrDefault("REPORT_ENDPOINT", ""),
		ReportPath:     getEnvOrDefault("REPORT_PATH", "/api/v1/stage-reports"),
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

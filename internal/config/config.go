package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (defaults to "./data")
	Port     int
	DevMode  bool
	LogLevel string

	// Engine parameters
	TickInterval     int     // milliseconds between evolution ticks
	SimDT            float64 // integration step per tick, in simulation time units
	Tolerance        float64 // gate validation tolerance
	AuditTolerance   float64 // drift audit tolerance
	TerminalPoolSize int

	// Cron schedules
	SnapshotSchedule    string
	AuditSchedule       string
	MaintenanceSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "")
	if dataDir == "" {
		if _, err := os.Stat("../data"); err == nil {
			dataDir = "../data"
		} else {
			dataDir = "./data"
		}
	}

	cfg := &Config{
		DataDir:             dataDir,
		Port:                getEnvAsInt("PORT", 8001),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		TickInterval:        getEnvAsInt("TICK_INTERVAL_MS", 100),
		SimDT:               getEnvAsFloat("SIM_DT", 0.05),
		Tolerance:           getEnvAsFloat("GATE_TOLERANCE", 1e-9),
		AuditTolerance:      getEnvAsFloat("AUDIT_TOLERANCE", 1e-3),
		TerminalPoolSize:    getEnvAsInt("TERMINAL_POOL_SIZE", 4),
		SnapshotSchedule:    getEnv("SNAPSHOT_SCHEDULE", "@every 1m"),
		AuditSchedule:       getEnv("AUDIT_SCHEDULE", "@every 5m"),
		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "0 0 3 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that engine parameters are usable
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL_MS must be positive, got %d", c.TickInterval)
	}
	if c.SimDT <= 0 {
		return fmt.Errorf("SIM_DT must be positive, got %g", c.SimDT)
	}
	if c.Tolerance <= 0 || c.AuditTolerance <= 0 {
		return fmt.Errorf("tolerances must be positive, got gate=%g audit=%g", c.Tolerance, c.AuditTolerance)
	}
	if c.AuditTolerance < c.Tolerance {
		// Euler integration drifts past gate precision every tick; auditing
		// at gate tolerance would flag healthy regions constantly.
		return fmt.Errorf("AUDIT_TOLERANCE (%g) must not be tighter than GATE_TOLERANCE (%g)", c.AuditTolerance, c.Tolerance)
	}
	if c.TerminalPoolSize <= 0 {
		return fmt.Errorf("TERMINAL_POOL_SIZE must be positive, got %d", c.TerminalPoolSize)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

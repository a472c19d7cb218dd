package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application's configuration values.
type Config struct {
	HostIP           string        // Host IP for the server
	RESTPort         int           // Port for the REST API
	GinMode          string        // Mode for the Gin framework (e.g., release, debug, test)
	JWTSecret        string        // Secret key for signing maze write tokens
	JWTIssuer        string        // Issuer claim for write tokens
	MazeRows         int           // Rows of a maze created without explicit dimensions
	MazeCols         int           // Columns of a maze created without explicit dimensions
	MaxMazeDimension int           // Largest accepted value for rows or cols
	StepInterval     time.Duration // Default tick between animated generation steps
	SessionTTL       time.Duration // Idle time after which a maze session is dropped
	MaxSessions      int           // Upper bound on concurrently held maze sessions
}

// Envs holds the application's configuration loaded from environment variables.
var Envs = initConfig()

// initConfig initializes and returns the application configuration.
// It loads environment variables from a .env file.
func initConfig() Config {
	// Load .env file if available
	if err := godotenv.Load(); err != nil {
		log.Printf("[APP] [INFO] .env file not found or could not be loaded: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		log.Fatalf("[APP] [FATAL] %v", err)
	}
	return cfg
}

// Load reads the configuration from the current environment, applying defaults
// for unset keys. JWT_SECRET is not defaulted; callers that sign tokens must
// check it is present.
func Load() (cfg Config, err error) {
	if cfg.RESTPort, err = getEnvAsIntWithDefault("REST_PORT", 8080); err != nil {
		return Config{}, err
	}
	if cfg.MazeRows, err = getEnvAsIntWithDefault("MAZE_ROWS", 40); err != nil {
		return Config{}, err
	}
	if cfg.MazeCols, err = getEnvAsIntWithDefault("MAZE_COLS", 40); err != nil {
		return Config{}, err
	}
	if cfg.MaxMazeDimension, err = getEnvAsIntWithDefault("MAZE_MAX_DIMENSION", 100); err != nil {
		return Config{}, err
	}
	if cfg.MaxSessions, err = getEnvAsIntWithDefault("MAX_SESSIONS", 256); err != nil {
		return Config{}, err
	}

	stepMillis, err := getEnvAsIntWithDefault("STEP_INTERVAL_MS", 5)
	if err != nil {
		return Config{}, err
	}
	ttlSeconds, err := getEnvAsIntWithDefault("SESSION_TTL_SECONDS", 600)
	if err != nil {
		return Config{}, err
	}

	cfg.HostIP = getEnvWithDefault("HOST_IP", "0.0.0.0")
	cfg.GinMode = getEnvWithDefault("GIN_MODE", "release")
	cfg.JWTSecret = getEnvWithDefault("JWT_SECRET", "")
	cfg.JWTIssuer = getEnvWithDefault("JWT_ISSUER", "mazegen")
	cfg.StepInterval = time.Duration(stepMillis) * time.Millisecond
	cfg.SessionTTL = time.Duration(ttlSeconds) * time.Second

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate checks the values that would otherwise fail later at maze creation.
func (c Config) validate() error {
	if c.MaxMazeDimension <= 0 {
		return fmt.Errorf("MAZE_MAX_DIMENSION must be positive, got %d", c.MaxMazeDimension)
	}
	if c.MazeRows <= 0 || c.MazeRows > c.MaxMazeDimension || c.MazeCols <= 0 || c.MazeCols > c.MaxMazeDimension {
		return fmt.Errorf("default maze dimensions %dx%d outside [1, %d]", c.MazeRows, c.MazeCols, c.MaxMazeDimension)
	}
	if c.StepInterval <= 0 {
		return fmt.Errorf("STEP_INTERVAL_MS must be positive")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be positive, got %d", c.MaxSessions)
	}
	return nil
}

// getEnvAsIntWithDefault retrieves the value of an environment variable as an integer,
// or returns a default value if not set.
func getEnvAsIntWithDefault(key string, defaultValue int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return value, nil
}

// getEnvWithDefault retrieves the value of an environment variable or returns a default value if not set.
func getEnvWithDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr                  string        `env:"ADDR" env-default:":8080"`
	DBPath                string        `env:"DB_PATH" env-default:"file:verve.db"`
	LogLevel              string        `env:"LOG_LEVEL" env-default:"INFO"`
	LogColors             bool          `env:"LOG_COLORS" env-default:"true"`
	WriteMaxRetries       int           `env:"WRITE_MAX_RETRIES" env-default:"3"`
	WriteBackoff          time.Duration `env:"WRITE_BACKOFF" env-default:"1s"`
	WriteQueueSize        int           `env:"WRITE_QUEUE_SIZE" env-default:"256"`
	SnapshotTTL           time.Duration `env:"SNAPSHOT_TTL" env-default:"720h"`
	SnapshotPurgeInterval time.Duration `env:"SNAPSHOT_PURGE_INTERVAL" env-default:"1h"`
	MaxImportBytes        int64         `env:"MAX_IMPORT_BYTES" env-default:"5242880"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// Load reads configuration from a .env file (if present) and environment
// variables, fills defaults and validates the result.
func Load() (Config, error) {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: read env: %w", err)
	}
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("ADDR cannot be empty"))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("DB_PATH cannot be empty"))
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR, got %q", c.LogLevel))
	}
	if c.WriteMaxRetries < 0 || c.WriteMaxRetries > 10 {
		errs = append(errs, fmt.Errorf("WRITE_MAX_RETRIES must be between 0 and 10, got %d", c.WriteMaxRetries))
	}
	if c.WriteBackoff <= 0 {
		errs = append(errs, fmt.Errorf("WRITE_BACKOFF must be positive, got %s", c.WriteBackoff))
	}
	if c.WriteQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("WRITE_QUEUE_SIZE must be positive, got %d", c.WriteQueueSize))
	}
	if c.SnapshotTTL <= 0 {
		errs = append(errs, fmt.Errorf("SNAPSHOT_TTL must be positive, got %s", c.SnapshotTTL))
	}
	if c.SnapshotPurgeInterval <= 0 {
		errs = append(errs, fmt.Errorf("SNAPSHOT_PURGE_INTERVAL must be positive, got %s", c.SnapshotPurgeInterval))
	}
	if c.MaxImportBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_IMPORT_BYTES must be positive, got %d", c.MaxImportBytes))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT cannot be negative, got %s", c.ShutdownTimeout))
	}

	return errors.Join(errs...)
}

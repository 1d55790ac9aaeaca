package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
)

// Config holds all configuration for the RegexRelay server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Validation ValidationConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	RateLimitPerMinute int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL           string
	Stream        string
	ConsumerGroup string
}

type ValidationConfig struct {
	// DefaultPattern is applied to jobs submitted without an explicit pattern.
	DefaultPattern string
}

type WorkerConfig struct {
	Concurrency int
	// ProcessingDelay is an artificial pause between receiving a validation
	// request and evaluating it, to model non-trivial work.
	ProcessingDelay time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("REGEXRELAY_PORT", 8080),
			Env:                envString("REGEXRELAY_ENV", "development"),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 120),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:           os.Getenv("REDIS_URL"),
			Stream:        envString("JOB_STREAM", "jobs:validate"),
			ConsumerGroup: envString("JOB_CONSUMER_GROUP", "validators"),
		},
		Validation: ValidationConfig{
			DefaultPattern: envString("DEFAULT_PATTERN", "^[a-zA-Z0-9]+$"),
		},
		Worker: WorkerConfig{
			Concurrency:     envInt("WORKER_CONCURRENCY", 4),
			ProcessingDelay: envDuration("PROCESSING_DELAY", 500*time.Millisecond),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.Redis.Stream == "" {
		return fmt.Errorf("JOB_STREAM must not be empty")
	}
	if c.Redis.ConsumerGroup == "" {
		return fmt.Errorf("JOB_CONSUMER_GROUP must not be empty")
	}

	if _, err := regexp.Compile(c.Validation.DefaultPattern); err != nil {
		return fmt.Errorf("DEFAULT_PATTERN is not a valid regular expression: %w", err)
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.Worker.Concurrency)
	}
	if c.Worker.ProcessingDelay < 0 {
		return fmt.Errorf("PROCESSING_DELAY must not be negative, got %s", c.Worker.ProcessingDelay)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

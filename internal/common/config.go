package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for finscan.
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Source      SourceConfig   `toml:"source"`
	Pipeline    PipelineConfig `toml:"pipeline"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the storage driver.
type StorageConfig struct {
	Driver  string        `toml:"driver"` // "badger" (embedded, default) or "surreal"
	Path    string        `toml:"path"`   // badger data directory
	Surreal SurrealConfig `toml:"surreal"`
}

// SurrealConfig holds SurrealDB connection settings.
type SurrealConfig struct {
	URL       string `toml:"url"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// SourceConfig holds financial data source client configuration.
type SourceConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"` // requests per second
	Timeout   string `toml:"timeout"`
	PageSize  int    `toml:"page_size"` // exchange listing page size
}

// GetTimeout parses and returns the HTTP timeout duration.
func (c *SourceConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// PipelineConfig holds batch pipeline tuning.
type PipelineConfig struct {
	BatchSize     int    `toml:"batch_size"`     // symbols per batch
	MaxConcurrent int    `toml:"max_concurrent"` // in-flight fetches per batch
	ChunkSize     int    `toml:"chunk_size"`     // items admitted per drain cycle
	MaxRetries    int    `toml:"max_retries"`
	InitialDelay  string `toml:"initial_delay"`
	MaxDelay      string `toml:"max_delay"`
	BatchTimeout  string `toml:"batch_timeout"` // deadline for one batch, "" = none
	Schedule      string `toml:"schedule"`      // cron spec for automatic runs, "" = disabled
}

// GetBatchSize returns the batch size with a default of 50.
func (c *PipelineConfig) GetBatchSize() int {
	if c.BatchSize <= 0 {
		return 50
	}
	return c.BatchSize
}

// GetMaxConcurrent returns the concurrency bound with a default of 3.
func (c *PipelineConfig) GetMaxConcurrent() int {
	if c.MaxConcurrent <= 0 {
		return 3
	}
	return c.MaxConcurrent
}

// GetChunkSize returns the chunk size with a default of 50.
func (c *PipelineConfig) GetChunkSize() int {
	if c.ChunkSize <= 0 {
		return 50
	}
	return c.ChunkSize
}

// GetMaxRetries returns the retry bound with a default of 3.
func (c *PipelineConfig) GetMaxRetries() int {
	if c.MaxRetries <= 0 {
		return 3
	}
	return c.MaxRetries
}

// GetInitialDelay parses the initial backoff delay, defaulting to 500ms.
func (c *PipelineConfig) GetInitialDelay() time.Duration {
	d, err := time.ParseDuration(c.InitialDelay)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// GetMaxDelay parses the backoff ceiling, defaulting to 10s.
func (c *PipelineConfig) GetMaxDelay() time.Duration {
	d, err := time.ParseDuration(c.MaxDelay)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// GetBatchTimeout parses the per-batch deadline. Zero means no deadline.
func (c *PipelineConfig) GetBatchTimeout() time.Duration {
	d, err := time.ParseDuration(c.BatchTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Driver: "badger",
			Path:   "data/finscan",
			Surreal: SurrealConfig{
				URL:       "ws://localhost:8000/rpc",
				Namespace: "finscan",
				Database:  "finscan",
			},
		},
		Source: SourceConfig{
			BaseURL:   "https://stockanalysis.com/api",
			RateLimit: 5,
			Timeout:   "30s",
			PageSize:  100,
		},
		Pipeline: PipelineConfig{
			BatchSize:     50,
			MaxConcurrent: 3,
			ChunkSize:     50,
			MaxRetries:    3,
			InitialDelay:  "500ms",
			MaxDelay:      "10s",
			BatchTimeout:  "10m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies FINSCAN_* environment variable overrides.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FINSCAN_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FINSCAN_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FINSCAN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FINSCAN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if driver := os.Getenv("FINSCAN_STORAGE_DRIVER"); driver != "" {
		config.Storage.Driver = driver
	}

	if path := os.Getenv("FINSCAN_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if url := os.Getenv("FINSCAN_SURREAL_URL"); url != "" {
		config.Storage.Surreal.URL = url
	}

	if base := os.Getenv("FINSCAN_SOURCE_URL"); base != "" {
		config.Source.BaseURL = base
	}

	if schedule := os.Getenv("FINSCAN_PIPELINE_SCHEDULE"); schedule != "" {
		config.Pipeline.Schedule = schedule
	}
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"stock-insight/src/models"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// cronParser accepts the six-field (with seconds) expressions the scheduler runs.
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
	mu sync.RWMutex
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a Config from YAML bytes, applying defaults before validation.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Default returns a valid in-memory configuration.
func Default() *Config {
	c := &Config{MConfig: &models.MConfig{}}
	c.ApplyDefaults()
	return c
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills zero values
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "stock-insight"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.GrpcPort == 0 {
		c.GrpcPort = 50051
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		c.Storage.DBPath = "stock_insight.db"
	}
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 15
	}
	if c.Network.ConcurrentRequests == 0 {
		c.Network.ConcurrentRequests = 4
	}
	if len(c.DataSource.Sources) == 0 {
		c.DataSource.Sources = []string{"yahoo"}
	}
	if c.DataSource.DefaultTicker == "" {
		c.DataSource.DefaultTicker = "AAPL"
	}
	if c.DataSource.DefaultStart == "" {
		c.DataSource.DefaultStart = "2018-01-01"
	}
	if c.DataSource.DefaultEnd == "" {
		c.DataSource.DefaultEnd = "2025-01-01"
	}
	if c.DataSource.DataRetentionDays == 0 {
		c.DataSource.DataRetentionDays = 90
	}
	if c.Analysis.MinRows == 0 {
		c.Analysis.MinRows = 30
	}
	if c.Analysis.TableRows == 0 {
		c.Analysis.TableRows = 10
	}
	if c.Analysis.SMAWindow == 0 {
		c.Analysis.SMAWindow = 10
	}
	if c.Model.Path == "" {
		c.Model.Path = "models/model.yaml"
	}
	if c.Session.TTLMinutes == 0 {
		c.Session.TTLMinutes = 30
	}
	if c.Session.MaxSessions == 0 {
		c.Session.MaxSessions = 256
	}
	if c.Watchlist.Cron == "" {
		c.Watchlist.Cron = "0 30 22 * * 1-5"
	}
	if c.Watchlist.LookbackDays == 0 {
		c.Watchlist.LookbackDays = 365
	}
	if c.Events.Queue == "" {
		c.Events.Queue = "stock_insight.analyses"
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort <= 1024 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d (must be between 1025 and 65535)", c.GrpcPort)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	case "none":
	default:
		return fmt.Errorf("unknown database type '%s'", c.Storage.DBType)
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.ConcurrentRequests <= 0 {
		return fmt.Errorf("concurrent requests must be greater than 0")
	}

	// Validate DataSource configuration
	for i, name := range c.DataSource.Sources {
		switch strings.ToLower(name) {
		case "yahoo":
		case "csv":
			if c.DataSource.CSVDir == "" {
				return fmt.Errorf("source %d is csv but csv_dir is empty", i)
			}
		default:
			return fmt.Errorf("source %d has unknown name '%s'", i, name)
		}
	}
	start, err := time.Parse(models.DateLayout, c.DataSource.DefaultStart)
	if err != nil {
		return fmt.Errorf("invalid default_start: %w", err)
	}
	end, err := time.Parse(models.DateLayout, c.DataSource.DefaultEnd)
	if err != nil {
		return fmt.Errorf("invalid default_end: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("default_start must be before default_end")
	}
	if c.DataSource.DataRetentionDays <= 0 {
		return fmt.Errorf("data retention days must be greater than 0")
	}

	// Validate Analysis configuration
	if c.Analysis.MinRows < 2 {
		return fmt.Errorf("min_rows must be at least 2")
	}
	if c.Analysis.TableRows <= 0 {
		return fmt.Errorf("table_rows must be greater than 0")
	}
	if c.Analysis.SMAWindow <= 0 {
		return fmt.Errorf("sma_window must be greater than 0")
	}

	// Validate Session configuration
	if c.Session.TTLMinutes <= 0 {
		return fmt.Errorf("session ttl must be greater than 0")
	}
	if c.Session.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be greater than 0")
	}

	// Validate Watchlist configuration
	if c.Watchlist.Enabled && len(c.Watchlist.Symbols) == 0 {
		return fmt.Errorf("watchlist is enabled but has no symbols")
	}
	if _, err := cronParser.Parse(c.Watchlist.Cron); err != nil {
		return fmt.Errorf("invalid watchlist cron '%s': %w", c.Watchlist.Cron, err)
	}
	if c.Watchlist.LookbackDays <= 0 {
		return fmt.Errorf("watchlist lookback days must be greater than 0")
	}

	// Validate Events configuration
	if c.Events.Enabled && c.Events.AmqpURL == "" {
		return fmt.Errorf("events are enabled but amqp_url is empty")
	}

	return nil
}

// -----------------------------------------------------------------------------

// WatchlistSymbols returns a copy of the watched symbols. Safe for concurrent use.
func (c *Config) WatchlistSymbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.Watchlist.Symbols...)
}

// SetWatchlistSymbols replaces the watched symbols. Safe for concurrent use.
func (c *Config) SetWatchlistSymbols(symbols []string) {
	c.mu.Lock()
	c.Watchlist.Symbols = append([]string(nil), symbols...)
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	c.mu.RLock()
	data, err := yaml.Marshal(c.MConfig)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

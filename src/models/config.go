package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	GrpcHost   string            `yaml:"grpc_host"`
	GrpcPort   int               `yaml:"grpc_port"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
	DataSource MDataSourceConfig `yaml:"data_source"`
	Analysis   MAnalysisConfig   `yaml:"analysis"`
	Model      MModelConfig      `yaml:"model"`
	Session    MSessionConfig    `yaml:"session"`
	Watchlist  MWatchlistConfig  `yaml:"watchlist"`
	Events     MEventsConfig     `yaml:"events"`
}

// GetLogLevel lets the logger read the level without importing config.
func (c *MConfig) GetLogLevel() string {
	if c == nil {
		return ""
	}
	return c.LogLevel
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite, postgres, none
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	Schema             string `yaml:"schema"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	UserAgent          string   `yaml:"user_agent"`
}

type MDataSourceConfig struct {
	Sources           []string `yaml:"sources"` // tried in order
	CSVDir            string   `yaml:"csv_dir"`
	DefaultTicker     string   `yaml:"default_ticker"`
	DefaultStart      string   `yaml:"default_start"`
	DefaultEnd        string   `yaml:"default_end"`
	DataRetentionDays int      `yaml:"data_retention_days"`
}

type MAnalysisConfig struct {
	MinRows   int `yaml:"min_rows"`
	TableRows int `yaml:"table_rows"`
	SMAWindow int `yaml:"sma_window"`
}

type MModelConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type MSessionConfig struct {
	TTLMinutes  int `yaml:"ttl_minutes"`
	MaxSessions int `yaml:"max_sessions"`
	MaxMemoryMB int `yaml:"max_memory_mb"` // 0 = derive from system memory
}

type MWatchlistConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Cron         string   `yaml:"cron"`
	Symbols      []string `yaml:"symbols"`
	LookbackDays int      `yaml:"lookback_days"`
}

type MEventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	AmqpURL string `yaml:"amqp_url"`
	Queue   string `yaml:"queue"`
}

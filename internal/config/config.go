package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"task-ledger/internal/domain"
)

// Config holds all configuration options for the task ledger
type Config struct {
	Database    DatabaseConfig
	Ledger      LedgerConfig
	Node        NodeConfig
	Server      ServerConfig
	Logging     LoggingConfig
	Application ApplicationConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Dir            string        `env:"TL_DB_DIR"`
	Filename       string        `env:"TL_DB_FILENAME"`
	BusyTimeout    time.Duration `env:"TL_DB_BUSY_TIMEOUT"`
	DirPermissions uint32        `env:"TL_DB_DIR_PERMISSIONS"`
}

// LedgerConfig describes the wallet side: who signs and which network it
// must be attached to
type LedgerConfig struct {
	Account       string `env:"TL_ACCOUNT"`
	ChainID       uint64 `env:"TL_CHAIN_ID"`
	MaxTextLength int    `env:"TL_MAX_TEXT_LENGTH"` // 0 means unlimited
}

// NodeConfig describes the node the bridge talks to. An empty URL runs an
// in-process node over the local database.
type NodeConfig struct {
	URL          string        `env:"TL_NODE_URL"`
	ChainID      uint64        `env:"TL_NODE_CHAIN_ID"`
	QueueSize    int           `env:"TL_NODE_QUEUE_SIZE"`
	PollInterval time.Duration `env:"TL_NODE_POLL_INTERVAL"`
}

// ServerConfig holds the HTTP node API configuration
type ServerConfig struct {
	Addr string `env:"TL_SERVER_ADDR"`
	Mode string `env:"TL_SERVER_MODE"`
}

// LoggingConfig holds structured logging configuration
type LoggingConfig struct {
	Level      string `env:"TL_LOG_LEVEL"`
	File       string `env:"TL_LOG_FILE"`
	MaxSizeMB  int    `env:"TL_LOG_MAX_SIZE_MB"`
	MaxBackups int    `env:"TL_LOG_MAX_BACKUPS"`
	MaxAgeDays int    `env:"TL_LOG_MAX_AGE_DAYS"`
}

// ApplicationConfig holds application-level configuration
type ApplicationConfig struct {
	Timeout time.Duration `env:"TL_APP_TIMEOUT"`
	Verbose bool          `env:"TL_APP_VERBOSE"`
}

// NewConfig creates a new configuration with sensible defaults
func NewConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultDBDir := filepath.Join(homeDir, ".tl")

	return &Config{
		Database: DatabaseConfig{
			Dir:            defaultDBDir,
			Filename:       "tl.db",
			BusyTimeout:    5 * time.Second,
			DirPermissions: 0755,
		},
		Ledger: LedgerConfig{
			ChainID: domain.SepoliaChainID,
		},
		Node: NodeConfig{
			ChainID:      domain.SepoliaChainID,
			QueueSize:    64,
			PollInterval: 500 * time.Millisecond,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8545",
			Mode: "release",
		},
		Logging: LoggingConfig{
			Level:      "warn",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Application: ApplicationConfig{
			Timeout: 60 * time.Second,
			Verbose: false,
		},
	}
}

// GetDatabasePath returns the full path to the database file
func (c *Config) GetDatabasePath() string {
	return filepath.Join(c.Database.Dir, c.Database.Filename)
}

// UsesRemoteNode reports whether the bridge should talk to a node over HTTP
func (c *Config) UsesRemoteNode() bool {
	return c.Node.URL != ""
}

// LoadFromEnvironment loads configuration from environment variables
func (c *Config) LoadFromEnvironment() error {
	// Database configuration
	if dir := os.Getenv("TL_DB_DIR"); dir != "" {
		c.Database.Dir = dir
	}
	if filename := os.Getenv("TL_DB_FILENAME"); filename != "" {
		c.Database.Filename = filename
	}
	if timeout := os.Getenv("TL_DB_BUSY_TIMEOUT"); timeout != "" {
		c.Database.BusyTimeout = ParseDurationWithFallback(timeout, c.Database.BusyTimeout)
	}
	if perms := os.Getenv("TL_DB_DIR_PERMISSIONS"); perms != "" {
		c.Database.DirPermissions = ParseUint32WithFallback(perms, 8, c.Database.DirPermissions)
	}

	// Ledger configuration
	if account := os.Getenv("TL_ACCOUNT"); account != "" {
		c.Ledger.Account = account
	}
	if chainID := os.Getenv("TL_CHAIN_ID"); chainID != "" {
		id, err := domain.ParseChainID(chainID)
		if err != nil {
			return &ConfigError{Field: "ledger.chain_id", Message: "TL_CHAIN_ID must be a positive decimal or 0x-prefixed hex number"}
		}
		c.Ledger.ChainID = id
	}
	if maxLen := os.Getenv("TL_MAX_TEXT_LENGTH"); maxLen != "" {
		c.Ledger.MaxTextLength = ParseIntWithFallback(maxLen, c.Ledger.MaxTextLength)
	}

	// Node configuration
	if url := os.Getenv("TL_NODE_URL"); url != "" {
		c.Node.URL = strings.TrimRight(url, "/")
	}
	if chainID := os.Getenv("TL_NODE_CHAIN_ID"); chainID != "" {
		id, err := domain.ParseChainID(chainID)
		if err != nil {
			return &ConfigError{Field: "node.chain_id", Message: "TL_NODE_CHAIN_ID must be a positive decimal or 0x-prefixed hex number"}
		}
		c.Node.ChainID = id
	}
	if size := os.Getenv("TL_NODE_QUEUE_SIZE"); size != "" {
		c.Node.QueueSize = ParseIntWithFallback(size, c.Node.QueueSize)
	}
	if interval := os.Getenv("TL_NODE_POLL_INTERVAL"); interval != "" {
		c.Node.PollInterval = ParseDurationWithFallback(interval, c.Node.PollInterval)
	}

	// Server configuration
	if addr := os.Getenv("TL_SERVER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if mode := os.Getenv("TL_SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}

	// Logging configuration
	if level := os.Getenv("TL_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("TL_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
	if size := os.Getenv("TL_LOG_MAX_SIZE_MB"); size != "" {
		c.Logging.MaxSizeMB = ParseIntWithFallback(size, c.Logging.MaxSizeMB)
	}
	if backups := os.Getenv("TL_LOG_MAX_BACKUPS"); backups != "" {
		c.Logging.MaxBackups = ParseIntWithFallback(backups, c.Logging.MaxBackups)
	}
	if age := os.Getenv("TL_LOG_MAX_AGE_DAYS"); age != "" {
		c.Logging.MaxAgeDays = ParseIntWithFallback(age, c.Logging.MaxAgeDays)
	}

	// Application configuration
	if timeout := os.Getenv("TL_APP_TIMEOUT"); timeout != "" {
		c.Application.Timeout = ParseDurationWithFallback(timeout, c.Application.Timeout)
	}
	if verbose := os.Getenv("TL_APP_VERBOSE"); verbose != "" {
		c.Application.Verbose = ParseBoolWithFallback(verbose, c.Application.Verbose)
	}

	return nil
}

// Validate validates the configuration and returns any errors
func (c *Config) Validate() error {
	// Validate database configuration
	if c.Database.Dir == "" {
		return &ConfigError{Field: "database.dir", Message: "database directory cannot be empty"}
	}
	if c.Database.Filename == "" {
		return &ConfigError{Field: "database.filename", Message: "database filename cannot be empty"}
	}
	if c.Database.BusyTimeout < 0 {
		return &ConfigError{Field: "database.busy_timeout", Message: "busy timeout cannot be negative"}
	}

	// Validate ledger configuration
	if c.Ledger.Account != "" {
		if _, err := domain.ParseAddress(c.Ledger.Account); err != nil {
			return &ConfigError{Field: "ledger.account", Message: "account must be 0x followed by 40 hex digits"}
		}
	}
	if c.Ledger.ChainID == 0 {
		return &ConfigError{Field: "ledger.chain_id", Message: "target chain id must be positive"}
	}
	if c.Ledger.MaxTextLength < 0 {
		return &ConfigError{Field: "ledger.max_text_length", Message: "max text length cannot be negative"}
	}

	// Validate node configuration
	if c.Node.URL != "" && !strings.HasPrefix(c.Node.URL, "http://") && !strings.HasPrefix(c.Node.URL, "https://") {
		return &ConfigError{Field: "node.url", Message: "node url must start with http:// or https://"}
	}
	if c.Node.ChainID == 0 {
		return &ConfigError{Field: "node.chain_id", Message: "node chain id must be positive"}
	}
	if c.Node.QueueSize < 1 {
		return &ConfigError{Field: "node.queue_size", Message: "queue size must be at least 1"}
	}
	if c.Node.PollInterval <= 0 {
		return &ConfigError{Field: "node.poll_interval", Message: "poll interval must be positive"}
	}

	// Validate server configuration
	if c.Server.Addr == "" {
		return &ConfigError{Field: "server.addr", Message: "listen address cannot be empty"}
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return &ConfigError{Field: "server.mode", Message: "server mode must be debug, release or test"}
	}

	// Validate logging configuration
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: "log level must be debug, info, warn or error"}
	}

	// Validate application configuration
	if c.Application.Timeout <= 0 {
		return &ConfigError{Field: "application.timeout", Message: "application timeout must be positive"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}


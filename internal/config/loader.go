package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read from the working directory when present
const DefaultEnvFile = ".env"

// Loader handles loading configuration from multiple sources
type Loader struct {
	config   *Config
	envFiles []string
}

// NewLoader creates a new configuration loader that reads DefaultEnvFile
func NewLoader() *Loader {
	return NewLoaderWithEnvFiles(DefaultEnvFile)
}

// NewLoaderWithEnvFiles creates a loader that reads the given dotenv files.
// Missing files are skipped.
func NewLoaderWithEnvFiles(files ...string) *Loader {
	return &Loader{
		config:   NewConfig(),
		envFiles: files,
	}
}

// Load loads configuration using the cascading strategy:
// 1. Start with defaults
// 2. Fill unset environment variables from dotenv files
// 3. Override with environment variables
// 4. Override with command line flags (handled by cobra)
func (l *Loader) Load() (*Config, error) {
	// Step 1: Start with defaults (already done in NewConfig)

	// Step 2: dotenv never overrides variables that are already set
	if err := l.loadEnvFiles(); err != nil {
		return nil, err
	}

	// Step 3: Load from environment variables
	if err := l.config.LoadFromEnvironment(); err != nil {
		return nil, err
	}

	// Step 4: Validate the configuration
	if err := l.config.Validate(); err != nil {
		return nil, err
	}

	return l.config, nil
}

func (l *Loader) loadEnvFiles() error {
	for _, file := range l.envFiles {
		if file == "" {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
	}
	return nil
}

// LoadWithOverrides loads configuration and applies command line overrides
func (l *Loader) LoadWithOverrides(overrides *ConfigOverrides) (*Config, error) {
	// Load base configuration
	config, err := l.Load()
	if err != nil {
		return nil, err
	}

	if err := config.ApplyOverrides(overrides); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyOverrides applies command line overrides and re-validates
func (c *Config) ApplyOverrides(overrides *ConfigOverrides) error {
	if overrides != nil {
		applyOverrides(c, overrides)
	}
	return c.Validate()
}

// ConfigOverrides holds command line flag overrides
type ConfigOverrides struct {
	// Database overrides
	DBDir       *string
	DBFilename  *string
	BusyTimeout *time.Duration

	// Ledger overrides
	Account       *string
	ChainID       *uint64
	MaxTextLength *int

	// Node overrides
	NodeURL      *string
	NodeChainID  *uint64
	PollInterval *time.Duration

	// Server overrides
	ServerAddr *string

	// Logging overrides
	LogLevel *string
	LogFile  *string

	// Application overrides
	Timeout *time.Duration
	Verbose *bool
}

// applyOverrides applies command line overrides to the configuration
func applyOverrides(config *Config, overrides *ConfigOverrides) {
	// Database overrides
	if overrides.DBDir != nil {
		config.Database.Dir = *overrides.DBDir
	}
	if overrides.DBFilename != nil {
		config.Database.Filename = *overrides.DBFilename
	}
	if overrides.BusyTimeout != nil {
		config.Database.BusyTimeout = *overrides.BusyTimeout
	}

	// Ledger overrides
	if overrides.Account != nil {
		config.Ledger.Account = *overrides.Account
	}
	if overrides.ChainID != nil {
		config.Ledger.ChainID = *overrides.ChainID
	}
	if overrides.MaxTextLength != nil {
		config.Ledger.MaxTextLength = *overrides.MaxTextLength
	}

	// Node overrides
	if overrides.NodeURL != nil {
		config.Node.URL = strings.TrimRight(*overrides.NodeURL, "/")
	}
	if overrides.NodeChainID != nil {
		config.Node.ChainID = *overrides.NodeChainID
	}
	if overrides.PollInterval != nil {
		config.Node.PollInterval = *overrides.PollInterval
	}

	// Server overrides
	if overrides.ServerAddr != nil {
		config.Server.Addr = *overrides.ServerAddr
	}

	// Logging overrides
	if overrides.LogLevel != nil {
		config.Logging.Level = *overrides.LogLevel
	}
	if overrides.LogFile != nil {
		config.Logging.File = *overrides.LogFile
	}

	// Application overrides
	if overrides.Timeout != nil {
		config.Application.Timeout = *overrides.Timeout
	}
	if overrides.Verbose != nil {
		config.Application.Verbose = *overrides.Verbose
	}
}

// ParseDurationWithFallback parses a duration string with a fallback value
func ParseDurationWithFallback(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}

// ParseIntWithFallback parses an integer string with a fallback value
func ParseIntWithFallback(s string, fallback int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return fallback
}

// ParseBoolWithFallback parses a boolean string with a fallback value
func ParseBoolWithFallback(s string, fallback bool) bool {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return fallback
}

// ParseUint32WithFallback parses a uint32 string with a fallback value
func ParseUint32WithFallback(s string, base int, fallback uint32) uint32 {
	if u, err := strconv.ParseUint(s, base, 32); err == nil {
		return uint32(u)
	}
	return fallback
}

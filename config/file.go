// Package config loads the crawler's YAML configuration, applies
// environment overrides, and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentx56431/cei6/discovery"
	"github.com/agentx56431/cei6/records"
	"github.com/agentx56431/cei6/scraper"
	"gopkg.in/yaml.v3"
)

// Validation errors
var (
	ErrInvalidMaxAttempts = errors.New("http.max_attempts must be at least 1")
	ErrInvalidTimeout     = errors.New("http.timeout must be positive")
	ErrInvalidBackoff     = errors.New("http.initial_backoff must be positive and not exceed http.max_backoff")
	ErrInvalidInterval    = errors.New("http.min_interval must not be negative")
	ErrInvalidCap         = errors.New("category cap must be at least 1")
	ErrInvalidLogLevel    = errors.New("logging.level must be debug, info, warn or error")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrMissingOutputDir   = errors.New("output directories must be set")
)

// OutputConfig locates the append-only record files.
type OutputConfig struct {
	ListingsDir string `yaml:"listings_dir"`
	DetailsDir  string `yaml:"details_dir"`
}

// StateConfig locates the crawl-state database.
type StateConfig struct {
	DSN string `yaml:"dsn"`
}

// HTTPConfig controls page fetching.
type HTTPConfig struct {
	UserAgent      string        `yaml:"user_agent"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	MinInterval    time.Duration `yaml:"min_interval"`
	RespectRobots  bool          `yaml:"respect_robots"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// File enables a rotated JSON log next to the console output.
	File string `yaml:"file"`
}

// Config represents the structure of ~/.cei6/config.yaml.
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	State   StateConfig   `yaml:"state"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`

	// Categories overrides the built-in category registry, keyed by
	// content type.
	Categories map[string]scraper.Category `yaml:"categories"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	fetch := discovery.DefaultFetcherConfig()
	return &Config{
		Output: OutputConfig{
			ListingsDir: filepath.Join("outputs", "index"),
			DetailsDir:  filepath.Join("outputs", "details"),
		},
		State: StateConfig{
			DSN: filepath.Join("outputs", "state.db"),
		},
		HTTP: HTTPConfig{
			UserAgent:      fetch.UserAgent,
			Timeout:        fetch.Timeout,
			MaxAttempts:    fetch.MaxAttempts,
			InitialBackoff: fetch.InitialBackoff,
			MaxBackoff:     fetch.MaxBackoff,
			MinInterval:    fetch.MinInterval,
			RespectRobots:  fetch.RespectRobots,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.cei6/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".cei6", "config.yaml"), nil
}

// Load reads the configuration at path over the defaults, applies
// environment overrides and validates the result. An empty path means
// DefaultPath, which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err) && !explicit:
		// File doesn't exist -- not an error
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) applyEnv() {
	c.Output.ListingsDir = getEnv("CEI6_LISTINGS_DIR", c.Output.ListingsDir)
	c.Output.DetailsDir = getEnv("CEI6_DETAILS_DIR", c.Output.DetailsDir)
	c.State.DSN = getEnv("CEI6_STATE_DSN", c.State.DSN)
	c.Logging.Level = getEnv("CEI6_LOG_LEVEL", c.Logging.Level)
	c.HTTP.UserAgent = getEnv("CEI6_USER_AGENT", c.HTTP.UserAgent)
}

var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for values the crawler cannot use.
func (c *Config) Validate() error {
	if c.Output.ListingsDir == "" || c.Output.DetailsDir == "" {
		return ErrMissingOutputDir
	}

	h := c.HTTP
	if h.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if h.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if h.InitialBackoff <= 0 || h.MaxBackoff < h.InitialBackoff {
		return ErrInvalidBackoff
	}
	if h.MinInterval < 0 {
		return ErrInvalidInterval
	}

	if !logLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	for key, cat := range c.Categories {
		if _, err := records.ParseContentType(key); err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, key)
		}
		if cat.Cap < 0 {
			return fmt.Errorf("%w: %s has %d", ErrInvalidCap, key, cat.Cap)
		}
	}

	return nil
}

// Registry builds the category registry with the configured overrides.
func (c *Config) Registry() (*scraper.Registry, error) {
	overrides := make(map[records.ContentType]scraper.Category, len(c.Categories))
	for key, cat := range c.Categories {
		ct, err := records.ParseContentType(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, key)
		}
		overrides[ct] = cat
	}
	return scraper.NewRegistry(overrides), nil
}

// Fetcher returns the fetcher settings.
func (c *Config) Fetcher() discovery.FetcherConfig {
	return discovery.FetcherConfig{
		UserAgent:      c.HTTP.UserAgent,
		Timeout:        c.HTTP.Timeout,
		MaxAttempts:    c.HTTP.MaxAttempts,
		InitialBackoff: c.HTTP.InitialBackoff,
		MaxBackoff:     c.HTTP.MaxBackoff,
		MinInterval:    c.HTTP.MinInterval,
		RespectRobots:  c.HTTP.RespectRobots,
	}
}

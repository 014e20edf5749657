package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the Companies House scraper
type Config struct {
	// API endpoints and credential
	API APIConfig `yaml:"api" json:"api"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// HTTP and pagination settings
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds Companies House API configuration
type APIConfig struct {
	Key             string `yaml:"key" json:"key"`
	DataBaseURL     string `yaml:"data_base_url" json:"data_base_url"`
	DocumentBaseURL string `yaml:"document_base_url" json:"document_base_url"`
	UserAgent       string `yaml:"user_agent" json:"user_agent"`
}

// RateLimitConfig holds rate limiting configuration.
// Companies House allows 600 requests per 5 minutes across both APIs.
type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests" json:"max_requests"`
	Window      time.Duration `yaml:"window" json:"window"`
}

// HTTPConfig holds request and pagination settings
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	ItemsPerPage      int           `yaml:"items_per_page" json:"items_per_page"`
	MaxPageIterations int           `yaml:"max_page_iterations" json:"max_page_iterations"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// DownloadConfig holds document download settings
type DownloadConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb" json:"max_file_size_mb"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			DataBaseURL:     "https://api.company-information.service.gov.uk",
			DocumentBaseURL: "https://document-api.companieshouse.gov.uk",
			UserAgent:       "CompaniesHouseScraper/1.0 (Personal Research)",
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 600,
			Window:      5 * time.Minute,
		},
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			ItemsPerPage:      100,
			MaxPageIterations: 1000,
		},
		Output: OutputConfig{
			BaseDirectory: "./downloads",
		},
		Download: DownloadConfig{
			MaxFileSizeMB: 50,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if apiKey := os.Getenv("COMPANIES_HOUSE_API_KEY"); apiKey != "" {
		c.API.Key = apiKey
	}
	if outputDir := os.Getenv("CHSCRAPER_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if maxReq := os.Getenv("CHSCRAPER_MAX_REQUESTS"); maxReq != "" {
		var val int
		fmt.Sscanf(maxReq, "%d", &val)
		if val > 0 {
			c.RateLimit.MaxRequests = val
		}
	}
	if window := os.Getenv("CHSCRAPER_RATE_WINDOW_SECONDS"); window != "" {
		var val int
		fmt.Sscanf(window, "%d", &val)
		if val > 0 {
			c.RateLimit.Window = time.Duration(val) * time.Second
		}
	}
	if perPage := os.Getenv("CHSCRAPER_ITEMS_PER_PAGE"); perPage != "" {
		var val int
		fmt.Sscanf(perPage, "%d", &val)
		if val > 0 {
			c.HTTP.ItemsPerPage = val
		}
	}
	if logLevel := os.Getenv("CHSCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".chscraper.yaml",
		".chscraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "chscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "chscraper", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".chscraper.yaml"),
		filepath.Join(os.Getenv("HOME"), ".chscraper.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// MergeCommandLineFlags overrides configuration with command line flag values
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	for key, value := range flags {
		switch key {
		case "output":
			if v, ok := value.(string); ok && v != "" {
				c.Output.BaseDirectory = v
			}
		case "max-requests":
			if v, ok := value.(int); ok && v > 0 {
				c.RateLimit.MaxRequests = v
			}
		case "items-per-page":
			if v, ok := value.(int); ok && v > 0 {
				c.HTTP.ItemsPerPage = v
			}
		case "max-file-size":
			if v, ok := value.(int); ok && v > 0 {
				c.Download.MaxFileSizeMB = v
			}
		case "log-level":
			if v, ok := value.(string); ok && v != "" {
				c.Logging.Level = v
			}
		case "log-file":
			if v, ok := value.(string); ok && v != "" {
				c.Logging.File = v
			}
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.DataBaseURL == "" {
		errs = append(errs, errors.New("data API base URL is required"))
	}
	if c.API.DocumentBaseURL == "" {
		errs = append(errs, errors.New("document API base URL is required"))
	}
	if c.RateLimit.MaxRequests <= 0 {
		errs = append(errs, errors.New("max requests must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("HTTP timeout must be positive"))
	}
	if c.HTTP.ItemsPerPage <= 0 {
		errs = append(errs, errors.New("items per page must be positive"))
	}
	if c.HTTP.MaxPageIterations <= 0 {
		errs = append(errs, errors.New("max page iterations must be positive"))
	}
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output base directory is required"))
	}
	if c.Download.MaxFileSizeMB <= 0 {
		errs = append(errs, errors.New("max file size must be positive"))
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "warning": true,
		"error": true, "fatal": true, "disabled": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Load builds the effective configuration: defaults, then YAML config
// file, then environment (including .env), then command line flags.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".chscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

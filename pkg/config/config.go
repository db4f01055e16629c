package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFields is the detail field set requested for every anime
var DefaultFields = []string{
	"sid", "title", "main_picture", "alternative_titles", "start_date",
	"end_date", "synopsis", "nsfw", "created_at", "updated_at", "media_type",
	"status", "genres", "my_list_status", "num_episodes", "start_season",
	"broadcast", "source", "average_episode_duration", "rating", "studios",
	"available_at", "platforms", "resources",
}

// DefaultSeasons lists the seasonal labels in harvest order
var DefaultSeasons = []string{"winter", "spring", "summer", "fall"}

// Config holds all configuration options for the harvester
type Config struct {
	// Catalog API access
	API APIConfig `yaml:"api" json:"api"`

	// Year and season range to walk
	Harvest HarvestConfig `yaml:"harvest" json:"harvest"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Image download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds catalog API configuration
type APIConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	ClientID  string        `yaml:"client_id" json:"client_id"`
	Fields    []string      `yaml:"fields" json:"fields"`
	PageSize  int           `yaml:"page_size" json:"page_size"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
}

// HarvestConfig holds the traversal range
type HarvestConfig struct {
	StartYear int      `yaml:"start_year" json:"start_year"`
	EndYear   int      `yaml:"end_year" json:"end_year"`
	Seasons   []string `yaml:"seasons" json:"seasons"`
	// MaxPages caps listing pages per season; 0 means no cap
	MaxPages int `yaml:"max_pages" json:"max_pages"`
}

// RateLimitConfig holds the minimum spacing between requests
type RateLimitConfig struct {
	// RequestInterval spaces any two API requests, listing pages and details alike
	RequestInterval time.Duration `yaml:"request_interval" json:"request_interval"`
	// ItemInterval spaces the start of two consecutive items
	ItemInterval time.Duration `yaml:"item_interval" json:"item_interval"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	JSONIndent    int    `yaml:"json_indent" json:"json_indent"`
}

// DownloadConfig holds image download configuration
type DownloadConfig struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	ChunkSize int           `yaml:"chunk_size" json:"chunk_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	Console bool   `yaml:"console" json:"console"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://api.myanimelist.net/v2",
			Fields:    append([]string(nil), DefaultFields...),
			PageSize:  100,
			Timeout:   30 * time.Second,
			UserAgent: "malharvest/1.0",
		},
		Harvest: HarvestConfig{
			StartYear: 1960,
			EndYear:   2024,
			Seasons:   append([]string(nil), DefaultSeasons...),
		},
		RateLimit: RateLimitConfig{
			RequestInterval: time.Second,
			ItemInterval:    time.Second,
		},
		Output: OutputConfig{
			BaseDirectory: "output",
			JSONIndent:    4,
		},
		Download: DownloadConfig{
			Timeout:   60 * time.Second,
			ChunkSize: 32 * 1024,
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    "anime_scraper.log",
			Console: true,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("MALHARVEST_CLIENT_ID"); v != "" {
		c.API.ClientID = v
	}
	if v := os.Getenv("MALHARVEST_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("MALHARVEST_OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv("MALHARVEST_SEASONS"); v != "" {
		c.Harvest.Seasons = SplitList(v)
	}
	if v := os.Getenv("MALHARVEST_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MALHARVEST_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	ints := map[string]*int{
		"MALHARVEST_START_YEAR": &c.Harvest.StartYear,
		"MALHARVEST_END_YEAR":   &c.Harvest.EndYear,
		"MALHARVEST_PAGE_SIZE":  &c.API.PageSize,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
	}

	durations := map[string]*time.Duration{
		"MALHARVEST_REQUEST_INTERVAL": &c.RateLimit.RequestInterval,
		"MALHARVEST_ITEM_INTERVAL":    &c.RateLimit.ItemInterval,
	}
	for key, dst := range durations {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = d
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
	home := os.Getenv("HOME")
	locations := []string{
		".malharvest.yaml",
		".malharvest.yml",
		filepath.Join(home, ".config", "malharvest", "config.yaml"),
		filepath.Join(home, ".config", "malharvest", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api base URL is required"))
	}
	if c.API.ClientID == "" {
		errs = append(errs, errors.New("api client ID is required"))
	}
	if len(c.API.Fields) == 0 {
		errs = append(errs, errors.New("at least one detail field is required"))
	}
	if c.API.PageSize <= 0 || c.API.PageSize > 100 {
		errs = append(errs, errors.New("page size must be between 1 and 100"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api timeout must be positive"))
	}

	if c.Harvest.StartYear <= 0 {
		errs = append(errs, errors.New("start year must be positive"))
	}
	if c.Harvest.EndYear < c.Harvest.StartYear {
		errs = append(errs, fmt.Errorf("end year %d is before start year %d", c.Harvest.EndYear, c.Harvest.StartYear))
	}
	if len(c.Harvest.Seasons) == 0 {
		errs = append(errs, errors.New("at least one season is required"))
	}
	validSeasons := map[string]bool{"winter": true, "spring": true, "summer": true, "fall": true}
	for _, s := range c.Harvest.Seasons {
		if !validSeasons[strings.ToLower(s)] {
			errs = append(errs, fmt.Errorf("invalid season %q", s))
		}
	}
	if c.Harvest.MaxPages < 0 {
		errs = append(errs, errors.New("max pages cannot be negative"))
	}

	if c.RateLimit.RequestInterval < 0 || c.RateLimit.ItemInterval < 0 {
		errs = append(errs, errors.New("rate limit intervals cannot be negative"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.JSONIndent < 0 {
		errs = append(errs, errors.New("json indent cannot be negative"))
	}

	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.ChunkSize <= 0 {
		errs = append(errs, errors.New("download chunk size must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "warning": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-file"].(string); ok {
		c.Logging.File = v
	}
	if v, ok := flags["client-id"].(string); ok && v != "" {
		c.API.ClientID = v
	}
	if v, ok := flags["start-year"].(int); ok && v > 0 {
		c.Harvest.StartYear = v
	}
	if v, ok := flags["end-year"].(int); ok && v > 0 {
		c.Harvest.EndYear = v
	}
	if v, ok := flags["seasons"].([]string); ok && len(v) > 0 {
		c.Harvest.Seasons = v
	}
	if v, ok := flags["no-color"].(bool); ok && v {
		c.Logging.NoColor = true
	}
}

// Indent returns the JSON indent string built from Output.JSONIndent
func (c *Config) Indent() string {
	return strings.Repeat(" ", c.Output.JSONIndent)
}

// SplitList splits a comma separated list, dropping blanks
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".malharvest.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	return config, nil
}

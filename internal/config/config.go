// Package config loads the bot's runtime configuration from an optional JSON file and the
// environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/penpal-confirmation-bot/internal/schemas"
)

// Defaults.
const (
	DefaultPollInterval    = 30 * time.Second
	DefaultLeaseTTL        = 2 * time.Minute
	DefaultWikiPrefix      = "confirmation-bot"
	DefaultCommentLimit    = 100
	DefaultOutageThreshold = 10
)

// Config is the bot configuration. File values are overridden by environment variables.
type Config struct {
	SubredditName   string        `json:"subreddit_name,omitempty" validate:"required,min=3"`
	Dev             bool          `json:"dev,omitempty"`
	Secrets         string        `json:"-" validate:"required_if=Dev true"`
	AWSRegion       string        `json:"aws_region,omitempty"`
	DatabaseURL     string        `json:"database_url,omitempty" validate:"omitempty,url"`
	RedisURL        string        `json:"redis_url,omitempty" validate:"omitempty,url"`
	PollInterval    time.Duration `json:"-" validate:"gte=1s"`
	LeaseTTL        time.Duration `json:"-" validate:"gtefield=PollInterval"`
	WikiPrefix      string        `json:"wiki_prefix,omitempty"`
	CommentLimit    int           `json:"comment_limit,omitempty" validate:"gte=1,lte=100"`
	OutageThreshold int           `json:"outage_threshold,omitempty" validate:"gte=1"`
	MonthlyFlairID  string        `json:"monthly_flair_id,omitempty"`
	Verbose         bool          `json:"verbose,omitempty"`
}

// fileConfig mirrors the JSON file, where durations are strings.
type fileConfig struct {
	Config
	PollInterval string `json:"poll_interval,omitempty"`
	LeaseTTL     string `json:"lease_ttl,omitempty"`
}

// Default returns a config with every default applied.
func Default() *Config {
	return &Config{
		PollInterval:    DefaultPollInterval,
		LeaseTTL:        DefaultLeaseTTL,
		WikiPrefix:      DefaultWikiPrefix,
		CommentLimit:    DefaultCommentLimit,
		OutageThreshold: DefaultOutageThreshold,
	}
}

// LoadConfig loads configuration from a JSON file on top of the defaults.
// Returns an error if the file cannot be read, parsed or does not match the schema.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := schemas.Validate(schemas.Config, string(data)); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	fc := fileConfig{Config: *Default()}
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	cfg := fc.Config
	if fc.PollInterval != "" {
		if cfg.PollInterval, err = time.ParseDuration(fc.PollInterval); err != nil {
			return nil, fmt.Errorf("config error: 'poll_interval': %w", err)
		}
	}
	if fc.LeaseTTL != "" {
		if cfg.LeaseTTL, err = time.ParseDuration(fc.LeaseTTL); err != nil {
			return nil, fmt.Errorf("config error: 'lease_ttl': %w", err)
		}
	}
	return &cfg, nil
}

// Load reads the optional file at path, applies the environment and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields with any environment variables that are set.
func (c *Config) ApplyEnv() {
	c.SubredditName = getEnvString("SUBREDDIT_NAME", c.SubredditName)
	c.Dev = getEnvBool("DEV", c.Dev)
	c.Secrets = getEnvString("SECRETS", c.Secrets)
	c.AWSRegion = getEnvString("AWS_REGION", c.AWSRegion)
	c.DatabaseURL = getEnvString("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = getEnvString("REDIS_URL", c.RedisURL)
	c.PollInterval = getEnvDuration("POLL_INTERVAL", c.PollInterval)
	c.LeaseTTL = getEnvDuration("LEASE_TTL", c.LeaseTTL)
	c.WikiPrefix = getEnvString("WIKI_PREFIX", c.WikiPrefix)
	c.CommentLimit = getEnvInt("COMMENT_LIMIT", c.CommentLimit)
	c.OutageThreshold = getEnvInt("OUTAGE_THRESHOLD", c.OutageThreshold)
	c.MonthlyFlairID = getEnvString("MONTHLY_FLAIR_ID", c.MonthlyFlairID)
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// getEnvString gets an environment variable as a string with a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

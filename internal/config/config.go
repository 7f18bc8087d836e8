// Package config loads the responder configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/keshon/autoreply/internal/confidence"
)

var (
	// ErrMissingToken is returned by RequireToken when DISCORD_TOKEN is empty.
	ErrMissingToken = errors.New("DISCORD_TOKEN is not set")
	// ErrInvalidValue marks a value outside its allowed range.
	ErrInvalidValue = errors.New("invalid configuration value")
)

// Config is the full process configuration.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN"`

	PatternsDir string `env:"PATTERNS_DIR" envDefault:"questions"`
	DataDir     string `env:"DATA_DIR" envDefault:"logs"`

	Debug               bool     `env:"DEBUG" envDefault:"false"`
	BlacklistedChannels []string `env:"BLACKLISTED_CHANNELS" envSeparator:","`

	MentionThreshold  float64 `env:"MENTION_THRESHOLD" envDefault:"0.6"`
	QuestionThreshold float64 `env:"QUESTION_THRESHOLD" envDefault:"0.6"`
	DefaultThreshold  float64 `env:"DEFAULT_THRESHOLD" envDefault:"0.85"`

	MinMessageLength int           `env:"MIN_MESSAGE_LENGTH" envDefault:"3"`
	MatchTimeout     time.Duration `env:"MATCH_TIMEOUT" envDefault:"100ms"`
	WatchPatterns    bool          `env:"WATCH_PATTERNS" envDefault:"true"`

	HTTPAddr string `env:"HTTP_ADDR"`

	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	ConsoleLogLevel string `env:"CONSOLE_LOG_LEVEL" envDefault:"debug"`
	LogFormat       string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads the given .env files (".env" when none are named) and then the
// process environment. A missing .env file is not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom parses the configuration from environ only.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges. The token is checked separately by RequireToken
// because offline tooling runs without one.
func (c *Config) Validate() error {
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	if c.MinMessageLength < 1 {
		return fmt.Errorf("%w: MIN_MESSAGE_LENGTH must be at least 1, got %d", ErrInvalidValue, c.MinMessageLength)
	}
	if c.MatchTimeout <= 0 {
		return fmt.Errorf("%w: MATCH_TIMEOUT must be positive, got %s", ErrInvalidValue, c.MatchTimeout)
	}
	if c.PatternsDir == "" {
		return fmt.Errorf("%w: PATTERNS_DIR is empty", ErrInvalidValue)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: DATA_DIR is empty", ErrInvalidValue)
	}
	return nil
}

// RequireToken fails when no Discord token is configured.
func (c *Config) RequireToken() error {
	if c.DiscordToken == "" {
		return ErrMissingToken
	}
	return nil
}

// Thresholds returns the three acceptance thresholds.
func (c *Config) Thresholds() confidence.Thresholds {
	return confidence.Thresholds{
		Mention:  c.MentionThreshold,
		Question: c.QuestionThreshold,
		Default:  c.DefaultThreshold,
	}
}

// Policy returns the confidence policy described by the configuration.
func (c *Config) Policy() confidence.Policy {
	return confidence.Policy{
		Thresholds: c.Thresholds(),
		MinLength:  c.MinMessageLength,
	}
}

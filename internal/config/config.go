package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Provider      string `env:"SCRIBE_PROVIDER" envDefault:"openai"`
	Model         string `env:"SCRIBE_MODEL"`
	Language      string `env:"SCRIBE_LANGUAGE"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`

	UploadDir      string        `env:"UPLOAD_DIR" envDefault:"uploads"`
	SubtitleDir    string        `env:"SUBTITLE_DIR" envDefault:"static/subtitles"`
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" envDefault:"52428800"`
	PrepareAudio   bool          `env:"PREPARE_AUDIO" envDefault:"true"`
	Timeout        time.Duration `env:"RECOGNIZE_TIMEOUT" envDefault:"0s"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":5000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	Provider    string
	Model       string
	Language    string
	SubtitleDir string
	UploadDir   string
	HTTPAddr    string
	LogLevel    string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		// godotenv.Load never overwrites variables already set
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if overrides.Provider != "" {
		cfg.Provider = overrides.Provider
	}
	if overrides.Model != "" {
		cfg.Model = overrides.Model
	}
	if overrides.Language != "" {
		cfg.Language = overrides.Language
	}
	if overrides.SubtitleDir != "" {
		cfg.SubtitleDir = overrides.SubtitleDir
	}
	if overrides.UploadDir != "" {
		cfg.UploadDir = overrides.UploadDir
	}
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported provider %q: use openai or gemini", c.Provider)
	}
	if c.SubtitleDir == "" {
		return fmt.Errorf("subtitle directory must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("RECOGNIZE_TIMEOUT must not be negative, got %s", c.Timeout)
	}
	return nil
}

// APIKey returns the credential for the configured recognition provider.
func (c *Config) APIKey() string {
	switch c.Provider {
	case "gemini":
		return c.GeminiAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// TranslationAPIKey returns the credential for a translation provider.
func (c *Config) TranslationAPIKey(provider string) string {
	switch strings.ToLower(provider) {
	case "gemini":
		return c.GeminiAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	LLM       LLMConfig       `json:"llm"`
	Notifiers NotifierConfig  `json:"notifiers"`
	Retry     RetryConfig     `json:"retry"`
	Retention RetentionConfig `json:"retention"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

// LLMConfig points at the OpenAI-compatible classification service.
type LLMConfig struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
}

type NotifierConfig struct {
	Slack   SlackNotifierConfig   `json:"slack"`
	Discord DiscordNotifierConfig `json:"discord"`
}

type SlackNotifierConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	Channel  string `json:"channel"`
}

type DiscordNotifierConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	Channel  string `json:"channel"`
}

// RetryConfig tunes the error monitor's retry policy.
type RetryConfig struct {
	MaxRetries  int `json:"max_retries"`
	BaseDelayMS int `json:"base_delay_ms"`
	MaxDelaySec int `json:"max_delay_sec"`
}

// BaseDelay returns the configured base delay, defaulting to one second.
func (r RetryConfig) BaseDelay() time.Duration {
	if r.BaseDelayMS <= 0 {
		return time.Second
	}
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the configured backoff cap, defaulting to thirty
// seconds.
func (r RetryConfig) MaxDelay() time.Duration {
	if r.MaxDelaySec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.MaxDelaySec) * time.Second
}

// RetentionConfig tunes the conversation state TTL sweep.
type RetentionConfig struct {
	StateDays int `json:"state_days"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry.MaxRetries = 3
	}
	if cfg.Retention.StateDays <= 0 {
		cfg.Retention.StateDays = 30
	}
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the tracker bot.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	DigestTime     string // HH:MM; when set, one digest per day at this time
	DigestInterval time.Duration
	LogLevel       string
}

// fileConfig is the YAML shape of the optional config file.
type fileConfig struct {
	TelegramToken       string `yaml:"telegram_token"`
	DatabaseURL         string `yaml:"database_url"`
	DigestTime          string `yaml:"digest_time"`
	DigestIntervalHours int    `yaml:"digest_interval_hours"`
	LogLevel            string `yaml:"log_level"`
}

// Load reads the YAML file (CONFIG_FILE, or ./config.yaml when present) and
// applies environment variable overrides on top. Env always wins so deploys
// can keep secrets out of the file.
func Load() (Config, error) {
	var cfg Config

	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.TelegramToken = fc.TelegramToken
		cfg.DatabaseURL = fc.DatabaseURL
		cfg.DigestTime = fc.DigestTime
		cfg.LogLevel = fc.LogLevel
		if fc.DigestIntervalHours > 0 {
			cfg.DigestInterval = time.Duration(fc.DigestIntervalHours) * time.Hour
		}
	}

	cfg.applyEnvOverrides()

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "chore_tracker.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.DigestTime == "" && cfg.DigestInterval == 0 {
		cfg.DigestInterval = 6 * time.Hour
	}
	if cfg.DigestTime != "" {
		if _, err := time.Parse("15:04", cfg.DigestTime); err != nil {
			return cfg, fmt.Errorf("digest time %q: expected HH:MM", cfg.DigestTime)
		}
	}
	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); v != "" {
		c.TelegramToken = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		c.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DIGEST_TIME")); v != "" {
		c.DigestTime = v
	}
	if v := strings.TrimSpace(os.Getenv("DIGEST_INTERVAL_HOURS")); v != "" {
		if d, err := time.ParseDuration(v + "h"); err == nil && d > 0 {
			c.DigestInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
}

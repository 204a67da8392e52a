package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type config struct {
	Addr       string `yaml:"addr" env:"PROMPTPALETTE_ADDR"`
	CatalogDir string `yaml:"catalog_dir" env:"PROMPTPALETTE_CATALOG_DIR"`
	LogLevel   string `yaml:"log_level" env:"PROMPTPALETTE_LOG_LEVEL"`

	Storage struct {
		Driver string `yaml:"driver" env:"DRIVER"`
		Path   string `yaml:"path" env:"PATH"`
	} `yaml:"storage" envPrefix:"PROMPTPALETTE_STORAGE_"`

	Generate struct {
		Provider string        `yaml:"provider" env:"PROVIDER"`
		Model    string        `yaml:"model" env:"MODEL"`
		BaseURL  string        `yaml:"base_url" env:"BASE_URL"`
		Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
	} `yaml:"generate" envPrefix:"PROMPTPALETTE_GENERATE_"`

	TLS struct {
		CertFile string `yaml:"cert_file" env:"CERT_FILE"`
		KeyFile  string `yaml:"key_file" env:"KEY_FILE"`
	} `yaml:"tls" envPrefix:"PROMPTPALETTE_TLS_"`

	// Credentials come from the environment only.
	GeminiAPIKey string `yaml:"-" env:"GEMINI_API_KEY"`
	OpenAIAPIKey string `yaml:"-" env:"OPENAI_API_KEY"`
}

func defaultConfig() config {
	cfg := config{
		Addr:     "127.0.0.1:8420",
		LogLevel: "info",
	}
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.Path = defaultStatePath()
	cfg.Generate.Provider = "gemini"
	return cfg
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "promptpalette.db"
	}
	return filepath.Join(dir, "promptpalette", "state.db")
}

// loadConfig layers defaults, the YAML file at path (optional), a .env file
// in the working directory (optional) and the process environment.
func loadConfig(path string, logger *slog.Logger) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("no config file, using defaults", "path", path)
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// apiKey returns the single credential for the configured provider.
func (c config) apiKey() string {
	if strings.EqualFold(c.Generate.Provider, "openai") {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

func (c config) logLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

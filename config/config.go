// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"forestcover/ml"
)

type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Model      ModelConfig      `yaml:"model"`
	Validation ValidationConfig `yaml:"validation"`
	Cache      CacheConfig      `yaml:"cache"`
	History    HistoryConfig    `yaml:"history"`
	Log        LogConfig        `yaml:"log"`
	UI         UIConfig         `yaml:"ui"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

type ModelConfig struct {
	ClassifierPath string `yaml:"classifier_path"`
	ScalerPath     string `yaml:"scaler_path"`
}

type ValidationConfig struct {
	// Mode is "reject" or "clamp"; selectors are rejected in both.
	Mode string `yaml:"mode"`
}

type CacheConfig struct {
	Size int `yaml:"size"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type UIConfig struct {
	Title    string `yaml:"title"`
	Language string `yaml:"language"`
}

// Default returns the configuration used for any key the file omits.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:           8501,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   64 << 10,
		},
		Model: ModelConfig{
			ClassifierPath: "models/forest_cover_model.json",
			ScalerPath:     "models/forest_cover_scaler.json",
		},
		Validation: ValidationConfig{Mode: "reject"},
		Cache:      CacheConfig{Size: 1024},
		History: HistoryConfig{
			Driver: "sqlite3",
			DSN:    "data/predictions.db",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		UI: UIConfig{
			Title:    "Forest Cover Type Prediction",
			Language: "en",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		problems = append(problems, fmt.Sprintf("http.port %d out of range", c.HTTP.Port))
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		problems = append(problems, "http.max_body_bytes must be positive")
	}
	if c.Model.ClassifierPath == "" || c.Model.ScalerPath == "" {
		problems = append(problems, "model.classifier_path and model.scaler_path are required")
	}
	if _, err := ml.ParseValidationMode(c.Validation.Mode); err != nil {
		problems = append(problems, fmt.Sprintf("validation.mode %q must be reject or clamp", c.Validation.Mode))
	}
	if c.Cache.Size < 0 {
		problems = append(problems, "cache.size must not be negative")
	}
	if c.History.Enabled {
		switch c.History.Driver {
		case "sqlite3", "postgres":
		default:
			problems = append(problems, fmt.Sprintf("history.driver %q must be sqlite3 or postgres", c.History.Driver))
		}
		if c.History.DSN == "" {
			problems = append(problems, "history.dsn is required when history is enabled")
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be json or console", c.Log.Format))
	}
	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

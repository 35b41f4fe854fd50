// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jackrehmann/fade-scalps/internal/strategy"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Feed describes where market data comes from: a live quote stream and a
// historical tick endpoint for replays.
type Feed struct {
	Provider           string   `yaml:"provider"`
	Symbols            []string `yaml:"symbols"`
	WSURL              string   `yaml:"ws_url"`
	HistoryBaseURL     string   `yaml:"history_base_url"`
	MaxHistoryRequests int      `yaml:"max_history_requests"`
}

// Risk encodes session-level guard-rails applied outside the engine.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
	MaxDailyLoss        float64 `yaml:"max_daily_loss"`
}

// Paper captures dry-run trading settings.
type Paper struct {
	StartingCash float64 `yaml:"starting_cash"`
	TradesDir    string  `yaml:"trades_dir"`
}

// Store configures the SQLite run database.
type Store struct {
	Path string `yaml:"path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App             `yaml:"app"`
	Strategy strategy.Config `yaml:"strategy"`
	Feed     Feed            `yaml:"feed"`
	Risk     Risk            `yaml:"risk"`
	Paper    Paper           `yaml:"paper"`
	Store    Store           `yaml:"store"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

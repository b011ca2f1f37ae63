package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type EngineConfig struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_seconds"`
}

type DatabaseConfig struct {
	DSN           string `yaml:"dsn"`
	MigrationsDir string `yaml:"migrations_dir"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type WebUIConfig struct {
	Listen string `yaml:"listen"`
}

type Config struct {
	ScanName string `yaml:"scan_name"`

	// bbolt по умолчанию; если задан database.dsn — Postgres
	DBPath   string         `yaml:"db_path"`
	Database DatabaseConfig `yaml:"database"`

	Engine   EngineConfig   `yaml:"engine"`
	WebUI    WebUIConfig    `yaml:"webui"`
	Telegram TelegramConfig `yaml:"telegram"`

	HistoryLimit       int `yaml:"history_limit"`
	LogDedupWindow     int `yaml:"log_dedup_window"`
	NotificationTTLSec int `yaml:"notification_ttl_seconds"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults вынесен отдельно, чтобы можно было собрать конфиг без файла.
func (c *Config) ApplyDefaults() {
	if c.ScanName == "" {
		c.ScanName = "LLLM Scanner"
	}
	if c.DBPath == "" {
		c.DBPath = "data/scanner.db"
	}
	if c.Database.MigrationsDir == "" {
		c.Database.MigrationsDir = "./migrations"
	}
	if c.Engine.BaseURL == "" {
		c.Engine.BaseURL = "http://127.0.0.1:8765"
	}
	if c.Engine.TimeoutSec <= 0 {
		c.Engine.TimeoutSec = 10
	}
	if c.WebUI.Listen == "" {
		c.WebUI.Listen = "127.0.0.1:8088"
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 20
	}
	if c.LogDedupWindow <= 0 {
		c.LogDedupWindow = 5
	}
	if c.NotificationTTLSec <= 0 {
		c.NotificationTTLSec = 3
	}
}

func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSec) * time.Second
}

func (c *Config) NotificationTTL() time.Duration {
	return time.Duration(c.NotificationTTLSec) * time.Second
}

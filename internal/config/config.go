package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server process configuration. Values come from an optional
// YAML file (CHESSLINE_CONFIG, or ./chessline.yml when present) with
// environment variables overriding file values.
type Config struct {
	GameAddr   string `yaml:"game_addr"`
	ChatAddr   string `yaml:"chat_addr"`
	WSAddr     string `yaml:"ws_addr"`     // empty disables the websocket gateway
	StatusAddr string `yaml:"status_addr"` // empty disables the status endpoint

	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`

	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
}

const defaultFile = "chessline.yml"

func Load() (*Config, error) {
	cfg := &Config{
		GameAddr:         ":5555",
		ChatAddr:         ":5556",
		WSAddr:           ":5557",
		StatusAddr:       ":8088",
		HandshakeTimeout: 10 * time.Second,
	}

	path := strings.TrimSpace(os.Getenv("CHESSLINE_CONFIG"))
	if path == "" {
		if _, err := os.Stat(defaultFile); err == nil {
			path = defaultFile
		}
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	// "off" disables an optional listener; env vars cannot carry empty.
	if strings.EqualFold(strings.TrimSpace(cfg.WSAddr), "off") {
		cfg.WSAddr = ""
	}
	if strings.EqualFold(strings.TrimSpace(cfg.StatusAddr), "off") {
		cfg.StatusAddr = ""
	}

	if strings.TrimSpace(cfg.GameAddr) == "" {
		return nil, fmt.Errorf("game_addr is required")
	}
	if strings.TrimSpace(cfg.ChatAddr) == "" {
		return nil, fmt.Errorf("chat_addr is required")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.GameAddr, "GAME_ADDR")
	setString(&cfg.ChatAddr, "CHAT_ADDR")
	setString(&cfg.WSAddr, "WS_ADDR")
	setString(&cfg.StatusAddr, "STATUS_ADDR")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setDuration(&cfg.HandshakeTimeout, "HANDSHAKE_TIMEOUT")
	setDuration(&cfg.IdleTimeout, "IDLE_TIMEOUT")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

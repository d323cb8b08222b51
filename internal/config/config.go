// Package config loads service configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SKJERA_"

type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Slack        SlackConfig        `koanf:"slack"`
	Assistant    AssistantConfig    `koanf:"assistant"`
	Conversation ConversationConfig `koanf:"conversation"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "pgx".
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

type SlackConfig struct {
	BotToken      string `koanf:"bot_token"`
	SigningSecret string `koanf:"signing_secret"`
	// TeamID is the workspace the bot is installed in, used to resolve
	// linked employee accounts.
	TeamID string `koanf:"team_id"`
}

type AssistantConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

type ConversationConfig struct {
	// Timeout is a duration string ("10s", "1m30s") bounding how long a
	// conversation waits for a button click.
	Timeout string `koanf:"timeout"`
}

// TimeoutDuration parses the configured conversation timeout.
func (c ConversationConfig) TimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(c.Timeout)
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), then applies SKJERA_* environment overrides. A double
// underscore separates the section from the key: SKJERA_SLACK__BOT_TOKEN sets
// slack.bot_token.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("database.driver") {
		k.Set("database.driver", "sqlite")
	}
	if !k.Exists("database.dsn") {
		k.Set("database.dsn", "skjera.db")
	}
	if !k.Exists("assistant.model") {
		k.Set("assistant.model", "gpt-4o-mini")
	}
	if !k.Exists("conversation.timeout") {
		k.Set("conversation.timeout", "10s")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if _, err := cfg.Conversation.TimeoutDuration(); err != nil {
		return nil, fmt.Errorf("invalid conversation.timeout: %w", err)
	}

	return &cfg, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %v, want sqlite", cfg.Database.Driver)
	}
	if cfg.Assistant.Model != "gpt-4o-mini" {
		t.Errorf("model = %v, want gpt-4o-mini", cfg.Assistant.Model)
	}

	timeout, err := cfg.Conversation.TimeoutDuration()
	if err != nil {
		t.Fatalf("TimeoutDuration() error = %v", err)
	}
	if timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", timeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SKJERA_SERVER__PORT", "9000")
	t.Setenv("SKJERA_SLACK__BOT_TOKEN", "xoxb-test")
	t.Setenv("SKJERA_CONVERSATION__TIMEOUT", "45s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %v, want 9000", cfg.Server.Port)
	}
	if cfg.Slack.BotToken != "xoxb-test" {
		t.Errorf("bot token = %v, want xoxb-test", cfg.Slack.BotToken)
	}
	timeout, err := cfg.Conversation.TimeoutDuration()
	if err != nil {
		t.Fatalf("TimeoutDuration() error = %v", err)
	}
	if timeout != 45*time.Second {
		t.Errorf("timeout = %v, want 45s", timeout)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skjera.yaml")
	data := []byte(`
server:
  port: 7070
slack:
  team_id: T03S4JU33
database:
  driver: pgx
  dsn: postgres://localhost/skjera
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port = %v, want 7070", cfg.Server.Port)
	}
	if cfg.Slack.TeamID != "T03S4JU33" {
		t.Errorf("team id = %v", cfg.Slack.TeamID)
	}
	if cfg.Database.Driver != "pgx" {
		t.Errorf("driver = %v, want pgx", cfg.Database.Driver)
	}
}

func TestLoadFileEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skjera.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SKJERA_SERVER__PORT", "9000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %v, want env override 9000", cfg.Server.Port)
	}
}

func TestLoadMissingFileIgnored(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoadInvalidTimeout(t *testing.T) {
	t.Setenv("SKJERA_CONVERSATION__TIMEOUT", "soon")

	if _, err := Load(""); err == nil {
		t.Fatal("Load() accepted an unparseable timeout")
	}
}

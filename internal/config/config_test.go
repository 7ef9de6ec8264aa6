package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 3747 {
		t.Errorf("Port: got %d, want 3747", cfg.Port)
	}
	if cfg.RefreshSeconds != 30 {
		t.Errorf("RefreshSeconds: got %d, want 30", cfg.RefreshSeconds)
	}
	if cfg.Runtime.Kind != "stub" {
		t.Errorf("Runtime.Kind: got %q, want stub", cfg.Runtime.Kind)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	want := Config{
		Port:           4040,
		RefreshSeconds: 10,
		MessageBound:   500,
		EnableOtel:     true,
		Runtime:        RuntimeConfig{Kind: "subprocess", Command: "worker", Args: []string{"--fast"}},
		Notifications:  NotificationsConfig{SlackWebhook: "https://hooks.slack.test/x", SlackChannel: "#ops"},
	}
	if err := Save(home, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(home)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Port != want.Port || got.RefreshSeconds != want.RefreshSeconds || got.MessageBound != want.MessageBound {
		t.Errorf("numeric fields: %+v", got)
	}
	if !got.EnableOtel {
		t.Error("EnableOtel lost")
	}
	if got.Runtime.Kind != "subprocess" || got.Runtime.Command != "worker" || len(got.Runtime.Args) != 1 {
		t.Errorf("runtime: %+v", got.Runtime)
	}
	if got.Notifications.SlackWebhook != want.Notifications.SlackWebhook || got.Notifications.SlackChannel != "#ops" {
		t.Errorf("notifications: %+v", got.Notifications)
	}
}

func TestLoadFillsZeroFields(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	raw := []byte("message_bound: 200\n")
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(home)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MessageBound != 200 {
		t.Errorf("MessageBound: got %d, want 200", cfg.MessageBound)
	}
	if cfg.Port != 3747 || cfg.RefreshSeconds != 30 || cfg.Runtime.Kind != "stub" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("port: [not a number"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(home); err == nil {
		t.Error("Load malformed yaml: no error")
	}
}

package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RuntimeConfig selects and configures the agent runtime implementation.
type RuntimeConfig struct {
	// Kind is "stub" (default) or "subprocess".
	Kind    string   `yaml:"kind"`
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
}

// NotificationsConfig configures outbound mission notifications. All fields
// are optional; unset integrations are not registered.
type NotificationsConfig struct {
	SlackWebhook string `yaml:"slack_webhook,omitempty"`
	SlackChannel string `yaml:"slack_channel,omitempty"`
	WebhookURL   string `yaml:"webhook_url,omitempty"`
}

// Config is the daemon configuration loaded from <home>/config.yaml.
type Config struct {
	Port           int                 `yaml:"port"`
	RefreshSeconds int                 `yaml:"refresh_seconds"`
	MessageBound   int                 `yaml:"message_bound"`
	EnableOtel     bool                `yaml:"enable_otel"`
	Runtime        RuntimeConfig       `yaml:"runtime"`
	Notifications  NotificationsConfig `yaml:"notifications,omitempty"`
}

// DefaultConfig returns the configuration used when no config.yaml exists.
func DefaultConfig() Config {
	return Config{
		Port:           3747,
		RefreshSeconds: 30,
		Runtime:        RuntimeConfig{Kind: "stub"},
	}
}

// ConfigPath returns the path of the daemon config file under home.
func ConfigPath(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Load reads <home>/config.yaml, filling unset fields with defaults. A missing
// file returns the defaults and no error.
func Load(home string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(ConfigPath(home))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Port == 0 {
		cfg.Port = 3747
	}
	if cfg.RefreshSeconds == 0 {
		cfg.RefreshSeconds = 30
	}
	if cfg.Runtime.Kind == "" {
		cfg.Runtime.Kind = "stub"
	}
	return cfg, nil
}

// Save writes the config to <home>/config.yaml.
func Save(home string, cfg Config) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(home), data, 0o644)
}

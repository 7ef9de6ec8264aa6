// Package capabilities holds outbound integrations that mission control can
// notify about lifecycle events (task completed, agent spawned). Integrations
// are optional; an empty registry is valid and notifies nobody.
package capabilities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// Capability is an integration that can receive mission notifications.
type Capability interface {
	Name() string
	// Notify sends a message to the integration's default target.
	Notify(ctx context.Context, message string) error
}

// Registry holds loaded capabilities by name.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]Capability
}

func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]Capability)}
}

func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[c.Name()] = c
}

func (r *Registry) Get(name string) Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.caps[name]
}

// Notify sends a message through one named capability.
func (r *Registry) Notify(ctx context.Context, name, message string) error {
	c := r.Get(name)
	if c == nil {
		return fmt.Errorf("capability %q not found", name)
	}
	return c.Notify(ctx, message)
}

// NotifyAll sends the message through every registered capability. Failures
// are logged per capability and do not block the others.
func (r *Registry) NotifyAll(ctx context.Context, message string) {
	r.mu.RLock()
	caps := make([]Capability, 0, len(r.caps))
	for _, c := range r.caps {
		caps = append(caps, c)
	}
	r.mu.RUnlock()
	for _, c := range caps {
		if err := c.Notify(ctx, message); err != nil {
			slog.Warn("notification failed", "capability", c.Name(), "err", err)
		}
	}
}

// SlackWebhook sends messages to a Slack channel via incoming webhook URL.
type SlackWebhook struct {
	WebhookURL string
	Channel    string // optional override
	Username   string // optional
}

func (s SlackWebhook) Name() string { return "slack" }

func (s SlackWebhook) Notify(ctx context.Context, message string) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL not set")
	}
	payload := map[string]any{"text": message}
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}
	if s.Username != "" {
		payload["username"] = s.Username
	}
	return postJSON(ctx, s.WebhookURL, payload)
}

// Webhook POSTs {"text": message} to an arbitrary URL.
type Webhook struct {
	URL string
}

func (w Webhook) Name() string { return "webhook" }

func (w Webhook) Notify(ctx context.Context, message string) error {
	if w.URL == "" {
		return fmt.Errorf("webhook URL not set")
	}
	return postJSON(ctx, w.URL, map[string]any{"text": message})
}

func postJSON(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

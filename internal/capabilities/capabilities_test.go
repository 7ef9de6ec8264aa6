package capabilities

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type fakeCapability struct {
	name string
	mu   sync.Mutex
	got  []string
	err  error
}

func (f *fakeCapability) Name() string { return f.name }

func (f *fakeCapability) Notify(_ context.Context, message string) error {
	f.mu.Lock()
	f.got = append(f.got, message)
	f.mu.Unlock()
	return f.err
}

func TestRegistryNotify(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	cap := &fakeCapability{name: "fake"}
	r.Register(cap)

	if err := r.Notify(context.Background(), "fake", "hello"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(cap.got) != 1 || cap.got[0] != "hello" {
		t.Errorf("messages: %v", cap.got)
	}
	if err := r.Notify(context.Background(), "missing", "hello"); err == nil {
		t.Error("Notify unknown capability: no error")
	}
}

func TestRegistryNotifyAllContinuesPastFailure(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	bad := &fakeCapability{name: "bad", err: io.ErrUnexpectedEOF}
	good := &fakeCapability{name: "good"}
	r.Register(bad)
	r.Register(good)

	r.NotifyAll(context.Background(), "done")

	if len(good.got) != 1 {
		t.Errorf("good capability not notified: %v", good.got)
	}
	if len(bad.got) != 1 {
		t.Errorf("bad capability not attempted: %v", bad.got)
	}
}

func TestSlackWebhookPayload(t *testing.T) {
	t.Parallel()
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
	}))
	defer srv.Close()

	s := SlackWebhook{WebhookURL: srv.URL, Channel: "#ops", Username: "missionctl"}
	if err := s.Notify(context.Background(), "agent dev-1 finished task t1"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if payload["text"] != "agent dev-1 finished task t1" || payload["channel"] != "#ops" || payload["username"] != "missionctl" {
		t.Errorf("payload: %v", payload)
	}
}

func TestWebhookErrorStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	w := Webhook{URL: srv.URL}
	if err := w.Notify(context.Background(), "hi"); err == nil {
		t.Error("Notify on 502: no error")
	}
}

func TestNotifyUnsetURL(t *testing.T) {
	t.Parallel()
	if err := (SlackWebhook{}).Notify(context.Background(), "x"); err == nil {
		t.Error("SlackWebhook without URL: no error")
	}
	if err := (Webhook{}).Notify(context.Background(), "x"); err == nil {
		t.Error("Webhook without URL: no error")
	}
}

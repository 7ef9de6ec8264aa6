package mission

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/missionkit/missionctl/pkg/models"
)

func TestHub_PublishReachesSubscribers(t *testing.T) {
	t.Parallel()
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	h.PublishJSON(map[string]any{"type": EventTaskChanged, "task_id": "t1"})

	for _, ch := range []chan []byte{a, b} {
		select {
		case raw := <-ch:
			var got map[string]any
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Fatalf("payload not JSON: %v", err)
			}
			if got["type"] != EventTaskChanged {
				t.Errorf("type: got %v", got["type"])
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	t.Parallel()
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	// Fill the buffer and keep publishing; PublishJSON must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < models.DefaultEventChannelBuffer+10; i++ {
			h.PublishJSON(map[string]any{"n": i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PublishJSON blocked on a slow subscriber")
	}
	if got := len(ch); got != models.DefaultEventChannelBuffer {
		t.Errorf("buffered events: got %d, want %d", got, models.DefaultEventChannelBuffer)
	}
}

func TestHub_UnsubscribeClosesOnce(t *testing.T) {
	t.Parallel()
	h := NewHub()
	ch := h.Subscribe()
	h.Unsubscribe(ch)
	// A second Unsubscribe must not panic on the closed channel.
	h.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel not closed after Unsubscribe")
	}
}

package mission

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/missionkit/missionctl/internal/otel"
	"github.com/missionkit/missionctl/pkg/models"
)

// Event types the controller publishes after mutations. Collaborators (the
// dashboard SSE bridge, CLIs) subscribe to the hub instead of polling.
const (
	EventTaskChanged       = "task_changed"
	EventAgentChanged      = "agent_changed"
	EventMessageSent       = "message_sent"
	EventStatisticsUpdated = "statistics_updated"
	EventAgentActivity     = "agent_activity"
)

// Hub fans controller events out to subscribers as JSON payloads. Slow
// subscribers drop events rather than backpressuring the controller.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan []byte]struct{})}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, models.DefaultEventChannelBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	otel.AddSubscriber()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
		otel.RemoveSubscriber()
	}
	h.mu.Unlock()
}

func (h *Hub) PublishJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	otel.RecordEvent(context.Background())
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- b:
		default:
			// Drop if subscriber is too slow; prevents global backpressure.
		}
	}
}

package mission

import (
	"context"
	"time"

	"github.com/missionkit/missionctl/internal/store"
	"github.com/missionkit/missionctl/pkg/models"
)

// MessageLog is the append-only bounded history of inter-agent and operator
// messages, held most-recent-first. Entries are never edited or removed
// individually; the only eviction is the global recency bound applied on write.
type MessageLog struct {
	store store.Store
	clock func() time.Time
	bound int
	msgs  []models.AgentMessage // most recent first
}

// NewMessageLog returns an empty log backed by st. bound <= 0 uses the default.
func NewMessageLog(st store.Store, bound int) *MessageLog {
	if bound <= 0 {
		bound = models.DefaultMessageLogBound
	}
	return &MessageLog{store: st, clock: time.Now, bound: bound}
}

// Load replaces the in-memory log with the persisted collection.
func (l *MessageLog) Load(ctx context.Context) error {
	msgs, err := l.store.LoadMessages(ctx, l.bound)
	if err != nil {
		return loadFailed("load messages", err)
	}
	l.msgs = msgs
	return nil
}

// Send appends a message, trims the log to its bound, and persists it. A failed
// save drops the new entry so memory and disk stay aligned.
func (l *MessageLog) Send(ctx context.Context, from, to, text string, typ models.MessageType) (models.AgentMessage, error) {
	if typ == "" {
		typ = models.MessageCommunication
	}
	m := models.AgentMessage{
		MessageID: models.NewID(),
		FromAgent: from,
		ToAgent:   to,
		Message:   text,
		Type:      typ,
		CreatedAt: l.clock().UTC(),
	}
	prev := l.msgs
	next := make([]models.AgentMessage, 0, len(prev)+1)
	next = append(next, m)
	next = append(next, prev...)
	if len(next) > l.bound {
		next = next[:l.bound]
	}
	l.msgs = next
	if err := l.store.SaveMessages(ctx, next); err != nil {
		l.msgs = prev
		return models.AgentMessage{}, saveFailed("send message", err)
	}
	return m, nil
}

// QueryByAgent returns the most recent limit messages sent by or addressed to
// the agent, most recent first. limit <= 0 means all retained.
func (l *MessageLog) QueryByAgent(agent string, limit int) []models.AgentMessage {
	var out []models.AgentMessage
	for _, m := range l.msgs {
		if m.FromAgent != agent && m.ToAgent != agent {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// QueryRecent returns the most recent limit messages overall, most recent
// first. limit <= 0 means all retained.
func (l *MessageLog) QueryRecent(limit int) []models.AgentMessage {
	n := len(l.msgs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.AgentMessage, n)
	copy(out, l.msgs[:n])
	return out
}

// Len reports how many messages the log currently retains.
func (l *MessageLog) Len() int { return len(l.msgs) }

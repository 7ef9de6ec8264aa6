package store

import (
	"context"
	"sync"

	"github.com/missionkit/missionctl/pkg/models"
)

// MemStore is an in-memory Store for tests and the "memory" driver. It
// deep-copies on load and save so callers never alias stored state, and it can
// inject failures to exercise error paths.
type MemStore struct {
	mu       sync.Mutex
	tasks    []models.Task
	agents   []models.Agent
	messages []models.AgentMessage

	// FailSaves / FailLoads, when set, make the corresponding calls return the
	// error until cleared.
	FailSaves error
	FailLoads error
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) LoadTasks(ctx context.Context) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLoads != nil {
		return nil, m.FailLoads
	}
	out := make([]models.Task, len(m.tasks))
	for i, t := range m.tasks {
		out[i] = t.Clone()
	}
	return out, nil
}

func (m *MemStore) SaveTasks(ctx context.Context, tasks []models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves != nil {
		return m.FailSaves
	}
	m.tasks = make([]models.Task, len(tasks))
	for i, t := range tasks {
		m.tasks[i] = t.Clone()
	}
	return nil
}

func (m *MemStore) LoadAgents(ctx context.Context) ([]models.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLoads != nil {
		return nil, m.FailLoads
	}
	out := make([]models.Agent, len(m.agents))
	for i, a := range m.agents {
		out[i] = a.Clone()
	}
	return out, nil
}

func (m *MemStore) SaveAgents(ctx context.Context, agents []models.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves != nil {
		return m.FailSaves
	}
	m.agents = make([]models.Agent, len(agents))
	for i, a := range agents {
		m.agents[i] = a.Clone()
	}
	return nil
}

func (m *MemStore) LoadMessages(ctx context.Context, limit int) ([]models.AgentMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLoads != nil {
		return nil, m.FailLoads
	}
	n := len(m.messages)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.AgentMessage, n)
	copy(out, m.messages[:n])
	return out, nil
}

func (m *MemStore) SaveMessages(ctx context.Context, msgs []models.AgentMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves != nil {
		return m.FailSaves
	}
	m.messages = make([]models.AgentMessage, len(msgs))
	copy(m.messages, msgs)
	return nil
}

func (m *MemStore) Close() error { return nil }

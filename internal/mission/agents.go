package mission

import (
	"context"
	"time"

	"github.com/missionkit/missionctl/internal/store"
	"github.com/missionkit/missionctl/pkg/models"
)

// AgentRegistry is the in-memory authoritative view of all agents. Like the
// task registry it applies mutations in memory and reverts them if the
// persistence write fails; the controller serializes all calls.
type AgentRegistry struct {
	store  store.Store
	clock  func() time.Time
	agents map[string]models.Agent
	order  []string
}

// NewAgentRegistry returns an empty registry backed by st.
func NewAgentRegistry(st store.Store) *AgentRegistry {
	return &AgentRegistry{
		store:  st,
		clock:  time.Now,
		agents: make(map[string]models.Agent),
	}
}

// Load replaces the in-memory view with the persisted collection.
func (r *AgentRegistry) Load(ctx context.Context) error {
	agents, err := r.store.LoadAgents(ctx)
	if err != nil {
		return loadFailed("load agents", err)
	}
	r.agents = make(map[string]models.Agent, len(agents))
	r.order = r.order[:0]
	for _, a := range agents {
		r.agents[a.AgentID] = a
		r.order = append(r.order, a.AgentID)
	}
	return nil
}

// Create registers a new idle agent and persists it.
func (r *AgentRegistry) Create(ctx context.Context, name, role, model string, capabilities []string) (models.Agent, error) {
	now := r.clock().UTC()
	a := models.Agent{
		AgentID:      models.NewID(),
		Name:         name,
		Role:         role,
		Model:        model,
		Status:       models.AgentIdle,
		Capabilities: append([]string(nil), capabilities...),
		CreatedAt:    now,
		LastActivity: now,
	}
	r.agents[a.AgentID] = a
	r.order = append(r.order, a.AgentID)
	if err := r.persist(ctx); err != nil {
		delete(r.agents, a.AgentID)
		r.order = r.order[:len(r.order)-1]
		return models.Agent{}, saveFailed("create agent", err)
	}
	return a.Clone(), nil
}

// AssignTask marks the agent working on taskID. The caller guarantees no other
// agent already holds this task (single-assignment invariant).
func (r *AgentRegistry) AssignTask(ctx context.Context, id, taskID string) (models.Agent, error) {
	return r.mutate(ctx, id, "assign agent task", func(a *models.Agent) {
		a.CurrentTask = taskID
		a.Status = models.AgentWorking
	})
}

// CompleteTask clears the agent's current task, bumps the completion counter,
// and returns it to idle.
func (r *AgentRegistry) CompleteTask(ctx context.Context, id string) (models.Agent, error) {
	return r.mutate(ctx, id, "complete agent task", func(a *models.Agent) {
		a.CurrentTask = ""
		a.TotalTasksCompleted++
		a.Status = models.AgentIdle
	})
}

// ClearTask clears the current task without counting a completion (used when
// stopping an agent or cascading a task delete).
func (r *AgentRegistry) ClearTask(ctx context.Context, id string) (models.Agent, error) {
	return r.mutate(ctx, id, "clear agent task", func(a *models.Agent) {
		a.CurrentTask = ""
		if a.Status == models.AgentWorking {
			a.Status = models.AgentIdle
		}
	})
}

// UpdateStatus sets the agent status directly (offline is practically terminal).
func (r *AgentRegistry) UpdateStatus(ctx context.Context, id string, status models.AgentStatus) (models.Agent, error) {
	return r.mutate(ctx, id, "update agent status", func(a *models.Agent) {
		a.Status = status
	})
}

// Delete removes an agent; deleting an unknown id is a no-op.
func (r *AgentRegistry) Delete(ctx context.Context, id string) error {
	prev, ok := r.agents[id]
	if !ok {
		return nil
	}
	idx := -1
	for i, aid := range r.order {
		if aid == id {
			idx = i
			break
		}
	}
	delete(r.agents, id)
	if idx >= 0 {
		r.order = append(r.order[:idx], r.order[idx+1:]...)
	}
	if err := r.persist(ctx); err != nil {
		r.agents[id] = prev
		if idx >= 0 {
			r.order = append(r.order[:idx], append([]string{id}, r.order[idx:]...)...)
		}
		return deleteFailed("delete agent", err)
	}
	return nil
}

func (r *AgentRegistry) mutate(ctx context.Context, id, op string, fn func(*models.Agent)) (models.Agent, error) {
	prev, ok := r.agents[id]
	if !ok {
		return models.Agent{}, notFound("agent", id)
	}
	next := prev.Clone()
	fn(&next)
	next.LastActivity = r.clock().UTC()
	r.agents[id] = next
	if err := r.persist(ctx); err != nil {
		r.agents[id] = prev
		return models.Agent{}, saveFailed(op, err)
	}
	return next.Clone(), nil
}

// Get returns a snapshot of one agent.
func (r *AgentRegistry) Get(id string) (models.Agent, bool) {
	a, ok := r.agents[id]
	if !ok {
		return models.Agent{}, false
	}
	return a.Clone(), true
}

// ByName returns the first agent with the given name.
func (r *AgentRegistry) ByName(name string) (models.Agent, bool) {
	for _, id := range r.order {
		if a := r.agents[id]; a.Name == name {
			return a.Clone(), true
		}
	}
	return models.Agent{}, false
}

// HolderOf returns the agent currently holding taskID, if any.
func (r *AgentRegistry) HolderOf(taskID string) (models.Agent, bool) {
	for _, id := range r.order {
		if a := r.agents[id]; a.CurrentTask == taskID {
			return a.Clone(), true
		}
	}
	return models.Agent{}, false
}

// All returns a snapshot of every agent in creation order.
func (r *AgentRegistry) All() []models.Agent {
	out := make([]models.Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id].Clone())
	}
	return out
}

// Available returns agents with status idle.
func (r *AgentRegistry) Available() []models.Agent { return r.byStatus(models.AgentIdle) }

// Working returns agents with status working.
func (r *AgentRegistry) Working() []models.Agent { return r.byStatus(models.AgentWorking) }

func (r *AgentRegistry) byStatus(status models.AgentStatus) []models.Agent {
	var out []models.Agent
	for _, id := range r.order {
		if a := r.agents[id]; a.Status == status {
			out = append(out, a.Clone())
		}
	}
	return out
}

func (r *AgentRegistry) persist(ctx context.Context) error {
	out := make([]models.Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return r.store.SaveAgents(ctx, out)
}

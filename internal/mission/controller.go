// Package mission implements the orchestration core: the task and agent
// registries, the message log, the planning workflow, and the controller
// façade that coordinates them with the persistent store and agent runtime.
package mission

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/missionkit/missionctl/internal/capabilities"
	"github.com/missionkit/missionctl/internal/memory"
	"github.com/missionkit/missionctl/internal/otel"
	"github.com/missionkit/missionctl/internal/runtime"
	"github.com/missionkit/missionctl/internal/store"
	"github.com/missionkit/missionctl/pkg/models"
)

// DefaultRefreshInterval is how often the controller reloads agent state from
// the store to pick up external changes.
const DefaultRefreshInterval = 30 * time.Second

// Controller is the orchestration façade: the only component other subsystems
// talk to. Every mutation runs serialized under one mutex (single logical
// owner), persists through the store, recomputes statistics, and publishes a
// typed event on the hub. Multi-step operations such as SpawnAgentForTask hold
// the mutex across their runtime call so the task+agent pair cannot be touched
// mid-flight.
type Controller struct {
	mu        sync.Mutex
	store     store.Store
	rt        runtime.Runtime
	tasks     *TaskRegistry
	agents    *AgentRegistry
	messages  *MessageLog
	planning  map[string]*Planning // by task id
	sessions  map[string]string    // agent id -> runtime session handle
	stats     models.Statistics
	home      string                 // optional; enables per-agent config and journals
	questions []string               // nil means DefaultPlanningQuestions
	notifier  *capabilities.Registry // optional; nil notifies nobody

	Hub    *Hub
	events chan runtime.Event
}

// Options tunes controller construction.
type Options struct {
	// Home enables per-agent config defaults and journals when set.
	Home string
	// MessageBound overrides the retained message count (default 1000).
	MessageBound int
	// Questions overrides the planning question set (default fixed five).
	Questions []string
	// Notifier receives task completion notices (Slack, webhooks). Optional.
	Notifier *capabilities.Registry
}

// New builds a controller over its collaborators. Call Load before use.
func New(st store.Store, rt runtime.Runtime, opts Options) *Controller {
	c := &Controller{
		store:    st,
		rt:       rt,
		tasks:    NewTaskRegistry(st),
		agents:   NewAgentRegistry(st),
		messages: NewMessageLog(st, opts.MessageBound),
		planning: make(map[string]*Planning),
		sessions: make(map[string]string),
		home:     opts.Home,
		Hub:      NewHub(),
		events:   make(chan runtime.Event, 1024),
	}
	c.questions = opts.Questions
	c.notifier = opts.Notifier
	go c.dispatchEvents()
	return c
}

// Load populates the registries from the store and restarts planning for any
// task still in the planning stage (planning never persists partial state, so
// a restart begins the dialogue fresh).
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.tasks.Load(ctx); err != nil {
		return err
	}
	if err := c.agents.Load(ctx); err != nil {
		return err
	}
	if err := c.messages.Load(ctx); err != nil {
		return err
	}
	c.planning = make(map[string]*Planning)
	for _, t := range c.tasks.All() {
		if t.Status == models.StatusPlanning {
			c.planning[t.TaskID] = StartPlanning(t.TaskID, c.questions)
		}
	}
	c.recompute()
	return nil
}

// --- Tasks ---

// CreateTask allocates a task in planning status and starts its clarification
// dialogue.
func (c *Controller) CreateTask(ctx context.Context, title, description string, priority models.Priority) (models.Task, error) {
	if !priority.Valid() {
		return models.Task{}, fmt.Errorf("invalid priority %q", priority)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.tasks.Create(ctx, title, description, priority)
	if err != nil {
		return models.Task{}, err
	}
	c.planning[t.TaskID] = StartPlanning(t.TaskID, c.questions)
	otel.RecordTaskOp(ctx, "create", string(t.Status))
	c.afterTaskMutation(t)
	return t, nil
}

// UpdateTask replaces a task by id (NotFound for an unknown id).
func (c *Controller) UpdateTask(ctx context.Context, t models.Task) (models.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out, err := c.tasks.Update(ctx, t)
	if err != nil {
		return models.Task{}, err
	}
	otel.RecordTaskOp(ctx, "update", string(out.Status))
	c.afterTaskMutation(out)
	return out, nil
}

// MoveTask force-sets a task status; any status is reachable from any other.
func (c *Controller) MoveTask(ctx context.Context, taskID string, status models.TaskStatus) (models.Task, error) {
	if !status.Valid() {
		return models.Task{}, fmt.Errorf("invalid task status %q", status)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.tasks.MoveTo(ctx, taskID, status)
	if err != nil {
		return models.Task{}, err
	}
	otel.RecordTaskOp(ctx, "move", string(status))
	c.afterTaskMutation(t)
	return t, nil
}

// DeleteTask removes a task. If an agent currently holds it, the assignment is
// cascade-cleared (and its session stopped) so no dangling reference survives.
func (c *Controller) DeleteTask(ctx context.Context, taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if holder, ok := c.agents.HolderOf(taskID); ok {
		c.stopSessionLocked(ctx, holder.AgentID)
		if _, err := c.agents.ClearTask(ctx, holder.AgentID); err != nil {
			return err
		}
		c.publishAgent(holder.AgentID)
	}
	if err := c.tasks.Delete(ctx, taskID); err != nil {
		return err
	}
	delete(c.planning, taskID)
	otel.RecordTaskOp(ctx, "delete", "")
	c.recompute()
	c.Hub.PublishJSON(map[string]any{"type": EventTaskChanged, "task_id": taskID, "deleted": true})
	c.publishStats()
	return nil
}

// AssignTaskToAgent manually binds an inbox/any task to an existing agent,
// keeping Task.AssignedAgent and Agent.CurrentTask mutually consistent.
func (c *Controller) AssignTaskToAgent(ctx context.Context, taskID, agentName string) (models.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	agent, ok := c.agents.ByName(agentName)
	if !ok {
		return models.Task{}, notFound("agent", agentName)
	}
	if holder, ok := c.agents.HolderOf(taskID); ok && holder.AgentID != agent.AgentID {
		return models.Task{}, fmt.Errorf("task %s already held by agent %s", taskID, holder.Name)
	}
	t, err := c.tasks.Assign(ctx, taskID, agentName)
	if err != nil {
		return models.Task{}, err
	}
	if _, err := c.agents.AssignTask(ctx, agent.AgentID, taskID); err != nil {
		// Revert the task-side write so the pair stays consistent.
		if _, rerr := c.tasks.Assign(ctx, taskID, ""); rerr != nil {
			slog.Error("assign revert failed", "task_id", taskID, "err", rerr)
		}
		return models.Task{}, err
	}
	otel.RecordTaskOp(ctx, "assign", string(t.Status))
	c.publishAgent(agent.AgentID)
	c.afterTaskMutation(t)
	return t, nil
}

// --- Planning ---

// PlanningState returns the Q&A collected so far and the current question, or
// ok=false when the task has no active planning dialogue.
func (c *Controller) PlanningState(taskID string) (qa []models.QAPair, current models.QAPair, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.planning[taskID]
	if p == nil {
		return nil, models.QAPair{}, false
	}
	cur, _ := p.Current()
	return p.QA(), cur, true
}

// AnswerPlanning records an answer to the task's current planning question.
// When the last question is answered the dialogue completes: the Q&A list is
// written onto the task and it moves to inbox. done reports completion.
func (c *Controller) AnswerPlanning(ctx context.Context, taskID, answer string) (t models.Task, done bool, err error) {
	return c.planningStep(ctx, taskID, func(p *Planning) bool { return p.Answer(answer) })
}

// SkipPlanning answers the current question with the skip sentinel.
func (c *Controller) SkipPlanning(ctx context.Context, taskID string) (t models.Task, done bool, err error) {
	return c.planningStep(ctx, taskID, func(p *Planning) bool { return p.Skip() })
}

// RestartPlanning discards any previous dialogue for the task and begins
// fresh, moving the task back to planning status.
func (c *Controller) RestartPlanning(ctx context.Context, taskID string) (models.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.tasks.MoveTo(ctx, taskID, models.StatusPlanning)
	if err != nil {
		return models.Task{}, err
	}
	c.planning[taskID] = StartPlanning(taskID, c.questions)
	c.afterTaskMutation(t)
	return t, nil
}

func (c *Controller) planningStep(ctx context.Context, taskID string, step func(*Planning) bool) (models.Task, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.planning[taskID]
	if p == nil {
		return models.Task{}, false, notFound("planning dialogue for task", taskID)
	}
	if !step(p) {
		t, _ := c.tasks.Get(taskID)
		return t, false, nil
	}
	t, err := c.tasks.CompletePlanning(ctx, taskID, p.QA())
	if err != nil {
		return models.Task{}, false, err
	}
	delete(c.planning, taskID)
	otel.RecordTaskOp(ctx, "plan_complete", string(t.Status))
	c.afterTaskMutation(t)
	return t, true, nil
}

// --- Agents ---

// SpawnConfig tunes SpawnAgentForTask; zero values are inferred (role from the
// task description, name from the role, model from the agent's config.yaml).
type SpawnConfig struct {
	Name         string
	Role         string
	Model        string
	Capabilities []string
}

// SpawnAgentForTask creates an agent, binds it to the task, and asks the agent
// runtime to start a worker session. The local changes are staged: if the
// runtime call fails before a session exists they are rolled back; if a
// session partially started the agent is parked offline instead.
func (c *Controller) SpawnAgentForTask(ctx context.Context, taskID string, cfg SpawnConfig) (models.Agent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	task, ok := c.tasks.Get(taskID)
	if !ok {
		return models.Agent{}, notFound("task", taskID)
	}
	if holder, ok := c.agents.HolderOf(taskID); ok {
		return models.Agent{}, spawnFailed(fmt.Sprintf("task %s already held by agent %s", taskID, holder.Name), nil)
	}

	role := cfg.Role
	if role == "" {
		role = InferRole(task.Description + " " + task.Title)
	}
	name := cfg.Name
	if name == "" {
		name = strings.ToLower(role) + "-" + models.NewID()[:6]
	}
	model := cfg.Model
	maxTokens := 0
	if c.home != "" {
		if ac, err := memory.LoadAgentConfig(memory.AgentDir(c.home, name)); err == nil && ac != nil {
			if model == "" {
				model = ac.Model
			}
			maxTokens = ac.MaxTokens
		}
	}

	agent, err := c.agents.Create(ctx, name, role, model, cfg.Capabilities)
	if err != nil {
		return models.Agent{}, err
	}
	if _, err := c.tasks.Assign(ctx, taskID, agent.Name); err != nil {
		_ = c.agents.Delete(ctx, agent.AgentID)
		return models.Agent{}, err
	}
	if _, err := c.agents.AssignTask(ctx, agent.AgentID, taskID); err != nil {
		_, _ = c.tasks.Assign(ctx, taskID, "")
		_ = c.agents.Delete(ctx, agent.AgentID)
		return models.Agent{}, err
	}

	req := runtime.SpawnRequest{
		TaskID:          task.TaskID,
		TaskTitle:       task.Title,
		TaskDescription: task.Description,
		AgentID:         agent.AgentID,
		AgentName:       agent.Name,
		Role:            role,
		Model:           model,
		MaxTokens:       maxTokens,
		Capabilities:    agent.Capabilities,
		PlanningContext: renderPlanningContext(task.PlanningQA),
	}
	start := time.Now()
	sess, err := c.rt.Spawn(ctx, req, c.enqueueEvent)
	if err != nil {
		otel.RecordSpawn(ctx, c.rt.Name(), "failed", time.Since(start))
		c.rollbackSpawn(taskID, agent.AgentID, sess)
		return models.Agent{}, spawnFailed("agent runtime spawn", err)
	}
	otel.RecordSpawn(ctx, c.rt.Name(), "ok", time.Since(start))
	c.sessions[agent.AgentID] = sess.Handle

	if c.home != "" {
		charter := memory.RenderCharter(agent.Name, role, task.Title, req.PlanningContext, time.Now().UTC())
		if err := memory.WriteCharter(memory.AgentDir(c.home, agent.Name), charter); err != nil {
			slog.Warn("charter write failed", "agent", agent.Name, "err", err)
		}
	}

	out, _ := c.agents.Get(agent.AgentID)
	slog.Info("agent spawned", "agent", out.Name, "role", out.Role, "task_id", taskID, "handle", sess.Handle)
	c.publishAgent(out.AgentID)
	if t, ok := c.tasks.Get(taskID); ok {
		c.afterTaskMutation(t)
	}
	return out, nil
}

// rollbackSpawn undoes the staged local changes after a failed runtime spawn.
// Persistence errors during rollback are logged, not surfaced; the spawn error
// is the one the caller needs.
func (c *Controller) rollbackSpawn(taskID, agentID string, sess runtime.Session) {
	ctx := context.Background()
	if _, err := c.tasks.Assign(ctx, taskID, ""); err != nil {
		slog.Error("spawn rollback: clear task assignment failed", "task_id", taskID, "err", err)
	}
	if sess.Handle != "" {
		// The session may have partially started; park the agent offline
		// rather than pretending it never existed.
		if _, err := c.agents.ClearTask(ctx, agentID); err != nil {
			slog.Error("spawn rollback: clear agent task failed", "agent_id", agentID, "err", err)
		}
		if _, err := c.agents.UpdateStatus(ctx, agentID, models.AgentOffline); err != nil {
			slog.Error("spawn rollback: set agent offline failed", "agent_id", agentID, "err", err)
		}
	} else if err := c.agents.Delete(ctx, agentID); err != nil {
		slog.Error("spawn rollback: delete agent failed", "agent_id", agentID, "err", err)
	}
	c.recompute()
	c.publishStats()
}

// StopAgent takes a working agent offline: the local registry state updates
// first (currentTask cleared, no completion counted, task unassigned), then
// the runtime session is stopped best-effort. A runtime stop failure is
// surfaced but does not undo the local changes.
func (c *Controller) StopAgent(ctx context.Context, agentID string) (models.Agent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	agent, ok := c.agents.Get(agentID)
	if !ok {
		return models.Agent{}, notFound("agent", agentID)
	}
	if agent.CurrentTask != "" {
		if _, err := c.tasks.Assign(ctx, agent.CurrentTask, ""); err != nil && !IsKind(err, KindNotFound) {
			return models.Agent{}, err
		}
		if t, ok := c.tasks.Get(agent.CurrentTask); ok {
			c.afterTaskMutation(t)
		}
	}
	if _, err := c.agents.ClearTask(ctx, agentID); err != nil {
		return models.Agent{}, err
	}
	out, err := c.agents.UpdateStatus(ctx, agentID, models.AgentOffline)
	if err != nil {
		return models.Agent{}, err
	}
	c.publishAgent(agentID)
	c.recompute()
	c.publishStats()

	if stopErr := c.stopSessionLocked(ctx, agentID); stopErr != nil {
		return out, stopFailed("agent runtime stop", stopErr)
	}
	return out, nil
}

// DeleteAgent removes an agent, clearing any task back-reference and stopping
// its session first.
func (c *Controller) DeleteAgent(ctx context.Context, agentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	agent, ok := c.agents.Get(agentID)
	if !ok {
		return nil
	}
	c.stopSessionLocked(ctx, agentID)
	if agent.CurrentTask != "" {
		if _, err := c.tasks.Assign(ctx, agent.CurrentTask, ""); err != nil && !IsKind(err, KindNotFound) {
			return err
		}
	}
	if err := c.agents.Delete(ctx, agentID); err != nil {
		return err
	}
	c.recompute()
	c.Hub.PublishJSON(map[string]any{"type": EventAgentChanged, "agent_id": agentID, "deleted": true})
	c.publishStats()
	return nil
}

// stopSessionLocked detaches and stops the agent's runtime session, if any.
// Detaching first means a trailing session_ended event is ignored, so a
// stopped agent never gets a completion credited.
func (c *Controller) stopSessionLocked(ctx context.Context, agentID string) error {
	handle, ok := c.sessions[agentID]
	if !ok {
		return nil
	}
	delete(c.sessions, agentID)
	if err := c.rt.Stop(ctx, handle); err != nil {
		slog.Warn("agent runtime stop failed", "agent_id", agentID, "handle", handle, "err", err)
		return err
	}
	return nil
}

// --- Messages ---

// SendMessage appends to the mission message log. An empty to means
// broadcast/operator.
func (c *Controller) SendMessage(ctx context.Context, from, to, text string, typ models.MessageType) (models.AgentMessage, error) {
	if typ != "" && !typ.Valid() {
		return models.AgentMessage{}, fmt.Errorf("invalid message type %q", typ)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.messages.Send(ctx, from, to, text, typ)
	if err != nil {
		return models.AgentMessage{}, err
	}
	c.Hub.PublishJSON(map[string]any{"type": EventMessageSent, "message_id": m.MessageID, "from": m.FromAgent, "to": m.ToAgent})
	c.recompute()
	c.publishStats()
	return m, nil
}

// --- Deliverables ---

// RecordDeliverable attaches an artifact produced by the assigned agent.
func (c *Controller) RecordDeliverable(ctx context.Context, taskID string, d models.Deliverable) (models.Task, error) {
	if !d.Type.Valid() {
		return models.Task{}, fmt.Errorf("invalid deliverable type %q", d.Type)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if d.DeliverableID == "" {
		d.DeliverableID = models.NewID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	t, err := c.tasks.AddDeliverable(ctx, taskID, d)
	if err != nil {
		return models.Task{}, err
	}
	c.afterTaskMutation(t)
	return t, nil
}

// --- Read accessors ---

// Task returns one task snapshot.
func (c *Controller) Task(taskID string) (models.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tasks.Get(taskID)
}

// Tasks returns all tasks in creation order.
func (c *Controller) Tasks() []models.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tasks.All()
}

// TasksByStatus returns tasks in a status, most recently touched first.
func (c *Controller) TasksByStatus(status models.TaskStatus) []models.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tasks.ListByStatus(status)
}

// Agent returns one agent snapshot.
func (c *Controller) Agent(agentID string) (models.Agent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agents.Get(agentID)
}

// AgentByName returns the first agent with the given name.
func (c *Controller) AgentByName(name string) (models.Agent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agents.ByName(name)
}

// Agents returns all agents in creation order.
func (c *Controller) Agents() []models.Agent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agents.All()
}

// AvailableAgents returns agents with status idle.
func (c *Controller) AvailableAgents() []models.Agent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agents.Available()
}

// WorkingAgents returns agents with status working.
func (c *Controller) WorkingAgents() []models.Agent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agents.Working()
}

// RecentMessages returns the most recent limit messages, most recent first.
func (c *Controller) RecentMessages(limit int) []models.AgentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages.QueryRecent(limit)
}

// MessagesForAgent returns the most recent limit messages involving the agent.
func (c *Controller) MessagesForAgent(agent string, limit int) []models.AgentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages.QueryByAgent(agent, limit)
}

// Statistics returns the derived mission summary.
func (c *Controller) Statistics() models.Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.stats
	out.TasksByStatus = make(map[models.TaskStatus]int, len(c.stats.TasksByStatus))
	for k, v := range c.stats.TasksByStatus {
		out.TasksByStatus[k] = v
	}
	return out
}

// --- Refresh ---

// RefreshAgents reloads agent state from the store, overwriting the in-memory
// view. It runs under the controller mutex so it cannot race an in-flight
// local mutation.
func (c *Controller) RefreshAgents(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.agents.Load(ctx); err != nil {
		return err
	}
	c.recompute()
	c.Hub.PublishJSON(map[string]any{"type": EventAgentChanged, "refreshed": true})
	c.publishStats()
	return nil
}

// RunRefresh periodically reloads agents until ctx is cancelled.
func (c *Controller) RunRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.RefreshAgents(ctx); err != nil {
				slog.Warn("agent refresh failed", "err", err)
			}
		}
	}
}

// --- Runtime events ---

// enqueueEvent hands a runtime event to the dispatcher goroutine. Runtime
// callbacks may fire while the controller mutex is held, so handling is
// deferred; the channel keeps per-session ordering.
func (c *Controller) enqueueEvent(ev runtime.Event) {
	select {
	case c.events <- ev:
	default:
		slog.Warn("runtime event dropped, queue full", "type", ev.Type, "agent_id", ev.AgentID)
	}
}

func (c *Controller) dispatchEvents() {
	for ev := range c.events {
		c.handleRuntimeEvent(ev)
	}
}

func (c *Controller) handleRuntimeEvent(ev runtime.Event) {
	// Every runtime signal is visible to subscribers, whatever its type.
	c.Hub.PublishJSON(ev)

	switch ev.Type {
	case runtime.EventSessionEnded:
		c.completeSession(ev)
	case runtime.EventDeliverable:
		c.ingestDeliverable(ev)
	}
}

// completeSession credits a finished worker session: the agent completes its
// task (counter +1, back to idle) and the task moves to review for a human
// check. Events for sessions the controller already detached (stop, delete)
// are ignored.
func (c *Controller) completeSession(ev runtime.Event) {
	ctx := context.Background()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessions[ev.AgentID] != ev.Handle || ev.Handle == "" {
		return
	}
	delete(c.sessions, ev.AgentID)

	agent, err := c.agents.CompleteTask(ctx, ev.AgentID)
	if err != nil {
		slog.Error("complete session: agent completion failed", "agent_id", ev.AgentID, "err", err)
		return
	}
	c.publishAgent(agent.AgentID)

	if ev.TaskID != "" {
		if t, err := c.tasks.MoveTo(ctx, ev.TaskID, models.StatusReview); err != nil {
			slog.Error("complete session: move task to review failed", "task_id", ev.TaskID, "err", err)
		} else {
			if _, err := c.tasks.Assign(ctx, ev.TaskID, ""); err != nil {
				slog.Error("complete session: clear assignment failed", "task_id", ev.TaskID, "err", err)
			}
			c.afterTaskMutation(t)
			if c.home != "" {
				j := &memory.Journal{AgentName: agent.Name, Home: c.home}
				outcome, _ := ev.Data["outcome"].(string)
				if err := j.Append(memory.JournalEntry{
					TaskID:    ev.TaskID,
					TaskTitle: t.Title,
					Outcome:   outcome,
					CreatedAt: time.Now().UTC(),
				}); err != nil {
					slog.Warn("journal append failed", "agent", agent.Name, "err", err)
				}
			}
		}
	}
	c.recompute()
	c.publishStats()
	c.notify(fmt.Sprintf("agent %s finished task %s", agent.Name, ev.TaskID))
}

// notify fans a message out to registered integrations. Network calls run off
// the controller goroutine so a slow webhook never blocks a mutation.
func (c *Controller) notify(message string) {
	if c.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.notifier.NotifyAll(ctx, message)
	}()
}

func (c *Controller) ingestDeliverable(ev runtime.Event) {
	if ev.TaskID == "" {
		return
	}
	name, _ := ev.Data["name"].(string)
	typ, _ := ev.Data["type"].(string)
	content, _ := ev.Data["content"].(string)
	filePath, _ := ev.Data["file_path"].(string)
	dt := models.DeliverableType(typ)
	if !dt.Valid() {
		dt = models.DeliverableReport
	}
	d := models.Deliverable{
		DeliverableID: models.NewID(),
		Name:          name,
		Type:          dt,
		Content:       content,
		FilePath:      filePath,
		CreatedAt:     time.Now().UTC(),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, err := c.tasks.AddDeliverable(context.Background(), ev.TaskID, d); err != nil {
		slog.Warn("deliverable ingest failed", "task_id", ev.TaskID, "err", err)
	} else {
		c.afterTaskMutation(t)
	}
}

// --- Internals ---

// afterTaskMutation recomputes statistics and publishes the task and
// statistics events. Callers hold the mutex.
func (c *Controller) afterTaskMutation(t models.Task) {
	c.recompute()
	c.Hub.PublishJSON(map[string]any{"type": EventTaskChanged, "task_id": t.TaskID, "status": t.Status})
	c.publishStats()
}

func (c *Controller) publishAgent(agentID string) {
	payload := map[string]any{"type": EventAgentChanged, "agent_id": agentID}
	if a, ok := c.agents.Get(agentID); ok {
		payload["status"] = a.Status
	}
	c.Hub.PublishJSON(payload)
}

func (c *Controller) publishStats() {
	c.Hub.PublishJSON(map[string]any{"type": EventStatisticsUpdated, "statistics": c.stats})
}

// recompute derives statistics from registry snapshots. Callers hold the mutex.
func (c *Controller) recompute() {
	byStatus := make(map[models.TaskStatus]int, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		byStatus[s] = 0
	}
	all := c.tasks.All()
	for _, t := range all {
		byStatus[t.Status]++
	}
	agents := c.agents.All()
	active := 0
	for _, a := range agents {
		if a.Status == models.AgentWorking {
			active++
		}
	}
	rate := 0.0
	if len(all) > 0 {
		rate = float64(byStatus[models.StatusDone]) / float64(len(all))
	}
	c.stats = models.Statistics{
		TasksByStatus:  byStatus,
		TotalTasks:     len(all),
		TotalAgents:    len(agents),
		ActiveAgents:   active,
		CompletionRate: rate,
	}
}

func renderPlanningContext(qa []models.QAPair) string {
	if len(qa) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range qa {
		b.WriteString("Q: ")
		b.WriteString(p.Question)
		b.WriteString("\nA: ")
		if p.IsAnswered() {
			b.WriteString(p.Answer)
		} else {
			b.WriteString("(unanswered)")
		}
		b.WriteString("\n")
	}
	return b.String()
}

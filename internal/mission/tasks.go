package mission

import (
	"context"
	"sort"
	"time"

	"github.com/missionkit/missionctl/internal/store"
	"github.com/missionkit/missionctl/pkg/models"
)

// TaskRegistry is the in-memory authoritative view of all tasks. Mutations are
// applied in memory first and persisted through the store; a failed save
// restores the prior state so memory and disk never diverge.
//
// The registry is not internally locked; the mission controller serializes all
// calls (single logical owner).
type TaskRegistry struct {
	store store.Store
	clock func() time.Time
	tasks map[string]models.Task
	order []string // creation order, preserved across saves
}

// NewTaskRegistry returns an empty registry backed by st.
func NewTaskRegistry(st store.Store) *TaskRegistry {
	return &TaskRegistry{
		store: st,
		clock: time.Now,
		tasks: make(map[string]models.Task),
	}
}

// Load replaces the in-memory view with the persisted collection.
func (r *TaskRegistry) Load(ctx context.Context) error {
	tasks, err := r.store.LoadTasks(ctx)
	if err != nil {
		return loadFailed("load tasks", err)
	}
	r.tasks = make(map[string]models.Task, len(tasks))
	r.order = r.order[:0]
	for _, t := range tasks {
		r.tasks[t.TaskID] = t
		r.order = append(r.order, t.TaskID)
	}
	return nil
}

// Create allocates a task in planning status and persists it.
func (r *TaskRegistry) Create(ctx context.Context, title, description string, priority models.Priority) (models.Task, error) {
	now := r.clock().UTC()
	t := models.Task{
		TaskID:      models.NewID(),
		Title:       title,
		Description: description,
		Status:      models.StatusPlanning,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.tasks[t.TaskID] = t
	r.order = append(r.order, t.TaskID)
	if err := r.persist(ctx); err != nil {
		delete(r.tasks, t.TaskID)
		r.order = r.order[:len(r.order)-1]
		return models.Task{}, saveFailed("create task", err)
	}
	return t.Clone(), nil
}

// Update replaces a task by id. It fails with NotFound for an unknown id; a
// stale-but-existing task is overwritten (last write wins, caller holds latest).
func (r *TaskRegistry) Update(ctx context.Context, t models.Task) (models.Task, error) {
	prev, ok := r.tasks[t.TaskID]
	if !ok {
		return models.Task{}, notFound("task", t.TaskID)
	}
	next := t.Clone()
	next.CreatedAt = prev.CreatedAt // immutable
	r.touch(&next)
	r.tasks[t.TaskID] = next
	if err := r.persist(ctx); err != nil {
		r.tasks[t.TaskID] = prev
		return models.Task{}, saveFailed("update task", err)
	}
	return next.Clone(), nil
}

// Delete removes a task; deleting an unknown id is a no-op.
func (r *TaskRegistry) Delete(ctx context.Context, id string) error {
	prev, ok := r.tasks[id]
	if !ok {
		return nil
	}
	idx := -1
	for i, tid := range r.order {
		if tid == id {
			idx = i
			break
		}
	}
	delete(r.tasks, id)
	if idx >= 0 {
		r.order = append(r.order[:idx], r.order[idx+1:]...)
	}
	if err := r.persist(ctx); err != nil {
		r.tasks[id] = prev
		if idx >= 0 {
			r.order = append(r.order[:idx], append([]string{id}, r.order[idx:]...)...)
		}
		return deleteFailed("delete task", err)
	}
	return nil
}

// MoveTo sets the task status. Any status is reachable from any other; work
// items may be force-corrected by an operator at any point.
func (r *TaskRegistry) MoveTo(ctx context.Context, id string, status models.TaskStatus) (models.Task, error) {
	return r.mutate(ctx, id, "move task", func(t *models.Task) {
		t.Status = status
	})
}

// Assign sets the task's back-reference to an agent name (empty clears it).
// The controller keeps this consistent with the agent registry.
func (r *TaskRegistry) Assign(ctx context.Context, id, agentName string) (models.Task, error) {
	return r.mutate(ctx, id, "assign task", func(t *models.Task) {
		t.AssignedAgent = agentName
	})
}

// SetPlanningQA replaces the task's planning Q&A list.
func (r *TaskRegistry) SetPlanningQA(ctx context.Context, id string, qa []models.QAPair) (models.Task, error) {
	return r.mutate(ctx, id, "set planning qa", func(t *models.Task) {
		t.PlanningQA = append([]models.QAPair(nil), qa...)
	})
}

// CompletePlanning writes the accumulated Q&A onto the task and moves it to
// inbox in a single persisted mutation.
func (r *TaskRegistry) CompletePlanning(ctx context.Context, id string, qa []models.QAPair) (models.Task, error) {
	return r.mutate(ctx, id, "complete planning", func(t *models.Task) {
		t.PlanningQA = append([]models.QAPair(nil), qa...)
		t.Status = models.StatusInbox
	})
}

// AddDeliverable appends a deliverable produced by the assigned agent.
func (r *TaskRegistry) AddDeliverable(ctx context.Context, id string, d models.Deliverable) (models.Task, error) {
	return r.mutate(ctx, id, "add deliverable", func(t *models.Task) {
		t.Deliverables = append(t.Deliverables, d)
	})
}

func (r *TaskRegistry) mutate(ctx context.Context, id, op string, fn func(*models.Task)) (models.Task, error) {
	prev, ok := r.tasks[id]
	if !ok {
		return models.Task{}, notFound("task", id)
	}
	next := prev.Clone()
	fn(&next)
	r.touch(&next)
	r.tasks[id] = next
	if err := r.persist(ctx); err != nil {
		r.tasks[id] = prev
		return models.Task{}, saveFailed(op, err)
	}
	return next.Clone(), nil
}

// Get returns a snapshot of one task.
func (r *TaskRegistry) Get(id string) (models.Task, bool) {
	t, ok := r.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return t.Clone(), true
}

// All returns a snapshot of every task in creation order.
func (r *TaskRegistry) All() []models.Task {
	out := make([]models.Task, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tasks[id].Clone())
	}
	return out
}

// ListByStatus returns a fresh snapshot of tasks in the given status, most
// recently touched first.
func (r *TaskRegistry) ListByStatus(status models.TaskStatus) []models.Task {
	var out []models.Task
	for _, id := range r.order {
		if t := r.tasks[id]; t.Status == status {
			out = append(out, t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// touch refreshes UpdatedAt, strictly monotonic even when the clock stalls.
func (r *TaskRegistry) touch(t *models.Task) {
	now := r.clock().UTC()
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Nanosecond)
	}
	t.UpdatedAt = now
}

func (r *TaskRegistry) persist(ctx context.Context) error {
	return r.store.SaveTasks(ctx, r.snapshot())
}

func (r *TaskRegistry) snapshot() []models.Task {
	out := make([]models.Task, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tasks[id])
	}
	return out
}

package mission

import (
	"context"
	"errors"
	"testing"

	"github.com/missionkit/missionctl/internal/store"
	"github.com/missionkit/missionctl/pkg/models"
)

func newAgentRegistry(t *testing.T) (*AgentRegistry, *store.MemStore) {
	t.Helper()
	st := store.NewMemStore()
	r := NewAgentRegistry(st)
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return r, st
}

func TestAgentRegistry_CreateIdle(t *testing.T) {
	t.Parallel()
	r, _ := newAgentRegistry(t)
	a, err := r.Create(context.Background(), "dev-1", "Developer", "m1", []string{"code"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Status != models.AgentIdle {
		t.Errorf("Create status: got %q, want idle", a.Status)
	}
	if a.TotalTasksCompleted != 0 {
		t.Errorf("Create counter: got %d, want 0", a.TotalTasksCompleted)
	}
}

func TestAgentRegistry_AssignCompleteCycle(t *testing.T) {
	t.Parallel()
	r, _ := newAgentRegistry(t)
	ctx := context.Background()
	a, _ := r.Create(ctx, "dev-1", "Developer", "", nil)

	got, err := r.AssignTask(ctx, a.AgentID, "task-1")
	if err != nil {
		t.Fatalf("AssignTask: %v", err)
	}
	if got.Status != models.AgentWorking || got.CurrentTask != "task-1" {
		t.Errorf("AssignTask: got status %q task %q", got.Status, got.CurrentTask)
	}

	got, err = r.CompleteTask(ctx, a.AgentID)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if got.Status != models.AgentIdle || got.CurrentTask != "" {
		t.Errorf("CompleteTask: got status %q task %q", got.Status, got.CurrentTask)
	}
	if got.TotalTasksCompleted != 1 {
		t.Errorf("CompleteTask counter: got %d, want 1", got.TotalTasksCompleted)
	}
}

func TestAgentRegistry_ClearTaskSkipsCounter(t *testing.T) {
	t.Parallel()
	r, _ := newAgentRegistry(t)
	ctx := context.Background()
	a, _ := r.Create(ctx, "dev-1", "Developer", "", nil)
	_, _ = r.AssignTask(ctx, a.AgentID, "task-1")

	got, err := r.ClearTask(ctx, a.AgentID)
	if err != nil {
		t.Fatalf("ClearTask: %v", err)
	}
	if got.CurrentTask != "" || got.Status != models.AgentIdle {
		t.Errorf("ClearTask: got status %q task %q", got.Status, got.CurrentTask)
	}
	if got.TotalTasksCompleted != 0 {
		t.Errorf("ClearTask counter: got %d, want 0 (stop is not a completion)", got.TotalTasksCompleted)
	}
}

func TestAgentRegistry_HolderOf(t *testing.T) {
	t.Parallel()
	r, _ := newAgentRegistry(t)
	ctx := context.Background()
	a, _ := r.Create(ctx, "dev-1", "Developer", "", nil)
	b, _ := r.Create(ctx, "dev-2", "Developer", "", nil)
	_, _ = r.AssignTask(ctx, a.AgentID, "task-1")

	holder, ok := r.HolderOf("task-1")
	if !ok || holder.AgentID != a.AgentID {
		t.Fatalf("HolderOf: got %v/%v, want agent %s", holder.AgentID, ok, a.AgentID)
	}
	if _, ok := r.HolderOf("task-2"); ok {
		t.Error("HolderOf unassigned task: got a holder")
	}
	_ = b
}

func TestAgentRegistry_AvailableWorking(t *testing.T) {
	t.Parallel()
	r, _ := newAgentRegistry(t)
	ctx := context.Background()
	a, _ := r.Create(ctx, "dev-1", "Developer", "", nil)
	_, _ = r.Create(ctx, "dev-2", "Developer", "", nil)
	_, _ = r.AssignTask(ctx, a.AgentID, "task-1")

	if got := r.Available(); len(got) != 1 || got[0].Name != "dev-2" {
		t.Errorf("Available: got %d agents", len(got))
	}
	if got := r.Working(); len(got) != 1 || got[0].Name != "dev-1" {
		t.Errorf("Working: got %d agents", len(got))
	}
}

func TestAgentRegistry_SaveFailureReverts(t *testing.T) {
	t.Parallel()
	r, st := newAgentRegistry(t)
	ctx := context.Background()
	a, _ := r.Create(ctx, "dev-1", "Developer", "", nil)

	st.FailSaves = errors.New("disk full")
	if _, err := r.AssignTask(ctx, a.AgentID, "task-1"); !IsKind(err, KindSaveFailed) {
		t.Fatalf("AssignTask with failing save: got %v, want save_failed", err)
	}
	got, _ := r.Get(a.AgentID)
	if got.Status != models.AgentIdle || got.CurrentTask != "" {
		t.Errorf("agent after failed save: got status %q task %q, want idle/empty", got.Status, got.CurrentTask)
	}
}

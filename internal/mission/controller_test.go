package mission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/missionkit/missionctl/internal/runtime"
	"github.com/missionkit/missionctl/internal/store"
	"github.com/missionkit/missionctl/pkg/models"
)

func newController(t *testing.T, rt runtime.Runtime) (*Controller, *store.MemStore) {
	t.Helper()
	st := store.NewMemStore()
	if rt == nil {
		rt = &runtime.StubRuntime{}
	}
	c := New(st, rt, Options{})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c, st
}

// waitFor polls until cond holds or the deadline passes. Runtime completion
// events arrive on the controller's dispatcher goroutine.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func planToInbox(t *testing.T, c *Controller, taskID string) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < len(DefaultPlanningQuestions); i++ {
		if _, _, err := c.SkipPlanning(ctx, taskID); err != nil {
			t.Fatalf("SkipPlanning %d: %v", i, err)
		}
	}
}

func TestController_PlanningFlow(t *testing.T) {
	t.Parallel()
	c, _ := newController(t, nil)
	ctx := context.Background()

	task, err := c.CreateTask(ctx, "market study", "research widgets", models.PriorityMedium)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Status != models.StatusPlanning {
		t.Fatalf("new task status: got %q, want planning", task.Status)
	}

	// Four answers, then a skip to finish.
	for i := 0; i < 4; i++ {
		got, done, err := c.AnswerPlanning(ctx, task.TaskID, "answer")
		if err != nil {
			t.Fatalf("AnswerPlanning %d: %v", i, err)
		}
		if done {
			t.Fatalf("AnswerPlanning %d: done too early", i)
		}
		if got.Status != models.StatusPlanning {
			t.Errorf("AnswerPlanning %d: status %q", i, got.Status)
		}
	}
	got, done, err := c.SkipPlanning(ctx, task.TaskID)
	if err != nil {
		t.Fatalf("SkipPlanning: %v", err)
	}
	if !done {
		t.Fatal("SkipPlanning: final step not done")
	}
	if got.Status != models.StatusInbox {
		t.Errorf("status after planning: got %q, want inbox", got.Status)
	}
	if len(got.PlanningQA) != 5 {
		t.Fatalf("planning qa: got %d pairs, want 5", len(got.PlanningQA))
	}
	if got.PlanningQA[4].Answer != models.DefaultPlanningSkipAnswer {
		t.Errorf("skipped answer: got %q", got.PlanningQA[4].Answer)
	}

	// The dialogue is gone once complete.
	if _, _, ok := c.PlanningState(task.TaskID); ok {
		t.Error("PlanningState after completion: still active")
	}
	if _, _, err := c.AnswerPlanning(ctx, task.TaskID, "late"); !IsKind(err, KindNotFound) {
		t.Errorf("AnswerPlanning after completion: got %v, want not_found", err)
	}
}

func TestController_SpawnAgentForTask(t *testing.T) {
	t.Parallel()
	stub := &runtime.StubRuntime{}
	c, _ := newController(t, stub)
	ctx := context.Background()

	task, _ := c.CreateTask(ctx, "investigate the outage", "", models.PriorityHigh)
	planToInbox(t, c, task.TaskID)

	agent, err := c.SpawnAgentForTask(ctx, task.TaskID, SpawnConfig{})
	if err != nil {
		t.Fatalf("SpawnAgentForTask: %v", err)
	}
	if agent.Status != models.AgentWorking || agent.CurrentTask != task.TaskID {
		t.Errorf("agent after spawn: status %q task %q", agent.Status, agent.CurrentTask)
	}
	if agent.Role != "Researcher" {
		t.Errorf("inferred role: got %q, want Researcher", agent.Role)
	}

	got, _ := c.Task(task.TaskID)
	if got.AssignedAgent != agent.Name {
		t.Errorf("task assignee: got %q, want %q", got.AssignedAgent, agent.Name)
	}
	if got.Status != models.StatusInbox {
		t.Errorf("task status changed by spawn: got %q, want inbox", got.Status)
	}

	// Second spawn for the same task must refuse: single assignment.
	if _, err := c.SpawnAgentForTask(ctx, task.TaskID, SpawnConfig{}); !IsKind(err, KindAgentSpawnFailed) {
		t.Errorf("second spawn: got %v, want agent_spawn_failed", err)
	}

	stats := c.Statistics()
	if stats.ActiveAgents != 1 || stats.TotalAgents != 1 {
		t.Errorf("stats after spawn: active %d total %d", stats.ActiveAgents, stats.TotalAgents)
	}
}

func TestController_SpawnFailureRollsBack(t *testing.T) {
	t.Parallel()
	stub := &runtime.StubRuntime{SpawnErr: errors.New("runtime unreachable")}
	c, _ := newController(t, stub)
	ctx := context.Background()

	task, _ := c.CreateTask(ctx, "t", "", models.PriorityMedium)
	planToInbox(t, c, task.TaskID)

	if _, err := c.SpawnAgentForTask(ctx, task.TaskID, SpawnConfig{}); !IsKind(err, KindAgentSpawnFailed) {
		t.Fatalf("spawn with failing runtime: got %v, want agent_spawn_failed", err)
	}
	if agents := c.Agents(); len(agents) != 0 {
		t.Errorf("agents after rollback: got %d, want 0", len(agents))
	}
	got, _ := c.Task(task.TaskID)
	if got.AssignedAgent != "" {
		t.Errorf("task assignee after rollback: got %q, want empty", got.AssignedAgent)
	}
}

func TestController_SessionEndCompletesTask(t *testing.T) {
	t.Parallel()
	stub := &runtime.StubRuntime{}
	c, _ := newController(t, stub)
	ctx := context.Background()

	task, _ := c.CreateTask(ctx, "t", "", models.PriorityMedium)
	planToInbox(t, c, task.TaskID)
	agent, err := c.SpawnAgentForTask(ctx, task.TaskID, SpawnConfig{})
	if err != nil {
		t.Fatalf("SpawnAgentForTask: %v", err)
	}

	c.mu.Lock()
	handle := c.sessions[agent.AgentID]
	c.mu.Unlock()
	stub.EndSession(handle)

	waitFor(t, func() bool {
		a, _ := c.Agent(agent.AgentID)
		return a.Status == models.AgentIdle
	})
	a, _ := c.Agent(agent.AgentID)
	if a.TotalTasksCompleted != 1 {
		t.Errorf("completions: got %d, want 1", a.TotalTasksCompleted)
	}
	got, _ := c.Task(task.TaskID)
	if got.Status != models.StatusReview {
		t.Errorf("task status after session end: got %q, want review", got.Status)
	}
	if got.AssignedAgent != "" {
		t.Errorf("task assignee after session end: got %q, want empty", got.AssignedAgent)
	}
}

func TestController_StopAgentSkipsCompletion(t *testing.T) {
	t.Parallel()
	stub := &runtime.StubRuntime{}
	c, _ := newController(t, stub)
	ctx := context.Background()

	task, _ := c.CreateTask(ctx, "t", "", models.PriorityMedium)
	planToInbox(t, c, task.TaskID)
	agent, _ := c.SpawnAgentForTask(ctx, task.TaskID, SpawnConfig{})

	got, err := c.StopAgent(ctx, agent.AgentID)
	if err != nil {
		t.Fatalf("StopAgent: %v", err)
	}
	if got.Status != models.AgentOffline || got.CurrentTask != "" {
		t.Errorf("agent after stop: status %q task %q", got.Status, got.CurrentTask)
	}
	if got.TotalTasksCompleted != 0 {
		t.Errorf("completions after stop: got %d, want 0", got.TotalTasksCompleted)
	}
	tk, _ := c.Task(task.TaskID)
	if tk.AssignedAgent != "" {
		t.Errorf("task assignee after stop: got %q, want empty", tk.AssignedAgent)
	}

	// The stub emits session_ended("stopped") during Stop; the detached
	// session means it must never credit a completion.
	time.Sleep(50 * time.Millisecond)
	a, _ := c.Agent(agent.AgentID)
	if a.TotalTasksCompleted != 0 {
		t.Errorf("completions after trailing event: got %d, want 0", a.TotalTasksCompleted)
	}
	if a.Status != models.AgentOffline {
		t.Errorf("status after trailing event: got %q, want offline", a.Status)
	}
}

func TestController_DeleteTaskCascades(t *testing.T) {
	t.Parallel()
	stub := &runtime.StubRuntime{}
	c, _ := newController(t, stub)
	ctx := context.Background()

	task, _ := c.CreateTask(ctx, "t", "", models.PriorityMedium)
	planToInbox(t, c, task.TaskID)
	agent, _ := c.SpawnAgentForTask(ctx, task.TaskID, SpawnConfig{})

	if err := c.DeleteTask(ctx, task.TaskID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, ok := c.Task(task.TaskID); ok {
		t.Error("task still present after delete")
	}
	a, _ := c.Agent(agent.AgentID)
	if a.CurrentTask != "" {
		t.Errorf("holding agent after cascade: task %q, want empty", a.CurrentTask)
	}
	if a.Status != models.AgentIdle {
		t.Errorf("holding agent status: got %q, want idle", a.Status)
	}
}

func TestController_AssignTaskToAgent(t *testing.T) {
	t.Parallel()
	stub := &runtime.StubRuntime{}
	c, _ := newController(t, stub)
	ctx := context.Background()

	t1, _ := c.CreateTask(ctx, "t1", "", models.PriorityMedium)
	t2, _ := c.CreateTask(ctx, "t2", "", models.PriorityMedium)
	planToInbox(t, c, t1.TaskID)
	planToInbox(t, c, t2.TaskID)
	agent, _ := c.SpawnAgentForTask(ctx, t1.TaskID, SpawnConfig{Name: "worker-1"})

	// The agent already holds t1; binding it to t2 conflicts with nothing,
	// but binding a second agent to t1 must fail.
	if _, err := c.AssignTaskToAgent(ctx, t1.TaskID, "worker-1"); err != nil {
		t.Errorf("re-assign to same holder: %v", err)
	}
	agent2, _ := c.SpawnAgentForTask(ctx, t2.TaskID, SpawnConfig{Name: "worker-2"})
	if _, err := c.AssignTaskToAgent(ctx, t1.TaskID, agent2.Name); err == nil {
		t.Error("assigning a held task to another agent: want error")
	}
	if _, err := c.AssignTaskToAgent(ctx, t1.TaskID, "ghost"); !IsKind(err, KindNotFound) {
		t.Errorf("assign to unknown agent: got %v, want not_found", err)
	}
	_ = agent
}

func TestController_StatisticsRecompute(t *testing.T) {
	t.Parallel()
	c, _ := newController(t, nil)
	ctx := context.Background()

	stats := c.Statistics()
	if stats.CompletionRate != 0 {
		t.Errorf("empty completion rate: got %v, want 0", stats.CompletionRate)
	}
	if len(stats.TasksByStatus) != len(models.TaskStatuses) {
		t.Errorf("status buckets: got %d, want %d (zero-filled)", len(stats.TasksByStatus), len(models.TaskStatuses))
	}

	t1, _ := c.CreateTask(ctx, "t1", "", models.PriorityMedium)
	t2, _ := c.CreateTask(ctx, "t2", "", models.PriorityMedium)
	if _, err := c.MoveTask(ctx, t1.TaskID, models.StatusDone); err != nil {
		t.Fatalf("MoveTask: %v", err)
	}

	stats = c.Statistics()
	if stats.TotalTasks != 2 {
		t.Errorf("total tasks: got %d, want 2", stats.TotalTasks)
	}
	if stats.TasksByStatus[models.StatusDone] != 1 || stats.TasksByStatus[models.StatusPlanning] != 1 {
		t.Errorf("buckets: %v", stats.TasksByStatus)
	}
	if stats.CompletionRate != 0.5 {
		t.Errorf("completion rate: got %v, want 0.5", stats.CompletionRate)
	}
	_ = t2
}

func TestController_CreateTaskSaveFailure(t *testing.T) {
	t.Parallel()
	c, st := newController(t, nil)
	st.FailSaves = errors.New("disk full")
	if _, err := c.CreateTask(context.Background(), "t", "", models.PriorityMedium); !IsKind(err, KindSaveFailed) {
		t.Fatalf("CreateTask with failing save: got %v, want save_failed", err)
	}
	if got := c.Tasks(); len(got) != 0 {
		t.Errorf("tasks after failed create: got %d, want 0", len(got))
	}
}

func TestController_SendMessagePublishes(t *testing.T) {
	t.Parallel()
	c, _ := newController(t, nil)
	sub := c.Hub.Subscribe()
	defer c.Hub.Unsubscribe(sub)

	m, err := c.SendMessage(context.Background(), "alice", "bob", "hello", "")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if m.Type != models.MessageCommunication {
		t.Errorf("default type: got %q", m.Type)
	}
	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("no hub event after SendMessage")
	}
	got := c.MessagesForAgent("alice", 0)
	if len(got) != 1 || got[0].Message != "hello" {
		t.Errorf("MessagesForAgent: %v", got)
	}
}

func TestController_LoadRestartsPlanning(t *testing.T) {
	t.Parallel()
	st := store.NewMemStore()
	c1 := New(st, &runtime.StubRuntime{}, Options{})
	ctx := context.Background()
	if err := c1.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	task, _ := c1.CreateTask(ctx, "t", "", models.PriorityMedium)
	if _, _, err := c1.AnswerPlanning(ctx, task.TaskID, "partial"); err != nil {
		t.Fatalf("AnswerPlanning: %v", err)
	}

	// A fresh controller over the same store begins the dialogue fresh.
	c2 := New(st, &runtime.StubRuntime{}, Options{})
	if err := c2.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	qa, current, ok := c2.PlanningState(task.TaskID)
	if !ok {
		t.Fatal("PlanningState: planning not restarted on load")
	}
	if current.Question != DefaultPlanningQuestions[0] {
		t.Errorf("restarted dialogue: current %q, want first question", current.Question)
	}
	for _, pair := range qa {
		if pair.IsAnswered() {
			t.Errorf("restarted dialogue kept answer %q", pair.Answer)
		}
	}
}

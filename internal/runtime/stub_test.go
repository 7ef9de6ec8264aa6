package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) emit(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestStubSpawnEmitsStartAndActivity(t *testing.T) {
	t.Parallel()
	rt := &StubRuntime{}
	rec := &eventRecorder{}

	sess, err := rt.Spawn(context.Background(), SpawnRequest{
		TaskID: "t1", AgentID: "a1", AgentName: "dev-1", Role: "Developer",
	}, rec.emit)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if sess.Handle == "" {
		t.Fatal("Spawn: empty handle")
	}

	events := rec.snapshot()
	if len(events) != 2 {
		t.Fatalf("events after spawn: got %d, want 2", len(events))
	}
	if events[0].Type != EventSessionStarted || events[1].Type != EventAgentActivity {
		t.Errorf("event types: %s, %s", events[0].Type, events[1].Type)
	}
	if events[0].AgentID != "a1" || events[0].TaskID != "t1" || events[0].Handle != sess.Handle {
		t.Errorf("started event fields: %+v", events[0])
	}
}

func TestStubEndSessionEmitsCompleted(t *testing.T) {
	t.Parallel()
	rt := &StubRuntime{}
	rec := &eventRecorder{}

	sess, err := rt.Spawn(context.Background(), SpawnRequest{TaskID: "t1", AgentID: "a1"}, rec.emit)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	rt.EndSession(sess.Handle)

	events := rec.snapshot()
	last := events[len(events)-1]
	if last.Type != EventSessionEnded {
		t.Fatalf("last event: %s, want %s", last.Type, EventSessionEnded)
	}
	if last.Data["outcome"] != "completed" {
		t.Errorf("outcome: %v", last.Data["outcome"])
	}

	// The session is gone; a second end is a no-op.
	before := len(rec.snapshot())
	rt.EndSession(sess.Handle)
	if got := len(rec.snapshot()); got != before {
		t.Errorf("double end emitted events: %d -> %d", before, got)
	}
}

func TestStubStopEmitsStopped(t *testing.T) {
	t.Parallel()
	rt := &StubRuntime{}
	rec := &eventRecorder{}

	sess, err := rt.Spawn(context.Background(), SpawnRequest{TaskID: "t1", AgentID: "a1"}, rec.emit)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := rt.Stop(context.Background(), sess.Handle); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	events := rec.snapshot()
	last := events[len(events)-1]
	if last.Type != EventSessionEnded || last.Data["outcome"] != "stopped" {
		t.Errorf("last event after stop: %+v", last)
	}
}

func TestStubStopUnknownHandle(t *testing.T) {
	t.Parallel()
	rt := &StubRuntime{}
	if err := rt.Stop(context.Background(), "no-such-handle"); err == nil {
		t.Error("Stop unknown handle: no error")
	}
}

func TestStubSpawnErr(t *testing.T) {
	t.Parallel()
	boom := errors.New("runtime unreachable")
	rt := &StubRuntime{SpawnErr: boom}
	rec := &eventRecorder{}

	_, err := rt.Spawn(context.Background(), SpawnRequest{TaskID: "t1"}, rec.emit)
	if !errors.Is(err, boom) {
		t.Fatalf("Spawn: got %v, want %v", err, boom)
	}
	if len(rec.snapshot()) != 0 {
		t.Error("failed spawn emitted events")
	}
}

func TestStubSpawnCancelledContext(t *testing.T) {
	t.Parallel()
	rt := &StubRuntime{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rt.Spawn(ctx, SpawnRequest{TaskID: "t1"}, func(Event) {}); err == nil {
		t.Error("Spawn with cancelled context: no error")
	}
}

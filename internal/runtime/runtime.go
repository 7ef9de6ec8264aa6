// Package runtime is the boundary to the external service that actually
// executes agent work. The mission core only ever asks it to spawn a worker
// session for a task and to stop one; status and completion flow back as
// events. Implementations must not mutate mission state directly.
package runtime

import (
	"context"
	"time"
)

// Event is a status signal emitted by a running worker session.
type Event struct {
	Type      string         `json:"type"`
	Handle    string         `json:"handle,omitempty"`
	AgentID   string         `json:"agent_id,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Event types emitted by runtimes.
const (
	EventSessionStarted = "session_started"
	EventAgentActivity  = "agent_activity"
	EventDeliverable    = "deliverable"
	EventSessionEnded   = "session_ended"
)

// SpawnRequest describes the worker session to start.
type SpawnRequest struct {
	TaskID          string   `json:"task_id"`
	TaskTitle       string   `json:"task_title"`
	TaskDescription string   `json:"task_description"`
	AgentID         string   `json:"agent_id"`
	AgentName       string   `json:"agent_name"`
	Role            string   `json:"role"`
	Model           string   `json:"model,omitempty"`
	MaxTokens       int      `json:"max_tokens,omitempty"`
	Capabilities    []string `json:"capabilities,omitempty"`
	// PlanningContext is the rendered Q&A dialogue collected before assignment.
	PlanningContext string `json:"planning_context,omitempty"`
}

// Session is the handle for a spawned worker.
type Session struct {
	Handle string
}

// Runtime spawns and stops worker sessions. Both calls are network-backed and
// may fail with connectivity or protocol errors; the caller surfaces those
// without retrying.
type Runtime interface {
	Name() string
	// Spawn starts a worker for the request and returns once the session is
	// established. Events stream to emit from a runtime-owned goroutine until
	// the session ends.
	Spawn(ctx context.Context, req SpawnRequest, emit func(Event)) (Session, error)
	// Stop asks the runtime to terminate the session. Best-effort.
	Stop(ctx context.Context, handle string) error
}

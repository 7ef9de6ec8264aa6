// Package models provides shared types for the Mission Control API and external tools.
// These types mirror the API JSON and are stable for use by pkg/client and other consumers.
package models

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Task is a unit of work tracked through the mission workflow.
type Task struct {
	TaskID        string        `json:"task_id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	Status        TaskStatus    `json:"status"`
	Priority      Priority      `json:"priority"`
	AssignedAgent string        `json:"assigned_agent,omitempty"`
	PlanningQA    []QAPair      `json:"planning_qa,omitempty"`
	Deliverables  []Deliverable `json:"deliverables,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Clone returns a deep copy of the task so callers never alias registry state.
func (t Task) Clone() Task {
	out := t
	if t.PlanningQA != nil {
		out.PlanningQA = make([]QAPair, len(t.PlanningQA))
		copy(out.PlanningQA, t.PlanningQA)
	}
	if t.Deliverables != nil {
		out.Deliverables = make([]Deliverable, len(t.Deliverables))
		copy(out.Deliverables, t.Deliverables)
	}
	if t.Tags != nil {
		out.Tags = append([]string(nil), t.Tags...)
	}
	return out
}

// Agent is a worker backed by an external runtime; it holds at most one task at a time.
type Agent struct {
	AgentID             string      `json:"agent_id"`
	Name                string      `json:"name"`
	Role                string      `json:"role"`
	Model               string      `json:"model,omitempty"`
	Status              AgentStatus `json:"status"`
	Capabilities        []string    `json:"capabilities,omitempty"`
	CurrentTask         string      `json:"current_task,omitempty"`
	TotalTasksCompleted int         `json:"total_tasks_completed"`
	CreatedAt           time.Time   `json:"created_at"`
	LastActivity        time.Time   `json:"last_activity"`
}

// Clone returns a deep copy of the agent.
func (a Agent) Clone() Agent {
	out := a
	if a.Capabilities != nil {
		out.Capabilities = append([]string(nil), a.Capabilities...)
	}
	return out
}

// QAPair is one planning question with its (possibly empty) answer.
type QAPair struct {
	QAID     string    `json:"qa_id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer,omitempty"`
	AnswerAt time.Time `json:"answer_at,omitempty"`
}

// IsAnswered reports whether the pair has a non-empty answer.
func (q QAPair) IsAnswered() bool { return q.Answer != "" }

// Deliverable is an output artifact an agent produced while working a task.
type Deliverable struct {
	DeliverableID string          `json:"deliverable_id"`
	Name          string          `json:"name"`
	Type          DeliverableType `json:"type"`
	Content       string          `json:"content,omitempty"`
	FilePath      string          `json:"file_path,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AgentMessage is one entry in the mission message log. Immutable once created;
// an empty ToAgent means broadcast/operator.
type AgentMessage struct {
	MessageID string      `json:"message_id"`
	FromAgent string      `json:"from_agent"`
	ToAgent   string      `json:"to_agent,omitempty"`
	Message   string      `json:"message"`
	Type      MessageType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}

// Statistics is the derived mission summary, recomputed after every mutation.
type Statistics struct {
	TasksByStatus  map[TaskStatus]int `json:"tasks_by_status"`
	TotalTasks     int                `json:"total_tasks"`
	TotalAgents    int                `json:"total_agents"`
	ActiveAgents   int                `json:"active_agents"`
	CompletionRate float64            `json:"completion_rate"`
}

// NewID returns a random 16-hex-char identifier derived from a v4 UUID.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:8])
}

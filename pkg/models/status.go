package models

// TaskStatus is the closed set of workflow stages a task moves through.
// Transitions are operator-driven and intentionally unrestricted.
type TaskStatus string

const (
	StatusPlanning   TaskStatus = "planning"
	StatusInbox      TaskStatus = "inbox"
	StatusAssigned   TaskStatus = "assigned"
	StatusInProgress TaskStatus = "in_progress"
	StatusTesting    TaskStatus = "testing"
	StatusReview     TaskStatus = "review"
	StatusDone       TaskStatus = "done"
)

// TaskStatuses lists all task statuses in workflow order.
var TaskStatuses = []TaskStatus{
	StatusPlanning, StatusInbox, StatusAssigned, StatusInProgress,
	StatusTesting, StatusReview, StatusDone,
}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPlanning, StatusInbox, StatusAssigned, StatusInProgress,
		StatusTesting, StatusReview, StatusDone:
		return true
	}
	return false
}

// AgentStatus is the closed set of agent lifecycle states.
type AgentStatus string

const (
	AgentIdle    AgentStatus = "idle"
	AgentWorking AgentStatus = "working"
	AgentOffline AgentStatus = "offline"
)

func (s AgentStatus) Valid() bool {
	switch s {
	case AgentIdle, AgentWorking, AgentOffline:
		return true
	}
	return false
}

// Priority orders tasks by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// MessageType distinguishes agent communication from system-level notices.
type MessageType string

const (
	MessageCommunication MessageType = "communication"
	MessageSystem        MessageType = "system"
)

func (m MessageType) Valid() bool {
	return m == MessageCommunication || m == MessageSystem
}

// DeliverableType is the kind of artifact an agent produced.
type DeliverableType string

const (
	DeliverableReport DeliverableType = "report"
	DeliverableFile   DeliverableType = "file"
	DeliverableCode   DeliverableType = "code"
)

func (d DeliverableType) Valid() bool {
	switch d {
	case DeliverableReport, DeliverableFile, DeliverableCode:
		return true
	}
	return false
}

// Default limits.
const (
	DefaultMaxRequestBodyBytes = 1 << 20 // 1 MiB
	DefaultMessageLogBound     = 1000
	DefaultEventChannelBuffer  = 256
	DefaultPlanningSkipAnswer  = "Skipped"
)

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/missionkit/missionctl/pkg/models"
)

// Timestamps are stored as RFC 3339 text so the schema stays format-agnostic
// for external readers.
const timeLayout = time.RFC3339Nano

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *sqliteStore) LoadTasks(ctx context.Context) ([]models.Task, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT task_id, title, description, status, priority, assigned_agent,
       planning_qa, deliverables, tags, created_at, updated_at
FROM tasks ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Task
	for rows.Next() {
		var t models.Task
		var qa, dl, tags, created, updated string
		if err := rows.Scan(&t.TaskID, &t.Title, &t.Description, &t.Status, &t.Priority,
			&t.AssignedAgent, &qa, &dl, &tags, &created, &updated); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(qa), &t.PlanningQA); err != nil {
			return nil, fmt.Errorf("task %s planning_qa: %w", t.TaskID, err)
		}
		if err := json.Unmarshal([]byte(dl), &t.Deliverables); err != nil {
			return nil, fmt.Errorf("task %s deliverables: %w", t.TaskID, err)
		}
		if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
			return nil, fmt.Errorf("task %s tags: %w", t.TaskID, err)
		}
		if t.CreatedAt, err = decodeTime(created); err != nil {
			return nil, err
		}
		if t.UpdatedAt, err = decodeTime(updated); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveTasks(ctx context.Context, tasks []models.Task) error {
	s.taskMu.Lock()
	defer s.taskMu.Unlock()

	return s.replaceAll(ctx, "tasks", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO tasks(position, task_id, title, description, status, priority, assigned_agent,
                  planning_qa, deliverables, tags, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for i, t := range tasks {
			qa, err := encodeJSON(emptySlice(t.PlanningQA))
			if err != nil {
				return err
			}
			dl, err := encodeJSON(emptySlice(t.Deliverables))
			if err != nil {
				return err
			}
			tags, err := encodeJSON(emptySlice(t.Tags))
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, i, t.TaskID, t.Title, t.Description,
				string(t.Status), string(t.Priority), t.AssignedAgent, qa, dl, tags,
				encodeTime(t.CreatedAt), encodeTime(t.UpdatedAt)); err != nil {
				return fmt.Errorf("insert task %s: %w", t.TaskID, err)
			}
		}
		return nil
	})
}

func (s *sqliteStore) LoadAgents(ctx context.Context) ([]models.Agent, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT agent_id, name, role, model, status, capabilities, current_task,
       total_tasks_completed, created_at, last_activity
FROM agents ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Agent
	for rows.Next() {
		var a models.Agent
		var caps, created, activity string
		if err := rows.Scan(&a.AgentID, &a.Name, &a.Role, &a.Model, &a.Status,
			&caps, &a.CurrentTask, &a.TotalTasksCompleted, &created, &activity); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(caps), &a.Capabilities); err != nil {
			return nil, fmt.Errorf("agent %s capabilities: %w", a.AgentID, err)
		}
		if a.CreatedAt, err = decodeTime(created); err != nil {
			return nil, err
		}
		if a.LastActivity, err = decodeTime(activity); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveAgents(ctx context.Context, agents []models.Agent) error {
	s.agentMu.Lock()
	defer s.agentMu.Unlock()

	return s.replaceAll(ctx, "agents", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO agents(position, agent_id, name, role, model, status, capabilities,
                   current_task, total_tasks_completed, created_at, last_activity)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for i, a := range agents {
			caps, err := encodeJSON(emptySlice(a.Capabilities))
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, i, a.AgentID, a.Name, a.Role, a.Model,
				string(a.Status), caps, a.CurrentTask, a.TotalTasksCompleted,
				encodeTime(a.CreatedAt), encodeTime(a.LastActivity)); err != nil {
				return fmt.Errorf("insert agent %s: %w", a.AgentID, err)
			}
		}
		return nil
	})
}

func (s *sqliteStore) LoadMessages(ctx context.Context, limit int) ([]models.AgentMessage, error) {
	q := `
SELECT message_id, from_agent, to_agent, message, type, created_at
FROM messages ORDER BY position ASC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.AgentMessage
	for rows.Next() {
		var m models.AgentMessage
		var created string
		if err := rows.Scan(&m.MessageID, &m.FromAgent, &m.ToAgent, &m.Message, &m.Type, &created); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = decodeTime(created); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveMessages(ctx context.Context, msgs []models.AgentMessage) error {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()

	return s.replaceAll(ctx, "messages", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO messages(position, message_id, from_agent, to_agent, message, type, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for i, m := range msgs {
			if _, err := stmt.ExecContext(ctx, i, m.MessageID, m.FromAgent, m.ToAgent,
				m.Message, string(m.Type), encodeTime(m.CreatedAt)); err != nil {
				return fmt.Errorf("insert message %s: %w", m.MessageID, err)
			}
		}
		return nil
	})
}

// replaceAll deletes every row of table and re-inserts via fill, in one
// transaction. This is the full-collection replace contract.
func (s *sqliteStore) replaceAll(ctx context.Context, table string, fill func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return err
	}
	if err := fill(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// emptySlice keeps JSON columns as [] instead of null for nil slices.
func emptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Package client provides a Go SDK for the missionctl HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/missionkit/missionctl/pkg/models"
)

// Client calls the missionctl HTTP API. It is safe for concurrent use.
type Client struct {
	BaseURL    string       // e.g. "http://localhost:3747"
	APIKey     string       // optional; sent as X-API-Key
	HTTPClient *http.Client // optional; nil uses http.DefaultClient
}

// New returns a client for the given base URL (e.g. "http://localhost:3747").
// APIKey is optional; when set, requests carry the X-API-Key header.
func New(baseURL, apiKey string) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey}
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(b)
	}
	u := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	return c.client().Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return fmt.Errorf("api %s %s: %s", method, path, errBody.Error)
		}
		return fmt.Errorf("api %s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Health returns the /health response (ok: true).
func (c *Client) Health(ctx context.Context) (ok bool, err error) {
	var out struct {
		OK bool `json:"ok"`
	}
	err = c.doJSON(ctx, http.MethodGet, "/health", nil, &out)
	return out.OK, err
}

// Statistics returns the current mission statistics.
func (c *Client) Statistics(ctx context.Context) (*models.Statistics, error) {
	var out models.Statistics
	err := c.doJSON(ctx, http.MethodGet, "/statistics", nil, &out)
	return &out, err
}

// ListTasks returns all tasks, or only those in the given status.
func (c *Client) ListTasks(ctx context.Context, status models.TaskStatus) ([]models.Task, error) {
	path := "/tasks"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var out []models.Task
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// CreateTask creates a task (it starts in the planning stage) and returns it.
func (c *Client) CreateTask(ctx context.Context, title, description string, priority models.Priority) (*models.Task, error) {
	var out models.Task
	err := c.doJSON(ctx, http.MethodPost, "/tasks", map[string]any{
		"title": title, "description": description, "priority": priority,
	}, &out)
	return &out, err
}

// GetTask returns a task by ID.
func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var out models.Task
	err := c.doJSON(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &out)
	return &out, err
}

// MoveTask moves a task to a status and returns the updated task.
func (c *Client) MoveTask(ctx context.Context, id string, status models.TaskStatus) (*models.Task, error) {
	var out models.Task
	err := c.doJSON(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), map[string]any{"status": status}, &out)
	return &out, err
}

// AssignTask assigns a task to an agent by agent ID or name.
func (c *Client) AssignTask(ctx context.Context, id, agent string) (*models.Task, error) {
	var out models.Task
	err := c.doJSON(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), map[string]any{"assignee": agent}, &out)
	return &out, err
}

// DeleteTask deletes a task by ID.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

// PlanningState returns the recorded answers and the current question for a
// task in the planning stage. An empty current question means the dialogue
// already finished.
func (c *Client) PlanningState(ctx context.Context, id string) (qa []models.QAPair, current models.QAPair, err error) {
	var out struct {
		QA      []models.QAPair `json:"qa"`
		Current models.QAPair   `json:"current"`
	}
	err = c.doJSON(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id)+"/plan", nil, &out)
	return out.QA, out.Current, err
}

// AnswerPlanning answers the current planning question. done reports whether
// the dialogue finished and the task moved to inbox.
func (c *Client) AnswerPlanning(ctx context.Context, id, answer string) (task *models.Task, done bool, err error) {
	var out struct {
		Task models.Task `json:"task"`
		Done bool        `json:"done"`
	}
	err = c.doJSON(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/plan", map[string]any{"answer": answer}, &out)
	return &out.Task, out.Done, err
}

// SkipPlanning skips the current planning question.
func (c *Client) SkipPlanning(ctx context.Context, id string) (task *models.Task, done bool, err error) {
	var out struct {
		Task models.Task `json:"task"`
		Done bool        `json:"done"`
	}
	err = c.doJSON(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/plan", map[string]any{"skip": true}, &out)
	return &out.Task, out.Done, err
}

// SpawnOptions configures SpawnAgent. All fields are optional.
type SpawnOptions struct {
	Name         string   `json:"name,omitempty"`
	Role         string   `json:"role,omitempty"`
	Model        string   `json:"model,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// SpawnAgent spawns an agent for a task and returns the working agent.
func (c *Client) SpawnAgent(ctx context.Context, taskID string, opts SpawnOptions) (*models.Agent, error) {
	var out models.Agent
	err := c.doJSON(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/spawn", opts, &out)
	return &out, err
}

// AddDeliverable records a deliverable on a task.
func (c *Client) AddDeliverable(ctx context.Context, taskID string, d models.Deliverable) (*models.Task, error) {
	var out models.Task
	err := c.doJSON(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/deliverables", map[string]any{
		"name": d.Name, "type": d.Type, "content": d.Content, "file_path": d.FilePath,
	}, &out)
	return &out, err
}

// ListAgents returns agents. state filters: "", "available", or "working".
func (c *Client) ListAgents(ctx context.Context, state string) ([]models.Agent, error) {
	path := "/agents"
	if state != "" {
		path += "?state=" + url.QueryEscape(state)
	}
	var out []models.Agent
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// GetAgent returns an agent by ID.
func (c *Client) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	var out models.Agent
	err := c.doJSON(ctx, http.MethodGet, "/agents/"+url.PathEscape(id), nil, &out)
	return &out, err
}

// StopAgent stops a working agent. The agent goes offline even if the runtime
// stop fails; stopErr carries that failure.
func (c *Client) StopAgent(ctx context.Context, id string) (agent *models.Agent, stopErr string, err error) {
	var out struct {
		Agent     models.Agent `json:"agent"`
		StopError string       `json:"stop_error"`
	}
	err = c.doJSON(ctx, http.MethodPost, "/agents/"+url.PathEscape(id)+"/stop", nil, &out)
	return &out.Agent, out.StopError, err
}

// DeleteAgent removes an agent from the registry.
func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/agents/"+url.PathEscape(id), nil, nil)
}

// ListMessages returns recent messages, optionally filtered to one agent name
// (sender or recipient). limit 0 uses the server default.
func (c *Client) ListMessages(ctx context.Context, agent string, limit int) ([]models.AgentMessage, error) {
	q := url.Values{}
	if agent != "" {
		q.Set("agent", agent)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []models.AgentMessage
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// SendMessage posts a message to the log and returns it.
func (c *Client) SendMessage(ctx context.Context, from, to, text string, typ models.MessageType) (*models.AgentMessage, error) {
	var out models.AgentMessage
	err := c.doJSON(ctx, http.MethodPost, "/messages", map[string]any{
		"from": from, "to": to, "text": text, "type": typ,
	}, &out)
	return &out, err
}

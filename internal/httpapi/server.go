// Package httpapi exposes the mission controller to dashboard clients: read
// accessors, the mutating entry points, and an SSE stream of controller
// events. It holds no orchestration logic of its own.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/missionkit/missionctl/internal/mission"
	"github.com/missionkit/missionctl/pkg/models"
)

// ServerOptions configures the HTTP server.
type ServerOptions struct {
	Addr           string
	APIKey         string       // if set, require X-API-Key header or query api_key
	MetricsHandler http.Handler // if set, used for /metrics (OTel Prometheus handler)
	UseOtelHTTP    bool         // if true, wrap handler with otelhttp for request metrics
	Dev            bool         // if true, allow cross-origin dashboard dev servers
}

// App holds the HTTP server and the mission controller it fronts.
type App struct {
	Server     *http.Server
	Controller *mission.Controller
}

// NewApp builds the HTTP app over an already-loaded controller.
func NewApp(ctrl *mission.Controller, opts ServerOptions) *App {
	mux := http.NewServeMux()
	app := &App{Controller: ctrl}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	})

	if opts.MetricsHandler != nil {
		mux.Handle("/metrics", opts.MetricsHandler)
	} else {
		mux.HandleFunc("/metrics", app.handlePlainMetrics)
	}

	mux.HandleFunc("/statistics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, ctrl.Statistics())
	})

	mux.HandleFunc("/stream", sseHandler(ctrl.Hub))

	mux.HandleFunc("/tasks", app.handleTasks)
	mux.HandleFunc("/tasks/", app.handleTaskByID)
	mux.HandleFunc("/agents", app.handleAgents)
	mux.HandleFunc("/agents/", app.handleAgentByID)
	mux.HandleFunc("/messages", app.handleMessages)

	var handler http.Handler = mux
	handler = bodyLimitMiddleware(models.DefaultMaxRequestBodyBytes, handler)
	if opts.APIKey != "" {
		handler = apiKeyMiddleware(opts.APIKey, handler)
	}
	if opts.Dev {
		handler = corsMiddleware(handler)
	}
	if opts.UseOtelHTTP {
		handler = otelhttp.NewHandler(handler, "missionctl.http")
	}

	app.Server = &http.Server{Addr: opts.Addr, Handler: handler}
	return app
}

// --- Tasks ---

func (a *App) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if s := r.URL.Query().Get("status"); s != "" {
			status := models.TaskStatus(s)
			if !status.Valid() {
				writeJSONError(w, http.StatusBadRequest, "invalid status")
				return
			}
			writeJSON(w, a.Controller.TasksByStatus(status))
			return
		}
		writeJSON(w, a.Controller.Tasks())
	case http.MethodPost:
		var body struct {
			Title       string          `json:"title"`
			Description string          `json:"description"`
			Priority    models.Priority `json:"priority"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if body.Title == "" {
			writeJSONError(w, http.StatusBadRequest, "title required")
			return
		}
		if body.Priority == "" {
			body.Priority = models.PriorityMedium
		}
		t, err := a.Controller.CreateTask(r.Context(), body.Title, body.Description, body.Priority)
		if err != nil {
			writeControllerError(w, err)
			return
		}
		writeJSON(w, t)
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *App) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/tasks/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		writeJSONError(w, http.StatusNotFound, "task id required")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			t, ok := a.Controller.Task(id)
			if !ok {
				writeJSONError(w, http.StatusNotFound, "task not found")
				return
			}
			writeJSON(w, t)
		case http.MethodPatch:
			a.patchTask(w, r, id)
		case http.MethodDelete:
			if err := a.Controller.DeleteTask(r.Context(), id); err != nil {
				writeControllerError(w, err)
				return
			}
			writeJSON(w, map[string]any{"deleted": id})
		default:
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	switch parts[1] {
	case "plan":
		a.handlePlan(w, r, id)
	case "spawn":
		a.handleSpawn(w, r, id)
	case "deliverables":
		a.handleDeliverables(w, r, id)
	default:
		writeJSONError(w, http.StatusNotFound, "unknown task resource")
	}
}

func (a *App) patchTask(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Status   string `json:"status,omitempty"`
		Assignee string `json:"assignee,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	var (
		t   models.Task
		err error
	)
	switch {
	case body.Status != "":
		t, err = a.Controller.MoveTask(r.Context(), id, models.TaskStatus(body.Status))
	case body.Assignee != "":
		t, err = a.Controller.AssignTaskToAgent(r.Context(), id, body.Assignee)
	default:
		writeJSONError(w, http.StatusBadRequest, "status or assignee required")
		return
	}
	if err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, t)
}

func (a *App) handlePlan(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		qa, current, ok := a.Controller.PlanningState(id)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "no planning dialogue for task")
			return
		}
		writeJSON(w, map[string]any{"qa": qa, "current": current})
	case http.MethodPost:
		var body struct {
			Answer string `json:"answer"`
			Skip   bool   `json:"skip"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		var (
			t    models.Task
			done bool
			err  error
		)
		if body.Skip {
			t, done, err = a.Controller.SkipPlanning(r.Context(), id)
		} else {
			if body.Answer == "" {
				writeJSONError(w, http.StatusBadRequest, "answer required")
				return
			}
			t, done, err = a.Controller.AnswerPlanning(r.Context(), id, body.Answer)
		}
		if err != nil {
			writeControllerError(w, err)
			return
		}
		writeJSON(w, map[string]any{"task": t, "done": done})
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *App) handleSpawn(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Name         string   `json:"name"`
		Role         string   `json:"role"`
		Model        string   `json:"model"`
		Capabilities []string `json:"capabilities"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	agent, err := a.Controller.SpawnAgentForTask(r.Context(), id, mission.SpawnConfig{
		Name:         body.Name,
		Role:         body.Role,
		Model:        body.Model,
		Capabilities: body.Capabilities,
	})
	if err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, agent)
}

func (a *App) handleDeliverables(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		Content  string `json:"content"`
		FilePath string `json:"file_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := a.Controller.RecordDeliverable(r.Context(), id, models.Deliverable{
		Name:     body.Name,
		Type:     models.DeliverableType(body.Type),
		Content:  body.Content,
		FilePath: body.FilePath,
	})
	if err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, t)
}

// --- Agents ---

func (a *App) handleAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	switch r.URL.Query().Get("state") {
	case "available":
		writeJSON(w, a.Controller.AvailableAgents())
	case "working":
		writeJSON(w, a.Controller.WorkingAgents())
	case "":
		writeJSON(w, a.Controller.Agents())
	default:
		writeJSONError(w, http.StatusBadRequest, "invalid state filter")
	}
}

func (a *App) handleAgentByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/agents/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		writeJSONError(w, http.StatusNotFound, "agent id required")
		return
	}

	if len(parts) > 1 && parts[1] == "stop" {
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		agent, err := a.Controller.StopAgent(r.Context(), id)
		if err != nil && !mission.IsKind(err, mission.KindAgentStopFailed) {
			writeControllerError(w, err)
			return
		}
		// Local state updated even if the runtime stop failed; report both.
		payload := map[string]any{"agent": agent}
		if err != nil {
			payload["stop_error"] = err.Error()
		}
		writeJSON(w, payload)
		return
	}

	switch r.Method {
	case http.MethodGet:
		agent, ok := a.Controller.Agent(id)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeJSON(w, agent)
	case http.MethodDelete:
		if err := a.Controller.DeleteAgent(r.Context(), id); err != nil {
			writeControllerError(w, err)
			return
		}
		writeJSON(w, map[string]any{"deleted": id})
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- Messages ---

func (a *App) handleMessages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 50
		if s := r.URL.Query().Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				limit = n
			}
		}
		if agent := r.URL.Query().Get("agent"); agent != "" {
			writeJSON(w, emptyMessages(a.Controller.MessagesForAgent(agent, limit)))
			return
		}
		writeJSON(w, emptyMessages(a.Controller.RecentMessages(limit)))
	case http.MethodPost:
		var body struct {
			From string `json:"from"`
			To   string `json:"to"`
			Text string `json:"text"`
			Type string `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if body.From == "" || body.Text == "" {
			writeJSONError(w, http.StatusBadRequest, "from and text required")
			return
		}
		m, err := a.Controller.SendMessage(r.Context(), body.From, body.To, body.Text, models.MessageType(body.Type))
		if err != nil {
			writeControllerError(w, err)
			return
		}
		writeJSON(w, m)
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handlePlainMetrics serves task/agent gauges without the OTel exporter.
func (a *App) handlePlainMetrics(w http.ResponseWriter, r *http.Request) {
	stats := a.Controller.Statistics()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "# TYPE missionctl_tasks_total gauge\n")
	for _, s := range models.TaskStatuses {
		_, _ = fmt.Fprintf(w, "missionctl_tasks_total{status=%q} %d\n", s, stats.TasksByStatus[s])
	}
	_, _ = fmt.Fprintf(w, "# TYPE missionctl_agents_total gauge\n")
	_, _ = fmt.Fprintf(w, "missionctl_agents_total{status=\"total\"} %d\n", stats.TotalAgents)
	_, _ = fmt.Fprintf(w, "missionctl_agents_total{status=\"active\"} %d\n", stats.ActiveAgents)
	_, _ = fmt.Fprintf(w, "# TYPE missionctl_completion_rate gauge\n")
	_, _ = fmt.Fprintf(w, "missionctl_completion_rate %g\n", stats.CompletionRate)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}

// writeControllerError maps mission error kinds to HTTP statuses.
func writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case mission.IsKind(err, mission.KindNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case mission.IsKind(err, mission.KindAgentSpawnFailed):
		writeJSONError(w, http.StatusBadGateway, err.Error())
	case mission.IsKind(err, mission.KindSaveFailed),
		mission.IsKind(err, mission.KindLoadFailed),
		mission.IsKind(err, mission.KindDeleteFailed):
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSONError(w, http.StatusBadRequest, err.Error())
	}
}

// emptyMessages keeps the JSON list as [] instead of null.
func emptyMessages(in []models.AgentMessage) []models.AgentMessage {
	if in == nil {
		return []models.AgentMessage{}
	}
	return in
}

// bodyLimitMiddleware limits request body size for POST, PUT, PATCH to prevent OOM.
func bodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware sets CORS headers for dev mode (dashboard dev server on a
// different origin).
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func apiKeyMiddleware(key string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get("X-API-Key")
		if got == "" {
			got = r.URL.Query().Get("api_key")
		}
		if got != key {
			writeJSONError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
